package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/avkuzmin/schedule-parser/internal/directory"
	"github.com/avkuzmin/schedule-parser/internal/timetable"
)

func sampleEvents() []timetable.Event {
	d := time.Date(2026, time.January, 13, 0, 0, 0, 0, time.UTC)
	return []timetable.Event{
		{Date: d, GroupCode: "АТ141", Slot: 1, Subgroup: 0, Subject: "Математика", LessonType: "Лек.", Teacher: "Иванова И. П.", Room: "301", GroupURL: "cg352.htm", JournalURL: "j101.htm"},
		{Date: d, GroupCode: "АТ141", Slot: 2, Subgroup: 1, Subject: "Информатика", LessonType: "Пр.", Teacher: "Петров С. Н.", Room: "120а", GroupURL: "cg352.htm"},
	}
}

func TestWriteEventsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvents(&buf, sampleEvents(), FormatText); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"13.01.2026",
		"slot 1",
		"Математика (Лек.)",
		"sub 1",
		"Информатика (Пр.)",
		"2 lessons",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteEventsTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvents(&buf, nil, FormatText); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No lessons found.") {
		t.Errorf("unexpected empty output: %q", buf.String())
	}
}

func TestWriteEventsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvents(&buf, sampleEvents(), FormatJSON); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}

	var decoded []timetable.Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decoded))
	}
	if decoded[0].Subject != "Математика" || decoded[0].LessonType != "Лек." {
		t.Errorf("unexpected first event: %+v", decoded[0])
	}
}

func TestWriteGroups(t *testing.T) {
	groups := []directory.Group{
		{Code: "АТ141", URL: "cg352.htm"},
		{Code: "БУ101", URL: "cg101.htm"},
	}

	var buf bytes.Buffer
	if err := WriteGroups(&buf, groups, FormatText); err != nil {
		t.Fatalf("WriteGroups failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "АТ141") || !strings.Contains(out, "cg101.htm") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "2 groups") {
		t.Errorf("expected a count footer, got:\n%s", out)
	}

	buf.Reset()
	if err := WriteGroups(&buf, groups, FormatJSON); err != nil {
		t.Fatalf("WriteGroups failed: %v", err)
	}
	var decoded []directory.Group
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Code != "БУ101" {
		t.Errorf("unexpected decoded groups: %v", decoded)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("text"); err != nil {
		t.Errorf("text should be valid: %v", err)
	}
	if _, err := ParseFormat("json"); err != nil {
		t.Errorf("json should be valid: %v", err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("yaml should be rejected")
	}
}

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag("13.01.2026")
	if err != nil {
		t.Fatalf("parseDateFlag failed: %v", err)
	}
	want := time.Date(2026, time.January, 13, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got, err := parseDateFlag("  "); err != nil || !got.IsZero() {
		t.Errorf("blank flag should be zero time, got %v, %v", got, err)
	}

	if _, err := parseDateFlag("2026-01-13"); err == nil {
		t.Error("ISO dates should be rejected")
	}
}
