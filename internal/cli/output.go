package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/avkuzmin/schedule-parser/internal/directory"
	"github.com/avkuzmin/schedule-parser/internal/timetable"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(value string) (OutputFormat, error) {
	switch OutputFormat(value) {
	case FormatText, FormatJSON:
		return OutputFormat(value), nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", value)
	}
}

// WriteGroups writes the group directory in the specified format.
func WriteGroups(w io.Writer, groups []directory.Group, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, groups)
	}

	if len(groups) == 0 {
		fmt.Fprintln(w, "No groups found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\n", g.Code, g.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d groups\n", len(groups))
	return nil
}

// WriteEvents writes extracted lesson events in the specified format.
func WriteEvents(w io.Writer, events []timetable.Event, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, events)
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "No lessons found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ev := range events {
		subject := ev.Subject
		if ev.LessonType != "" {
			subject = fmt.Sprintf("%s (%s)", ev.Subject, ev.LessonType)
		}
		subgroup := ""
		if ev.Subgroup > 0 {
			subgroup = fmt.Sprintf("sub %d", ev.Subgroup)
		}
		fmt.Fprintf(tw, "%s\tslot %d\t%s\t%s\t%s\t%s\n",
			ev.Date.Format("02.01.2006"), ev.Slot, subgroup, subject, ev.Teacher, ev.Room)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d lessons\n", len(events))
	return nil
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
