package timetable

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrMalformedTable reports a schedule table whose header does not carry the
// subgroup column count.
var ErrMalformedTable = errors.New("timetable: malformed schedule table")

// Dates on the schedule pages look like "13.01.2026".
var dateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)

// headerCellClass marks date and slot label cells, which are never lessons.
const headerCellClass = "hd"

// Link role markers used by the schedule markup.
const (
	roleSubject = "z1"
	roleRoom    = "z2"
	roleTeacher = "z3"
)

// Extract parses one group's schedule page and returns its lesson events
// sorted by (date, slot, subgroup). A page without a schedule table yields
// an empty slice and no error; a table without a readable header colspan is
// a structural error.
//
// dateFrom and dateTo describe the window the caller is scraping for; the
// extractor does not filter by them. Window enforcement belongs to the
// persistence layer, which replaces exactly that range.
func Extract(html, groupCode, sourceURL string, dateFrom, dateTo time.Time) ([]Event, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return []Event{}, nil
	}

	maxColspan, err := headerColspan(table)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0)
	var block dayBlock

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")

		// Date rows carry exactly three cells. A three-cell row without a
		// parseable date clears the context, so stray rows in that shape
		// cannot inherit the previous day.
		if cells.Length() == 3 {
			if d, ok := parseDate(cells.First().Text()); ok {
				block.enter(d)
			} else {
				block.clear()
			}
			return
		}

		if !block.active() {
			return
		}

		slot := block.nextSlot()
		subgroup := 0
		cells.Each(func(_ int, cell *goquery.Selection) {
			if _, spansRows := cell.Attr("rowspan"); spansRows {
				return
			}
			if cell.HasClass(headerCellClass) {
				return
			}
			if cellColspan(cell) == maxColspan {
				subgroup = 0
			} else {
				subgroup++
			}
			if ev, ok := interpretCell(cell, block.date, groupCode, slot, subgroup, sourceURL); ok {
				events = append(events, ev)
			}
		})

		if block.exhausted() {
			block.clear()
		}
	})

	sortEvents(events)
	return events, nil
}

// headerColspan reads the finest subgroup column count from the last header
// cell's displayed integer. Every lesson cell's colspan is compared against
// it to classify the cell as whole-group or a subgroup slice.
func headerColspan(table *goquery.Selection) (int, error) {
	last := table.Find("thead td").Last()
	if last.Length() == 0 {
		return 0, fmt.Errorf("%w: no header cells", ErrMalformedTable)
	}
	text := strings.TrimSpace(last.Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: header colspan %q is not a number", ErrMalformedTable, text)
	}
	return n, nil
}

// cellColspan returns a cell's column span, defaulting to 1 when the
// attribute is missing or unreadable.
func cellColspan(cell *goquery.Selection) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr("colspan", "1")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseDate(text string) (time.Time, bool) {
	m := dateRe.FindString(text)
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("02.01.2006", m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// interpretCell turns one lesson cell into an Event. Malformed cell content
// never fails the extraction; the worst case is an event with a best-effort
// subject string. Only an empty cell yields nothing.
func interpretCell(cell *goquery.Selection, date time.Time, groupCode string, slot, subgroup int, sourceURL string) (Event, bool) {
	cellText := visibleText(cell)
	if cellText == "" {
		return Event{}, false
	}

	subjectRaw, journalURL, hasSubject := findLink(cell, roleSubject)
	roomText, roomURL, _ := findLink(cell, roleRoom)
	teacherText, teacherURL, _ := findLink(cell, roleTeacher)

	parseSource := subjectRaw
	if !hasSubject {
		parseSource = cellText
	}
	subject, lessonType := splitSubject(parseSource)
	if subject == "" {
		subject = strings.TrimSpace(subjectRaw)
	}
	if subject == "" {
		subject = cellText
	}

	return Event{
		Date:       date,
		GroupCode:  groupCode,
		Slot:       slot,
		Subgroup:   subgroup,
		Subject:    subject,
		LessonType: lessonType,
		Teacher:    teacherText,
		Room:       roomText,
		GroupURL:   sourceURL,
		JournalURL: journalURL,
		TeacherURL: teacherURL,
		RoomURL:    roomURL,
	}, true
}

// findLink returns the text and target of the first link in the cell tagged
// with the given role class.
func findLink(cell *goquery.Selection, role string) (text, href string, ok bool) {
	link := cell.Find("a." + role + "[href]").First()
	if link.Length() == 0 {
		return "", "", false
	}
	return visibleText(link), strings.TrimSpace(link.AttrOr("href", "")), true
}

// visibleText collapses a node's text content to single-spaced trimmed form.
func visibleText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
