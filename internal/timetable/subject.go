package timetable

import (
	"regexp"
	"strings"
)

// Matches a subject string with an optional trailing parenthetical type
// marker: "Физическая культура (Лек.)" -> "Физическая культура", "Лек."
var subjectTypeRe = regexp.MustCompile(`^(.*?)(?:\s*\(([^()]*)\)\s*)?$`)

// splitSubject separates the lesson-type marker from a raw subject string.
// A missing or blank parenthetical yields an empty lesson type.
func splitSubject(raw string) (subject, lessonType string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ""
	}
	m := subjectTypeRe.FindStringSubmatch(s)
	if m == nil {
		return s, ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}
