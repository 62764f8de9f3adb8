package timetable

import (
	"sort"
	"time"
)

// Event represents one scheduled lesson occurrence for a group. Subgroup 0
// means the lesson applies to the whole group; 1..N is the left-to-right
// ordinal of the subgroup column the lesson occupies.
type Event struct {
	Date      time.Time `json:"date"`
	GroupCode string    `json:"group_code"`
	Slot      int       `json:"slot"`
	Subgroup  int       `json:"subgroup"`

	Subject    string `json:"subject"`
	LessonType string `json:"lesson_type,omitempty"`
	Teacher    string `json:"teacher,omitempty"`
	Room       string `json:"room,omitempty"`

	GroupURL   string `json:"group_url"`
	JournalURL string `json:"journal_url,omitempty"`
	TeacherURL string `json:"teacher_url,omitempty"`
	RoomURL    string `json:"room_url,omitempty"`
}

// sortEvents orders events by (date, slot, subgroup). The extractor
// guarantees this ordering as a post-condition regardless of row order.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Subgroup < b.Subgroup
	})
}
