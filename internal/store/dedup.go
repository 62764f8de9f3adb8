package store

import (
	"sort"
	"time"

	"github.com/avkuzmin/schedule-parser/internal/timetable"
)

// dedupKey identifies one stored lesson occurrence. The journal URL is the
// preferred identity when the page provides it; otherwise the key falls back
// to the lesson's descriptive tuple.
type dedupKey struct {
	date     string
	slot     int
	subgroup int
	journal  string
	subject  string
	teacher  string
	room     string
}

const dateKeyFormat = "2006-01-02"

func keyFor(ev timetable.Event) dedupKey {
	k := dedupKey{
		date:     ev.Date.Format(dateKeyFormat),
		slot:     ev.Slot,
		subgroup: ev.Subgroup,
	}
	if ev.JournalURL != "" {
		k.journal = ev.JournalURL
		return k
	}
	k.subject = ev.Subject
	k.teacher = ev.Teacher
	k.room = ev.Room
	return k
}

// Dedup collapses events that share a dedup key, keeping the last
// occurrence, and returns the survivors sorted by (date, slot, subgroup).
func Dedup(events []timetable.Event) []timetable.Event {
	unique := make([]timetable.Event, 0, len(events))
	byKey := make(map[dedupKey]int, len(events))

	for _, ev := range events {
		k := keyFor(ev)
		if pos, ok := byKey[k]; ok {
			unique[pos] = ev
			continue
		}
		byKey[k] = len(unique)
		unique = append(unique, ev)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Subgroup < b.Subgroup
	})
	return unique
}

// dateOnly normalizes a timestamp to its calendar date in UTC for storage.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
