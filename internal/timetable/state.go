package timetable

import "time"

// slotsPerDay is the fixed number of lesson slots in one school day.
const slotsPerDay = 8

type walkState int

const (
	stateNoDate walkState = iota
	stateInBlock
)

// dayBlock is the table walker's date context: which day the rows currently
// being visited belong to, and how many lesson rows of that day have been
// consumed. Rows visited while no block is active are not lesson rows.
type dayBlock struct {
	state walkState
	date  time.Time
	slot  int
}

func (b *dayBlock) active() bool {
	return b.state == stateInBlock
}

// enter opens a new day block and resets the slot counter.
func (b *dayBlock) enter(date time.Time) {
	b.state = stateInBlock
	b.date = date
	b.slot = 0
}

func (b *dayBlock) clear() {
	b.state = stateNoDate
	b.date = time.Time{}
	b.slot = 0
}

// nextSlot advances to the next lesson row and returns its 1-based slot
// number.
func (b *dayBlock) nextSlot() int {
	b.slot++
	return b.slot
}

// exhausted reports whether the day's slot count has been used up. A new
// date row must then appear before further rows count as lessons.
func (b *dayBlock) exhausted() bool {
	return b.slot >= slotsPerDay
}
