// Package timetable extracts structured lesson events from a group's
// schedule page.
//
// The extractor is a pure function over the page HTML: it walks the schedule
// table tracking the current date and slot position, classifies each lesson
// cell as whole-group or subgroup-specific from its column span, and splits
// subject text into subject and lesson-type parts. It performs no network or
// database I/O; fetching and persistence live in their own packages.
package timetable
