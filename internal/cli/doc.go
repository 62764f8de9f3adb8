// Package cli implements the command-line interface for schedule-parser.
//
// The cli package provides the Cobra-based CLI with commands for running a
// full parse into Postgres, listing the group directory, and printing one
// group's extracted schedule without touching the database. Output is
// available as text or JSON.
package cli
