// Package store persists groups, reference rows and lesson events in
// Postgres and keeps per-run bookkeeping.
//
// Writes follow a replace-in-window strategy: for one group and date range,
// previously stored events are deleted and the freshly extracted set is
// deduplicated and bulk-inserted inside a single transaction. Subject,
// teacher and room names live in reference tables and are upserted lazily
// as events mention them.
package store
