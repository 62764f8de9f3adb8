// Package runner orchestrates a full parse run: resolve the group
// directory, fetch and extract every group's schedule, and replace the
// stored events, with per-group failures isolated from the batch.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avkuzmin/schedule-parser/internal/directory"
	"github.com/avkuzmin/schedule-parser/internal/store"
	"github.com/avkuzmin/schedule-parser/internal/timetable"
)

// DefaultDaysAhead is the scrape window length when no explicit range is
// given.
const DefaultDaysAhead = 14

// Fetcher retrieves one site page by its relative path.
type Fetcher interface {
	Get(ctx context.Context, path string) (string, error)
}

// Store is the persistence surface the runner needs.
type Store interface {
	CreateRun(ctx context.Context) (uuid.UUID, error)
	FinishRun(ctx context.Context, id uuid.UUID, summary store.RunSummary) error
	UpsertGroups(ctx context.Context, groups []directory.Group) error
	GroupID(ctx context.Context, code string) (int64, error)
	ReplaceEventsForGroup(ctx context.Context, groupID int64, from, to time.Time, events []timetable.Event) (int, error)
}

// Options selects what a run covers.
type Options struct {
	// GroupCode restricts the run to one group when non-empty.
	GroupCode string
	// DateFrom/DateTo bound the replaced window; zero values default to
	// [today, today+DaysAhead].
	DateFrom time.Time
	DateTo   time.Time
	// DaysAhead sizes the default window; zero means DefaultDaysAhead.
	DaysAhead int
}

// Result summarizes a finished run.
type Result struct {
	RunID        uuid.UUID
	Status       store.RunStatus
	GroupsTotal  int
	GroupsOK     int
	GroupsFailed int
	EventsSaved  int
}

func (o Options) window(now time.Time) (time.Time, time.Time) {
	days := o.DaysAhead
	if days <= 0 {
		days = DefaultDaysAhead
	}
	from := o.DateFrom
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	to := o.DateTo
	if to.IsZero() {
		to = from.AddDate(0, 0, days)
	}
	return from, to
}

// Run executes one parse run and records its outcome. Per-group failures are
// counted and logged but do not stop the batch; the run finishes as partial.
// Only batch-level failures (unreachable directory, zero groups) fail the
// whole run.
func Run(ctx context.Context, fetcher Fetcher, st Store, opts Options) (Result, error) {
	from, to := opts.window(time.Now())

	runID, err := st.CreateRun(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("creating run: %w", err)
	}
	res := Result{RunID: runID}

	log.Info().
		Str("run_id", runID.String()).
		Str("from", from.Format("02.01.2006")).
		Str("to", to.Format("02.01.2006")).
		Msg("parse run started")

	fail := func(cause error) (Result, error) {
		res.Status = store.RunFailed
		summary := summarize(res, cause.Error())
		if ferr := st.FinishRun(ctx, runID, summary); ferr != nil {
			log.Error().Err(ferr).Str("run_id", runID.String()).Msg("recording failed run")
		}
		return res, cause
	}

	groups, err := directory.FetchGroups(ctx, fetcher)
	if err != nil {
		return fail(fmt.Errorf("resolving group directory: %w", err))
	}
	if opts.GroupCode != "" {
		filtered := groups[:0]
		for _, g := range groups {
			if g.Code == opts.GroupCode {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}
	res.GroupsTotal = len(groups)
	if len(groups) == 0 {
		return fail(fmt.Errorf("no groups found (filter=%q)", opts.GroupCode))
	}

	if err := st.UpsertGroups(ctx, groups); err != nil {
		return fail(fmt.Errorf("upserting groups: %w", err))
	}

	for _, g := range groups {
		saved, err := processGroup(ctx, fetcher, st, g, from, to)
		if err != nil {
			res.GroupsFailed++
			log.Error().Err(err).Str("group", g.Code).Str("url", g.URL).Msg("group failed")
			continue
		}
		res.GroupsOK++
		res.EventsSaved += saved
		log.Info().Str("group", g.Code).Int("events", saved).Msg("group done")
	}

	res.Status = store.RunSuccess
	message := ""
	if res.GroupsFailed > 0 {
		res.Status = store.RunPartial
		message = "some groups failed, see logs"
	}
	if err := st.FinishRun(ctx, runID, summarize(res, message)); err != nil {
		return res, fmt.Errorf("finishing run: %w", err)
	}

	log.Info().
		Str("run_id", runID.String()).
		Str("status", string(res.Status)).
		Int("total", res.GroupsTotal).
		Int("ok", res.GroupsOK).
		Int("failed", res.GroupsFailed).
		Int("events", res.EventsSaved).
		Msg("parse run finished")
	return res, nil
}

func processGroup(ctx context.Context, fetcher Fetcher, st Store, g directory.Group, from, to time.Time) (int, error) {
	groupID, err := st.GroupID(ctx, g.Code)
	if err != nil {
		return 0, err
	}
	html, err := fetcher.Get(ctx, g.URL)
	if err != nil {
		return 0, err
	}
	events, err := timetable.Extract(html, g.Code, g.URL, from, to)
	if err != nil {
		return 0, err
	}
	return st.ReplaceEventsForGroup(ctx, groupID, from, to, events)
}

func summarize(res Result, message string) store.RunSummary {
	return store.RunSummary{
		Status:       res.Status,
		Message:      message,
		GroupsTotal:  res.GroupsTotal,
		GroupsOK:     res.GroupsOK,
		GroupsFailed: res.GroupsFailed,
		EventsSaved:  res.EventsSaved,
	}
}
