/*
Package cache is the Validation Cache behind the planning grid.

PURPOSE:
  The grid shows, per date, crew completeness, the highest HR violation
  level, whether notes exist and whether a critical code is planned twice.
  Computing that per cell would cost a query per user per day. The cache
  computes a whole month from one bulk load and answers per-date lookups
  from memory.

STATE:
  entries  date → Entry
  dirty    dates invalidated since their last computation

CONSISTENCY:
  PreloadMonth builds a new map and swaps it in under the write lock, so a
  reader sees either the old month or the new one, never a mix. Preloads
  are serialised by a separate mutex so readers are never blocked by I/O.

  After InvalidateDate(d) and RefreshDirty(), the entry for d equals what a
  full PreloadMonth would compute: both go through compute().

  Every invalidation bumps a generation counter. A computation remembers
  the generation it started at, and publish skips any date invalidated
  after that point: the date stays dirty and the next refresh picks it up.

SINGLETON:
  One cache per process: Init once at startup, Default everywhere else.
  New exists for tests.

SEE ALSO:
  - ../validator: per-date levels come from Validator.Evaluate
  - refresher.go: background RefreshDirty
*/
package cache

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/roster-engine/checker"
	"github.com/warp/roster-engine/generic"
	"github.com/warp/roster-engine/roster"
	"github.com/warp/roster-engine/validator"
)

// =============================================================================
// ENTRY
// =============================================================================

// Entry is the grid state of one date.
type Entry struct {
	Date                     generic.Date      `json:"date"`
	Crew                     roster.CrewStatus `json:"crew"`
	HRLevel                  checker.Level     `json:"hr_level"`
	HasNotes                 bool              `json:"has_notes"`
	HasDuplicateCriticalCode bool              `json:"has_duplicate_critical_code"`
	LastUpdated              time.Time         `json:"last_updated"`
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int    `json:"entries"`
	Dirty   int    `json:"dirty"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// =============================================================================
// CACHE
// =============================================================================

type Options struct {
	Logger  *logrus.Logger
	Metrics *Metrics
	// Now stamps LastUpdated. Defaults to time.Now.
	Now func() time.Time
}

type Cache struct {
	validator *validator.Validator
	repo      roster.Repository
	log       *logrus.Logger
	metrics   *Metrics
	now       func() time.Time

	load sync.Mutex // serialises preloads and refreshes

	mu      sync.RWMutex
	entries map[generic.Date]Entry
	dirty   map[generic.Date]bool
	hits    uint64
	misses  uint64

	// invalidation generations
	gen        uint64
	touched    map[generic.Date]uint64
	touchedAll uint64
}

func New(v *validator.Validator, repo roster.Repository, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
		opts.Logger.SetOutput(io.Discard)
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		validator: v,
		repo:      repo,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
		entries:   make(map[generic.Date]Entry),
		dirty:     make(map[generic.Date]bool),
		touched:   make(map[generic.Date]uint64),
	}
}

var (
	defaultCache *Cache
	defaultOnce  sync.Once
)

// Init creates the process-wide cache. Later calls return the first cache
// and ignore their arguments.
func Init(v *validator.Validator, repo roster.Repository, opts Options) *Cache {
	defaultOnce.Do(func() {
		defaultCache = New(v, repo, opts)
	})
	return defaultCache
}

// Default returns the cache created by Init, or nil before Init.
func Default() *Cache {
	return defaultCache
}

// =============================================================================
// PRELOAD
// =============================================================================

// PreloadMonth computes every date of the month and publishes them at once.
// A nil users slice covers the whole team.
func (c *Cache) PreloadMonth(ctx context.Context, year int, month time.Month, users []roster.UserID) error {
	c.load.Lock()
	defer c.load.Unlock()

	focus := generic.MonthPeriod(year, month)
	started := time.Now()
	since := c.generation()
	computed, err := c.compute(ctx, focus, users)
	if err != nil {
		return err
	}
	c.publish(computed, since)

	elapsed := time.Since(started)
	c.metrics.PreloadDuration.Observe(elapsed.Seconds())
	c.log.WithFields(logrus.Fields{
		"year":     year,
		"month":    int(month),
		"dates":    len(computed),
		"duration": elapsed.String(),
	}).Info("Preloaded month")
	return nil
}

// generation returns the invalidation counter. Take it before loading.
func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// publish swaps in a new map holding computed on top of the current entries
// and clears their dirty flags. Dates invalidated after generation since are
// left out and stay dirty.
func (c *Cache) publish(computed map[generic.Date]Entry, since uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[generic.Date]Entry, len(c.entries)+len(computed))
	for d, e := range c.entries {
		next[d] = e
	}
	stale := 0
	for d, e := range computed {
		if c.touchedAll > since || c.touched[d] > since {
			c.dirty[d] = true
			stale++
			continue
		}
		next[d] = e
		delete(c.dirty, d)
		delete(c.touched, d)
	}
	c.entries = next
	c.gauges()
	if stale > 0 {
		c.log.WithField("dates", stale).Debug("Skipped dates invalidated during load")
	}
}

// compute derives the entries of focus from one window load and one notes
// query, run concurrently.
func (c *Cache) compute(ctx context.Context, focus generic.Period, users []roster.UserID) (map[generic.Date]Entry, error) {
	var (
		w     *validator.Window
		notes []generic.Date
		crew  []roster.PlanningRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		w, err = c.validator.WindowFor(gctx, focus, users)
		return err
	})
	g.Go(func() (err error) {
		notes, err = c.repo.NotesInRange(gctx, focus.Start, focus.End)
		if err != nil {
			return fmt.Errorf("load notes: %w", err)
		}
		return nil
	})
	// Crew completeness is a whole-team figure even when users is a subset.
	if users != nil {
		g.Go(func() (err error) {
			crew, err = c.repo.PlanningInRange(gctx, focus.Start, focus.End, nil)
			if err != nil {
				return fmt.Errorf("load crew rows: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if users == nil {
		crew = w.Rows
	}

	hasNotes := make(map[generic.Date]bool, len(notes))
	for _, d := range notes {
		hasNotes[d] = true
	}
	byDate := make(map[generic.Date][]roster.PlanningRow)
	for _, r := range crew {
		if focus.Contains(r.Date) {
			byDate[r.Date] = append(byDate[r.Date], r)
		}
	}
	levels := c.validator.Evaluate(w, focus, "", validator.Options{}).Levels(focus)

	stamp := c.now()
	out := make(map[generic.Date]Entry, focus.Len())
	for _, d := range focus.Days() {
		crew := roster.CrewCompleteness(d, w.Book, byDate[d])
		out[d] = Entry{
			Date:                     d,
			Crew:                     crew.Status,
			HRLevel:                  levels[d],
			HasNotes:                 hasNotes[d],
			HasDuplicateCriticalCode: crew.HasDuplicateCriticalCode(),
			LastUpdated:              stamp,
		}
	}
	return out, nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Entry returns the cached state of d.
func (c *Cache) Entry(d generic.Date) (Entry, bool) {
	c.mu.Lock()
	e, ok := c.entries[d]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if ok {
		c.metrics.Hits.Inc()
	} else {
		c.metrics.Misses.Inc()
	}
	return e, ok
}

func (c *Cache) CrewStatus(d generic.Date) (roster.CrewStatus, bool) {
	e, ok := c.Entry(d)
	return e.Crew, ok
}

func (c *Cache) HRLevel(d generic.Date) (checker.Level, bool) {
	e, ok := c.Entry(d)
	return e.HRLevel, ok
}

func (c *Cache) HasNotes(d generic.Date) (bool, bool) {
	e, ok := c.Entry(d)
	return e.HasNotes, ok
}

func (c *Cache) HasDuplicateCriticalCode(d generic.Date) (bool, bool) {
	e, ok := c.Entry(d)
	return e.HasDuplicateCriticalCode, ok
}

// Month returns the cached entries of a month in date order; missing dates
// are skipped.
func (c *Cache) Month(year int, month time.Month) []Entry {
	var out []Entry
	for _, d := range generic.MonthPeriod(year, month).Days() {
		if e, ok := c.Entry(d); ok {
			out = append(out, e)
		}
	}
	return out
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.entries), Dirty: len(c.dirty), Hits: c.hits, Misses: c.misses}
}

// =============================================================================
// INVALIDATION
// =============================================================================

func (c *Cache) InvalidateDate(d generic.Date) {
	c.InvalidateRange(d, d)
}

// InvalidateRange drops [start, end] and marks the dates dirty.
func (c *Cache) InvalidateRange(start, end generic.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	n := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		delete(c.entries, d)
		c.dirty[d] = true
		c.touched[d] = c.gen
		n++
	}
	c.metrics.Invalidations.Add(float64(n))
	c.gauges()
}

// InvalidateAll drops every entry. Used after a special-code edit, when
// any cached date may have changed.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.touchedAll = c.gen
	for d := range c.entries {
		c.dirty[d] = true
	}
	c.metrics.Invalidations.Add(float64(len(c.entries)))
	c.entries = make(map[generic.Date]Entry)
	c.gauges()
}

// DirtyDates returns the dates waiting for refresh in order.
func (c *Cache) DirtyDates() []generic.Date {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]generic.Date, 0, len(c.dirty))
	for d := range c.dirty {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// RefreshDirty recomputes the dirty dates, one load per month touched.
// Only the dirty dates are replaced.
func (c *Cache) RefreshDirty(ctx context.Context) error {
	c.load.Lock()
	defer c.load.Unlock()

	since := c.generation()
	byMonth := make(map[generic.Date][]generic.Date)
	var months []generic.Date
	for _, d := range c.DirtyDates() {
		m := generic.StartOfMonth(d.Year(), d.Month())
		if _, ok := byMonth[m]; !ok {
			months = append(months, m)
		}
		byMonth[m] = append(byMonth[m], d)
	}

	for _, m := range months {
		if err := ctx.Err(); err != nil {
			return err
		}
		computed, err := c.compute(ctx, generic.MonthPeriod(m.Year(), m.Month()), nil)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", m.Format("2006-01"), err)
		}
		keep := make(map[generic.Date]Entry, len(byMonth[m]))
		for _, d := range byMonth[m] {
			keep[d] = computed[d]
		}
		c.publish(keep, since)
		c.log.WithFields(logrus.Fields{
			"month": m.Format("2006-01"),
			"dates": len(keep),
		}).Debug("Refreshed dirty dates")
	}
	return nil
}

// gauges must be called with mu held.
func (c *Cache) gauges() {
	c.metrics.Entries.Set(float64(len(c.entries)))
	c.metrics.Dirty.Set(float64(len(c.dirty)))
}
