// Package analytics computes read-only reports over stored alert history:
// aggregate statistics, dense trend time series, and frequency/correlation
// based pattern detection.
//
// The analyzer holds no bus subscription; it queries alert-kind events from
// an event store on demand. Each query method caches its last result per
// call parameters with a fixed TTL, so a cache hit returns the prior result
// unchanged even if new alerts have since been stored. Callers needing
// freshness wait out the TTL or call ClearCache.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	alerterrors "github.com/randalmurphal/alertflow/pkg/alertflow/errors"
	"github.com/randalmurphal/alertflow/pkg/alertflow/event"
	"github.com/randalmurphal/alertflow/pkg/alertflow/rule"
	"github.com/randalmurphal/alertflow/pkg/alertflow/store"
)

// TimeRange selects the report window. The string values are wire-visible
// and appear verbatim in report labels.
type TimeRange string

const (
	RangeHour  TimeRange = "1h"
	RangeDay   TimeRange = "24h"
	RangeWeek  TimeRange = "7d"
	RangeMonth TimeRange = "30d"
)

// Ranges lists every valid time range.
var Ranges = []TimeRange{RangeHour, RangeDay, RangeWeek, RangeMonth}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	switch r {
	case RangeHour:
		return time.Hour
	case RangeDay:
		return 24 * time.Hour
	case RangeWeek:
		return 7 * 24 * time.Hour
	case RangeMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Interval returns the trend bucket width for the range.
func (r TimeRange) Interval() time.Duration {
	switch r {
	case RangeHour:
		return time.Minute
	case RangeDay:
		return time.Hour
	case RangeWeek:
		return 6 * time.Hour
	case RangeMonth:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether r is a known range.
func (r TimeRange) Valid() bool {
	return r.Duration() > 0
}

// Stats aggregates alert counts over a time range. Recomputed per query,
// never incrementally updated.
type Stats struct {
	TotalCount   int
	LevelCounts  map[rule.Level]int
	RuleCounts   map[string]int
	SourceCounts map[string]int

	// TimeDistribution is an hour-bucketed histogram keyed
	// "2006-01-02 15:00".
	TimeDistribution map[string]int
}

// Trend is a dense time series of alert counts. Counts, LevelSeries and the
// bucket-local RuleSeries values align with Timestamps by index.
type Trend struct {
	Timestamps  []time.Time
	Counts      []int
	LevelSeries map[rule.Level][]int

	// RuleSeries accumulates one count per bucket in which the rule
	// appears, so a rule's series is as long as the number of buckets that
	// saw it.
	RuleSeries map[string][]int
}

// Pattern is a recurring (rule, source) alert group detected over the last
// 24 hours.
type Pattern struct {
	RuleName string
	Source   string
	Level    rule.Level

	// Frequency is alerts per hour.
	Frequency float64

	// AvgInterval is the mean spacing between consecutive alerts, zero
	// when the group has fewer than two.
	AvgInterval time.Duration

	// CorrelationScore in [0,1] measures timing regularity and level
	// consistency.
	CorrelationScore float64
}

// NameCount is a (name, count) report entry.
type NameCount struct {
	Name  string
	Count int
}

// Config configures the analyzer.
type Config struct {
	// CacheTTL is how long query results stay cached. Default: 300s.
	CacheTTL time.Duration

	// Logger for degraded-read diagnostics. Nil disables logging.
	Logger *slog.Logger
}

type cacheEntry[T any] struct {
	at    time.Time
	value T
}

type patternKey struct {
	minFrequency   float64
	minCorrelation float64
}

// Analytics computes alert reports from an event store.
type Analytics struct {
	store  store.EventStore
	ttl    time.Duration
	logger *slog.Logger

	mu           sync.Mutex
	statsCache   map[TimeRange]cacheEntry[*Stats]
	trendCache   map[TimeRange]cacheEntry[*Trend]
	patternCache map[patternKey]cacheEntry[[]*Pattern]
}

// New creates an analyzer over the given store.
func New(st store.EventStore, cfg Config) *Analytics {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 300 * time.Second
	}
	return &Analytics{
		store:        st,
		ttl:          cfg.CacheTTL,
		logger:       cfg.Logger,
		statsCache:   make(map[TimeRange]cacheEntry[*Stats]),
		trendCache:   make(map[TimeRange]cacheEntry[*Trend]),
		patternCache: make(map[patternKey]cacheEntry[[]*Pattern]),
	}
}

// ClearCache drops every cached result, forcing the next queries to
// recompute from the store.
func (a *Analytics) ClearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statsCache = make(map[TimeRange]cacheEntry[*Stats])
	a.trendCache = make(map[TimeRange]cacheEntry[*Trend])
	a.patternCache = make(map[patternKey]cacheEntry[[]*Pattern])
}

// Stats returns aggregate alert counts for the range.
func (a *Analytics) Stats(ctx context.Context, r TimeRange) (*Stats, error) {
	if !r.Valid() {
		return nil, &alerterrors.ConfigError{Field: "range", Message: "unknown time range: " + string(r)}
	}

	a.mu.Lock()
	if entry, ok := a.statsCache[r]; ok && time.Since(entry.at) < a.ttl {
		a.mu.Unlock()
		return entry.value, nil
	}
	a.mu.Unlock()

	end := time.Now()
	start := end.Add(-r.Duration())
	alerts := a.fetchAlerts(ctx, start, end)

	stats := &Stats{
		TotalCount:       len(alerts),
		LevelCounts:      make(map[rule.Level]int),
		RuleCounts:       make(map[string]int),
		SourceCounts:     make(map[string]int),
		TimeDistribution: make(map[string]int),
	}

	for _, alert := range alerts {
		stats.LevelCounts[alert.Level]++
		stats.RuleCounts[alert.RuleName]++
		stats.SourceCounts[alert.Source]++
		stats.TimeDistribution[alert.Timestamp.Format("2006-01-02 15:00")]++
	}

	a.mu.Lock()
	a.statsCache[r] = cacheEntry[*Stats]{at: time.Now(), value: stats}
	a.mu.Unlock()

	return stats, nil
}

// Trend returns a dense fixed-step time series for the range. Every step
// from range start to now produces one value, zero-filled where no alerts
// fall.
func (a *Analytics) Trend(ctx context.Context, r TimeRange) (*Trend, error) {
	if !r.Valid() {
		return nil, &alerterrors.ConfigError{Field: "range", Message: "unknown time range: " + string(r)}
	}

	a.mu.Lock()
	if entry, ok := a.trendCache[r]; ok && time.Since(entry.at) < a.ttl {
		a.mu.Unlock()
		return entry.value, nil
	}
	a.mu.Unlock()

	end := time.Now()
	start := end.Add(-r.Duration())
	alerts := a.fetchAlerts(ctx, start, end)

	interval := r.Interval()
	intervalSec := int64(interval / time.Second)

	buckets := make(map[int64][]*rule.Alert)
	for _, alert := range alerts {
		b := alert.Timestamp.Unix() / intervalSec * intervalSec
		buckets[b] = append(buckets[b], alert)
	}

	trend := &Trend{
		LevelSeries: make(map[rule.Level][]int),
		RuleSeries:  make(map[string][]int),
	}
	levels := []rule.Level{rule.LevelInfo, rule.LevelWarning, rule.LevelError, rule.LevelCritical}

	for t := start; !t.After(end); t = t.Add(interval) {
		b := t.Unix() / intervalSec * intervalSec
		inBucket := buckets[b]

		trend.Timestamps = append(trend.Timestamps, time.Unix(b, 0))
		trend.Counts = append(trend.Counts, len(inBucket))

		for _, level := range levels {
			n := 0
			for _, alert := range inBucket {
				if alert.Level == level {
					n++
				}
			}
			trend.LevelSeries[level] = append(trend.LevelSeries[level], n)
		}

		seen := make(map[string]int)
		for _, alert := range inBucket {
			seen[alert.RuleName]++
		}
		for name, n := range seen {
			trend.RuleSeries[name] = append(trend.RuleSeries[name], n)
		}
	}

	a.mu.Lock()
	a.trendCache[r] = cacheEntry[*Trend]{at: time.Now(), value: trend}
	a.mu.Unlock()

	return trend, nil
}

// Patterns detects recurring (rule, source) groups over the last 24 hours.
// Groups below minFrequency (alerts/hour) or minCorrelation are dropped;
// results are sorted descending by frequency.
func (a *Analytics) Patterns(ctx context.Context, minFrequency, minCorrelation float64) []*Pattern {
	key := patternKey{minFrequency: minFrequency, minCorrelation: minCorrelation}

	a.mu.Lock()
	if entry, ok := a.patternCache[key]; ok && time.Since(entry.at) < a.ttl {
		a.mu.Unlock()
		return entry.value
	}
	a.mu.Unlock()

	end := time.Now()
	start := end.Add(-24 * time.Hour)
	alerts := a.fetchAlerts(ctx, start, end)

	type groupKey struct {
		rule   string
		source string
	}
	groups := make(map[groupKey][]*rule.Alert)
	var order []groupKey
	for _, alert := range alerts {
		k := groupKey{rule: alert.RuleName, source: alert.Source}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], alert)
	}

	hours := end.Sub(start).Hours()
	patterns := make([]*Pattern, 0)
	for _, k := range order {
		group := groups[k]

		frequency := float64(len(group)) / hours
		if frequency < minFrequency {
			continue
		}

		sorted := make([]*rule.Alert, len(group))
		copy(sorted, group)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		avgInterval := time.Duration(0)
		if len(sorted) > 1 {
			total := sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp)
			avgInterval = total / time.Duration(len(sorted)-1)
		}

		score := correlationScore(sorted)
		if score < minCorrelation {
			continue
		}

		patterns = append(patterns, &Pattern{
			RuleName:         k.rule,
			Source:           k.source,
			Level:            group[0].Level,
			Frequency:        frequency,
			AvgInterval:      avgInterval,
			CorrelationScore: score,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Frequency > patterns[j].Frequency
	})

	a.mu.Lock()
	a.patternCache[key] = cacheEntry[[]*Pattern]{at: time.Now(), value: patterns}
	a.mu.Unlock()

	return patterns
}

// TopSources returns the sources with the most alerts in the range,
// descending, truncated to limit.
func (a *Analytics) TopSources(ctx context.Context, r TimeRange, limit int) ([]NameCount, error) {
	stats, err := a.Stats(ctx, r)
	if err != nil {
		return nil, err
	}
	return topCounts(stats.SourceCounts, limit), nil
}

// TopRules returns the rules that fired most in the range, descending,
// truncated to limit.
func (a *Analytics) TopRules(ctx context.Context, r TimeRange, limit int) ([]NameCount, error) {
	stats, err := a.Stats(ctx, r)
	if err != nil {
		return nil, err
	}
	return topCounts(stats.RuleCounts, limit), nil
}

func topCounts(counts map[string]int, limit int) []NameCount {
	entries := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, NameCount{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// fetchAlerts reads alert history from the store. A read failure degrades
// to an empty result: reports lose data, queries never crash.
func (a *Analytics) fetchAlerts(ctx context.Context, start, end time.Time) []*rule.Alert {
	events, err := a.store.GetEvents(ctx, store.Query{
		Start: start,
		End:   end,
		Kinds: []event.Kind{event.KindAlert},
	})
	if err != nil {
		if a.logger != nil {
			perr := &alerterrors.PersistenceError{Op: "query", Err: err}
			a.logger.Warn("alert history read failed, reporting empty",
				slog.String("error", perr.Error()))
		}
		return nil
	}

	alerts := make([]*rule.Alert, 0, len(events))
	for _, evt := range events {
		if alert, ok := rule.AlertFromEvent(evt); ok {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// correlationScore measures how regular (in timing) and how level-consistent
// a chronologically sorted group of alerts is.
//
// interval_score = 1/(1+variance) over consecutive intervals, so perfectly
// regular spacing scores 1.0 and irregular spacing approaches 0.
// level_score is 1.0 when the group shares one level, else 0.5. The final
// score is the mean of the two.
func correlationScore(sorted []*rule.Alert) float64 {
	if len(sorted) < 2 {
		return 0
	}

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Seconds())
	}

	avg := 0.0
	for _, v := range intervals {
		avg += v
	}
	avg /= float64(len(intervals))

	variance := 0.0
	for _, v := range intervals {
		variance += (v - avg) * (v - avg)
	}
	variance /= float64(len(intervals))

	intervalScore := 1.0 / (1.0 + variance)

	levelScore := 1.0
	for _, alert := range sorted[1:] {
		if alert.Level != sorted[0].Level {
			levelScore = 0.5
			break
		}
	}

	return (intervalScore + levelScore) / 2.0
}
