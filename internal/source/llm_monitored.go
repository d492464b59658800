package source

import (
	"cmp"
	"context"
	"slices"
)

// Citation event types reported by the monitoring layer.
const (
	EventMention      = "mention"
	EventCitation     = "citation"
	EventClickThrough = "click_through"
)

// CitationEvent is one monitoring observation for a site.
type CitationEvent struct {
	Query        string
	EventType    string
	Date         string
	RankingScore *float64
}

// CitationEventReader exposes stored webhook events to the monitoring adapter.
type CitationEventReader interface {
	CitationEvents(ctx context.Context, provider Type, siteHost string, w Window) ([]CitationEvent, error)
}

// MonitoredLLM reduces citation events reported by an external monitoring
// service into the common metric shape.
type MonitoredLLM struct {
	reader CitationEventReader
}

// NewMonitoredLLM wires the adapter to an event store.
func NewMonitoredLLM(reader CitationEventReader) *MonitoredLLM {
	return &MonitoredLLM{reader: reader}
}

type dayTally struct {
	mentions, citations, clicks int64
	scoreSum                    float64
	scoreCount                  int
}

// FetchMetrics emits one row per day that has at least one event.
func (m *MonitoredLLM) FetchMetrics(ctx context.Context, target LLMTarget, w Window) ([]LLMMetricRow, error) {
	events, err := m.events(ctx, target, w, "fetch metrics")
	if err != nil {
		return nil, err
	}

	tallies := make(map[string]*dayTally)
	for _, ev := range events {
		t, ok := tallies[ev.Date]
		if !ok {
			t = &dayTally{}
			tallies[ev.Date] = t
		}
		countEvent(ev.EventType, &t.mentions, &t.citations, &t.clicks)
		if ev.RankingScore != nil {
			t.scoreSum += ClampScore(*ev.RankingScore)
			t.scoreCount++
		}
	}

	rows := make([]LLMMetricRow, 0, len(tallies))
	for day, t := range tallies {
		row := LLMMetricRow{
			Provider:      target.Provider,
			Date:          day,
			Mentions:      t.mentions,
			Citations:     t.citations,
			ClickThroughs: t.clicks,
		}
		if t.scoreCount > 0 {
			row.RankingScore = ClampScore(t.scoreSum / float64(t.scoreCount))
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b LLMMetricRow) int { return cmp.Compare(a.Date, b.Date) })
	return rows, nil
}

// FetchQueries emits one row per (query, day); events without a query are
// skipped.
func (m *MonitoredLLM) FetchQueries(ctx context.Context, target LLMTarget, w Window) ([]LLMQueryRow, error) {
	events, err := m.events(ctx, target, w, "fetch queries")
	if err != nil {
		return nil, err
	}

	type key struct{ query, day string }
	tallies := make(map[key]*LLMQueryRow)
	for _, ev := range events {
		if ev.Query == "" {
			continue
		}
		k := key{ev.Query, ev.Date}
		row, ok := tallies[k]
		if !ok {
			row = &LLMQueryRow{Provider: target.Provider, Query: ev.Query, Date: ev.Date}
			tallies[k] = row
		}
		var clicks int64
		countEvent(ev.EventType, &row.Mentions, &row.Citations, &clicks)
	}

	rows := make([]LLMQueryRow, 0, len(tallies))
	for _, row := range tallies {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b LLMQueryRow) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	return rows, nil
}

func (m *MonitoredLLM) events(ctx context.Context, target LLMTarget, w Window, op string) ([]CitationEvent, error) {
	host, err := SiteHost(target.SiteURL)
	if err != nil {
		return nil, &ConfigError{Source: target.Provider, Field: "site_url", Reason: err.Error()}
	}
	events, err := m.reader.CitationEvents(ctx, target.Provider, host, w)
	if err != nil {
		return nil, &AdapterError{Source: target.Provider, Op: op, Err: err}
	}
	return events, nil
}

// countEvent: a citation is also a mention; a click-through counts only as a
// click-through.
func countEvent(eventType string, mentions, citations, clicks *int64) {
	switch eventType {
	case EventMention:
		*mentions++
	case EventCitation:
		*mentions++
		*citations++
	case EventClickThrough:
		*clicks++
	}
}
