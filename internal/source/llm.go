package source

import (
	"context"
	"fmt"
	"strings"
)

const (
	// LLMModeMonitoring aggregates webhook-fed citation events.
	LLMModeMonitoring = "monitoring"
	// LLMModeSimulated generates deterministic sample data.
	LLMModeSimulated = "simulated"
)

// LLMTarget identifies what an LLM adapter reports on. Adapters see the site
// address, never the website identifier.
type LLMTarget struct {
	Provider    Type
	SiteURL     string
	Credentials LLMCredentials
}

// LLMMetricRow is one provider/day aggregate.
type LLMMetricRow struct {
	Provider      Type
	Date          string
	Mentions      int64
	Citations     int64
	ClickThroughs int64
	RankingScore  float64
}

// LLMQueryRow is one provider/query/day aggregate.
type LLMQueryRow struct {
	Provider  Type
	Query     string
	Date      string
	Mentions  int64
	Citations int64
}

// LLMFetcher is the LLM side of the adapter contract. Values stay within the
// documented ranges: non-negative counts, ranking score in [0,100].
type LLMFetcher interface {
	FetchMetrics(ctx context.Context, target LLMTarget, w Window) ([]LLMMetricRow, error)
	FetchQueries(ctx context.Context, target LLMTarget, w Window) ([]LLMQueryRow, error)
}

// NewLLMFetcher picks the implementation for mode. The monitoring mode needs
// a reader for stored citation events.
func NewLLMFetcher(mode string, reader CitationEventReader) (LLMFetcher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", LLMModeMonitoring:
		if reader == nil {
			return nil, fmt.Errorf("monitoring llm adapter requires a citation event reader")
		}
		return NewMonitoredLLM(reader), nil
	case LLMModeSimulated:
		return NewSimulatedLLM(), nil
	default:
		return nil, fmt.Errorf("unknown llm adapter mode %q", mode)
	}
}

// ClampScore bounds a ranking score to [0, 100].
func ClampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
