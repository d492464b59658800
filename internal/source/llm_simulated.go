package source

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
)

var sampleLLMQueries = []string{
	"best practices for web development",
	"how to optimize website performance",
	"SEO strategies for 2024",
	"modern web design trends",
	"content marketing tips",
}

// SimulatedLLM stands in for a real monitoring integration during development.
// Output is random-looking but fully determined by provider, site and date,
// so re-running a sync yields the same rows.
type SimulatedLLM struct{}

// NewSimulatedLLM returns the generator.
func NewSimulatedLLM() *SimulatedLLM {
	return &SimulatedLLM{}
}

// FetchMetrics emits one row per day in the window.
func (s *SimulatedLLM) FetchMetrics(ctx context.Context, target LLMTarget, w Window) ([]LLMMetricRow, error) {
	host, err := SiteHost(target.SiteURL)
	if err != nil {
		return nil, &ConfigError{Source: target.Provider, Field: "site_url", Reason: err.Error()}
	}

	days := w.Days()
	rows := make([]LLMMetricRow, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, &AdapterError{Source: target.Provider, Op: "fetch metrics", Err: err}
		}
		r := seededRand(string(target.Provider), host, day)
		citations := int64(r.IntN(50) + 10)
		rows = append(rows, LLMMetricRow{
			Provider:      target.Provider,
			Date:          day,
			Mentions:      int64(r.IntN(100) + 20),
			Citations:     citations,
			ClickThroughs: int64(float64(citations) * 0.3),
			RankingScore:  r.Float64()*40 + 60,
		})
	}
	return rows, nil
}

// FetchQueries emits the sample queries dated at the end of the window.
func (s *SimulatedLLM) FetchQueries(ctx context.Context, target LLMTarget, w Window) ([]LLMQueryRow, error) {
	host, err := SiteHost(target.SiteURL)
	if err != nil {
		return nil, &ConfigError{Source: target.Provider, Field: "site_url", Reason: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return nil, &AdapterError{Source: target.Provider, Op: "fetch queries", Err: err}
	}

	day := w.EndDate()
	rows := make([]LLMQueryRow, 0, len(sampleLLMQueries))
	for _, query := range sampleLLMQueries {
		r := seededRand(string(target.Provider), host, day, query)
		rows = append(rows, LLMQueryRow{
			Provider:  target.Provider,
			Query:     query,
			Date:      day,
			Mentions:  int64(r.IntN(20) + 1),
			Citations: int64(r.IntN(10) + 1),
		})
	}
	return rows, nil
}

func seededRand(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
