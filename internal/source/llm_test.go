package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedLLMDeterministic(t *testing.T) {
	sim := NewSimulatedLLM()
	target := LLMTarget{Provider: TypeOpenAI, SiteURL: "https://example.com"}
	w := testWindow()

	first, err := sim.FetchMetrics(context.Background(), target, w)
	require.NoError(t, err)
	second, err := sim.FetchMetrics(context.Background(), target, w)
	require.NoError(t, err)

	require.Len(t, first, 30)
	assert.Equal(t, first, second)

	for _, row := range first {
		assert.GreaterOrEqual(t, row.Mentions, int64(20))
		assert.Less(t, row.Mentions, int64(120))
		assert.GreaterOrEqual(t, row.Citations, int64(10))
		assert.Less(t, row.Citations, int64(60))
		assert.Equal(t, int64(float64(row.Citations)*0.3), row.ClickThroughs)
		assert.GreaterOrEqual(t, row.RankingScore, 60.0)
		assert.Less(t, row.RankingScore, 100.0)
	}
}

func TestSimulatedLLMVariesByProvider(t *testing.T) {
	sim := NewSimulatedLLM()
	w := testWindow()
	a, err := sim.FetchMetrics(context.Background(), LLMTarget{Provider: TypeOpenAI, SiteURL: "example.com"}, w)
	require.NoError(t, err)
	b, err := sim.FetchMetrics(context.Background(), LLMTarget{Provider: TypeClaude, SiteURL: "example.com"}, w)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSimulatedLLMQueries(t *testing.T) {
	rows, err := NewSimulatedLLM().FetchQueries(context.Background(), LLMTarget{Provider: TypePerplexity, SiteURL: "example.com"}, testWindow())
	require.NoError(t, err)
	require.Len(t, rows, len(sampleLLMQueries))
	for _, row := range rows {
		assert.Equal(t, "2024-01-31", row.Date)
		assert.True(t, row.Mentions >= 1 && row.Mentions <= 20)
		assert.True(t, row.Citations >= 1 && row.Citations <= 10)
	}
}

func TestSimulatedLLMRejectsMissingSite(t *testing.T) {
	_, err := NewSimulatedLLM().FetchMetrics(context.Background(), LLMTarget{Provider: TypeOpenAI}, testWindow())
	assert.True(t, errors.Is(err, ErrConfiguration))
}

type stubEventReader struct {
	events   []CitationEvent
	err      error
	host     string
	provider Type
}

func (s *stubEventReader) CitationEvents(_ context.Context, provider Type, siteHost string, _ Window) ([]CitationEvent, error) {
	s.provider = provider
	s.host = siteHost
	return s.events, s.err
}

func score(v float64) *float64 { return &v }

func TestMonitoredLLMAggregates(t *testing.T) {
	reader := &stubEventReader{events: []CitationEvent{
		{Query: "seo tips", EventType: EventMention, Date: "2024-01-30", RankingScore: score(80)},
		{Query: "seo tips", EventType: EventCitation, Date: "2024-01-30", RankingScore: score(120)},
		{Query: "", EventType: EventClickThrough, Date: "2024-01-30"},
		{Query: "seo audit", EventType: EventCitation, Date: "2024-01-29"},
	}}
	m := NewMonitoredLLM(reader)
	target := LLMTarget{Provider: TypeClaude, SiteURL: "https://www.example.com/"}

	metrics, err := m.FetchMetrics(context.Background(), target, testWindow())
	require.NoError(t, err)
	assert.Equal(t, "example.com", reader.host)
	assert.Equal(t, TypeClaude, reader.provider)

	require.Len(t, metrics, 2)
	assert.Equal(t, LLMMetricRow{Provider: TypeClaude, Date: "2024-01-29", Mentions: 1, Citations: 1}, metrics[0])
	day := metrics[1]
	assert.Equal(t, int64(2), day.Mentions)
	assert.Equal(t, int64(1), day.Citations)
	assert.Equal(t, int64(1), day.ClickThroughs)
	assert.InDelta(t, 90.0, day.RankingScore, 1e-9)

	queries, err := m.FetchQueries(context.Background(), target, testWindow())
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "seo audit", queries[0].Query)
	assert.Equal(t, LLMQueryRow{Provider: TypeClaude, Query: "seo tips", Date: "2024-01-30", Mentions: 2, Citations: 1}, queries[1])
}

func TestMonitoredLLMReaderError(t *testing.T) {
	m := NewMonitoredLLM(&stubEventReader{err: errors.New("db down")})
	_, err := m.FetchMetrics(context.Background(), LLMTarget{Provider: TypeGemini, SiteURL: "example.com"}, testWindow())

	var adapterErr *AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, TypeGemini, adapterErr.Source)
}

func TestNewLLMFetcher(t *testing.T) {
	f, err := NewLLMFetcher("simulated", nil)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedLLM{}, f)

	_, err = NewLLMFetcher("", nil)
	assert.Error(t, err)

	f, err = NewLLMFetcher("monitoring", &stubEventReader{})
	require.NoError(t, err)
	assert.IsType(t, &MonitoredLLM{}, f)

	_, err = NewLLMFetcher("psychic", nil)
	assert.Error(t, err)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-5))
	assert.Equal(t, 42.5, ClampScore(42.5))
	assert.Equal(t, 100.0, ClampScore(130))
}
