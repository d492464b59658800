package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clientdash/internal/source"
)

func TestKeywordTrackShiftsRanks(t *testing.T) {
	gdb := newTestDB(t)
	website := seedWebsite(t, gdb, "https://example.com")
	svc := NewKeywordService(gdb).WithClock(fixedClock("2024-03-01T00:00:00Z"))
	ctx := context.Background()

	first, err := svc.Track(ctx, KeywordInput{WebsiteID: website.ID, Keyword: "seo audit", Rank: intPtr(8), SearchVolume: 1200})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if first.PreviousRank != nil || *first.CurrentRank != 8 || first.MetricDate != "2024-03-01" || first.Source != "manual" {
		t.Fatalf("unexpected first keyword: %+v", first)
	}

	second, err := svc.Track(ctx, KeywordInput{WebsiteID: website.ID, Keyword: "seo audit", Rank: intPtr(3), MetricDate: "2024-03-02"})
	if err != nil {
		t.Fatalf("track again: %v", err)
	}
	if second.ID != first.ID || *second.PreviousRank != 8 || *second.CurrentRank != 3 {
		t.Fatalf("unexpected second keyword: %+v", second)
	}

	retried, err := svc.Track(ctx, KeywordInput{WebsiteID: website.ID, Keyword: "seo audit", Rank: intPtr(3), MetricDate: "2024-03-02"})
	if err != nil {
		t.Fatalf("same-day re-report: %v", err)
	}
	if *retried.PreviousRank != 8 || *retried.CurrentRank != 3 {
		t.Fatalf("same-day re-report must keep previous rank 8, got previous=%d current=%d", *retried.PreviousRank, *retried.CurrentRank)
	}

	if _, err := svc.Track(ctx, KeywordInput{WebsiteID: website.ID, Keyword: "seo audit", Rank: intPtr(5), MetricDate: "2024-03-01"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a stale report, got %v", err)
	}

	list, err := svc.List(ctx, website.ID, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one keyword, got %d (%v)", len(list), err)
	}

	if _, err := svc.Track(ctx, KeywordInput{WebsiteID: website.ID, Keyword: "x", Rank: intPtr(0)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Track(ctx, KeywordInput{WebsiteID: website.ID, Keyword: "x", MetricDate: "03/01/2024"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for date, got %v", err)
	}
}

func TestCitationRecordValidation(t *testing.T) {
	svc := NewCitationService(newTestDB(t))
	ctx := context.Background()

	cases := []CitationInput{
		{Provider: "google_search_console", SiteURL: "example.com", EventType: "mention"},
		{Provider: "", SiteURL: "example.com", EventType: "mention"},
		{Provider: "custom", SiteURL: "example.com", EventType: "mention"},
		{Provider: "openai", SiteURL: "", EventType: "mention"},
		{Provider: "openai", SiteURL: "example.com", EventType: "share"},
		{Provider: "openai", SiteURL: "example.com", EventType: "citation", RankingScore: floatPtr(101)},
	}
	for i, input := range cases {
		if _, err := svc.Record(ctx, input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCitationEventsWindow(t *testing.T) {
	svc := NewCitationService(newTestDB(t)).WithClock(fixedClock("2024-01-31T09:00:00Z"))
	ctx := context.Background()

	inputs := []CitationInput{
		{Provider: "openai", SiteURL: "https://www.example.com", Query: "q1", EventType: "citation"},
		{Provider: "openai", SiteURL: "example.com", Query: "q2", EventType: "mention", OccurredAt: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
		{Provider: "gemini", SiteURL: "example.com", Query: "q3", EventType: "mention"},
		{Provider: "openai", SiteURL: "other.com", Query: "q4", EventType: "mention"},
	}
	for _, input := range inputs {
		if _, err := svc.Record(ctx, input); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	w := source.TrailingWindow(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 30)
	events, err := svc.CitationEvents(ctx, source.TypeOpenAI, "example.com", w)
	if err != nil {
		t.Fatalf("citation events: %v", err)
	}
	if len(events) != 1 || events[0].Query != "q1" || events[0].Date != "2024-01-31" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestWebsiteServiceValidation(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewWebsiteService(gdb)
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, ClientInput{CompanyName: "Globex", SubscriptionTier: "Premium"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if client.SubscriptionTier != "premium" {
		t.Fatalf("expected normalized tier, got %s", client.SubscriptionTier)
	}

	if _, err := svc.CreateWebsite(ctx, WebsiteInput{ClientID: client.ID, URL: "example.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bare host, got %v", err)
	}
	if _, err := svc.CreateWebsite(ctx, WebsiteInput{ClientID: "nobody", URL: "https://example.com"}); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}

	website, err := svc.CreateWebsite(ctx, WebsiteInput{ClientID: client.ID, URL: "https://globex.example"})
	if err != nil {
		t.Fatalf("create website: %v", err)
	}
	if website.Name != "globex.example" {
		t.Fatalf("expected host as default name, got %s", website.Name)
	}

	list, err := svc.ListWebsites(ctx, client.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one website, got %d (%v)", len(list), err)
	}
	if _, err := svc.GetWebsite(ctx, "missing"); !errors.Is(err, ErrWebsiteNotFound) {
		t.Fatalf("expected ErrWebsiteNotFound, got %v", err)
	}
}
