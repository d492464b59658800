// Package source holds the adapters that pull raw SEO data from external
// providers. Adapters translate provider-native responses into row shapes and
// know nothing about websites, persistence or trend math.
package source

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Type enumerates the supported data-source kinds.
type Type string

const (
	TypeSearchConsole Type = "google_search_console"
	TypeOpenAI        Type = "openai"
	TypePerplexity    Type = "perplexity"
	TypeClaude        Type = "claude"
	TypeGemini        Type = "gemini"
	TypeCustom        Type = "custom"
)

var llmProviders = []Type{TypeOpenAI, TypePerplexity, TypeClaude, TypeGemini, TypeCustom}

var displayNames = map[Type]string{
	TypeSearchConsole: "Google Search Console",
	TypeOpenAI:        "OpenAI",
	TypePerplexity:    "Perplexity",
	TypeClaude:        "Claude (Anthropic)",
	TypeGemini:        "Google Gemini",
	TypeCustom:        "Custom Provider",
}

// ParseType converts a raw string to a Type. Empty input defaults to Search
// Console, matching the sync endpoint's default.
func ParseType(raw string) (Type, error) {
	value := Type(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return TypeSearchConsole, nil
	}
	if _, ok := displayNames[value]; ok {
		return value, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, raw)
}

// IsLLM reports whether t is one of the LLM citation providers.
func (t Type) IsLLM() bool {
	for _, p := range llmProviders {
		if p == t {
			return true
		}
	}
	return false
}

// DisplayName returns the label shown in the settings UI.
func (t Type) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// LLMProviders returns every LLM provider key in a stable order.
func LLMProviders() []Type {
	out := make([]Type, len(llmProviders))
	copy(out, llmProviders)
	return out
}

const dateLayout = "2006-01-02"

// Window is an inclusive range of UTC calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the window that ends yesterday (UTC) and spans days
// calendar days.
func TrailingWindow(now time.Time, days int) Window {
	if days < 1 {
		days = 1
	}
	today := truncateDay(now)
	end := today.AddDate(0, 0, -1)
	return Window{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// StartDate formats the first day of the window.
func (w Window) StartDate() string { return w.Start.UTC().Format(dateLayout) }

// EndDate formats the last day of the window.
func (w Window) EndDate() string { return w.End.UTC().Format(dateLayout) }

// Days lists every date in the window, oldest first.
func (w Window) Days() []string {
	start, end := truncateDay(w.Start), truncateDay(w.End)
	if end.Before(start) {
		return nil
	}
	days := make([]string, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dateLayout))
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SiteHost normalizes a website URL to the lowercase host used to key
// citation events ("https://www.Example.com/blog" -> "example.com").
func SiteHost(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("site url is empty")
	}
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("parse site url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("site url %q has no host", raw)
	}
	return strings.TrimPrefix(host, "www."), nil
}
