package models

import (
	"time"
)

// ParsedFeed represents a fetched and parsed feed document
type ParsedFeed struct {
	Title   string           `json:"title"`
	Link    string           `json:"link"`
	Entries []CandidateEntry `json:"entries"`
}

// CandidateEntry is a single parsed item, not yet confirmed as new
type CandidateEntry struct {
	GUID        string     `json:"guid,omitempty"`
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at"`
}

// IdentityKey returns the key the entry is deduplicated on
func (c CandidateEntry) IdentityKey() string {
	return IdentityKey(c.GUID, c.Link)
}

// IngestResult reports how many candidates were stored or skipped
type IngestResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// FeedResult is the outcome of refreshing a single feed
type FeedResult struct {
	FeedID   int64  `json:"feed_id"`
	URL      string `json:"url"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
	InFlight bool   `json:"in_flight,omitempty"`
}

// FetchSummary aggregates a fetch-all cycle
type FetchSummary struct {
	Total      int          `json:"total"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Inserted   int          `json:"inserted"`
	Duplicates int          `json:"duplicates"`
	Duration   string       `json:"duration"`
	Results    []FeedResult `json:"results"`
}

// FetcherConfig holds configuration for the fetcher service
type FetcherConfig struct {
	UserAgent            string        `json:"user_agent"`
	Timeout              time.Duration `json:"timeout"`
	MaxConcurrentFetches int           `json:"max_concurrent_fetches"`
	HostInterval         time.Duration `json:"host_interval"`
}
