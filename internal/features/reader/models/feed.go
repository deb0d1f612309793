package models

import (
	"time"
)

// FetchStatus records the outcome of the most recent fetch of a feed
type FetchStatus string

const (
	FetchStatusNever   FetchStatus = ""
	FetchStatusSuccess FetchStatus = "success"
	FetchStatusFailure FetchStatus = "failure"
)

// Feed represents a subscribed feed source
type Feed struct {
	ID              int64       `json:"id"`
	URL             string      `json:"url"`
	Title           string      `json:"title"`
	SiteURL         string      `json:"site_url"`
	Tags            []string    `json:"tags"`
	LastFetchedAt   *time.Time  `json:"last_fetched_at"`
	LastFetchStatus FetchStatus `json:"last_fetch_status"`
	LastFetchError  string      `json:"last_fetch_error,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// FeedCreate represents the data needed to register a feed
type FeedCreate struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// Subscription is one entry of an imported subscription list
type Subscription struct {
	URL  string   `toml:"url"`
	Tags []string `toml:"tags"`
}

// SubscriptionList is the document accepted by the import command
type SubscriptionList struct {
	Feeds []Subscription `toml:"feed"`
}

// ImportResult summarises an import run
type ImportResult struct {
	Added    int      `json:"added"`
	Existing int      `json:"existing"`
	Failed   []string `json:"failed,omitempty"`
}
