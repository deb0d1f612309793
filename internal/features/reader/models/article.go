package models

import (
	"time"
)

// ArticleState is the read state of an article
type ArticleState string

const (
	StateUnread ArticleState = "unread"
	StateRead   ArticleState = "read"
)

// UnknownFeedTitle is shown for articles whose feed has been removed
const UnknownFeedTitle = "Unknown feed"

// Article represents a deduplicated entry with read/starred state and tags
type Article struct {
	ID          int64        `json:"id"`
	FeedID      int64        `json:"feed_id"`
	FeedTitle   string       `json:"feed_title"`
	GUID        string       `json:"guid,omitempty"`
	Link        string       `json:"link"`
	IdentityKey string       `json:"-"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Author      string       `json:"author,omitempty"`
	PublishedAt time.Time    `json:"published_at"`
	FetchedAt   time.Time    `json:"fetched_at"`
	ReadAt      *time.Time   `json:"read_at"`
	State       ArticleState `json:"state"`
	Starred     bool         `json:"starred"`
	Tags        []string     `json:"tags"`
}

// IdentityKey returns the deduplication key of an entry: the guid when
// present, otherwise the link. The prefix keeps one entry's guid from
// matching another entry's link.
func IdentityKey(guid, link string) string {
	switch {
	case guid != "":
		return "guid:" + guid
	case link != "":
		return "link:" + link
	default:
		return ""
	}
}

// Listing selects one of the three article views
type Listing string

const (
	ListingUnread  Listing = "unread"
	ListingRead    Listing = "read"
	ListingStarred Listing = "starred"
)

// ParseListing validates a listing name
func ParseListing(name string) (Listing, bool) {
	switch Listing(name) {
	case ListingUnread, ListingRead, ListingStarred:
		return Listing(name), true
	default:
		return "", false
	}
}

// ArticleQuery filters articles. Zero values mean "no filter".
type ArticleQuery struct {
	State    ArticleState
	Starred  *bool
	Tag      string
	Keywords []string
	FeedID   int64
	Limit    int
}

// QueryFor returns the query backing a listing
func QueryFor(listing Listing) ArticleQuery {
	switch listing {
	case ListingRead:
		return ArticleQuery{State: StateRead}
	case ListingStarred:
		starred := true
		return ArticleQuery{Starred: &starred}
	default:
		return ArticleQuery{State: StateUnread}
	}
}

// ArticleStats holds article counts per state
type ArticleStats struct {
	Unread  int `json:"unread"`
	Read    int `json:"read"`
	Starred int `json:"starred"`
}

// ArticleList is a listing together with the stats computed alongside it
type ArticleList struct {
	Articles []Article    `json:"articles"`
	Stats    ArticleStats `json:"stats"`
}
