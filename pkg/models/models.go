package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the human-readable timestamp format used in every ledger.
const TimestampLayout = "2006-01-02 15:04:05"

// Now returns the current time formatted for ledger fields.
func Now() string {
	return time.Now().Format(TimestampLayout)
}

// RootDocument holds the core fields extracted from a timeline's root page.
// It is created once per run and never mutated afterwards.
type RootDocument struct {
	Name              string `json:"core_event_name"`
	LastUpdate        string `json:"update_time"`
	DeclaredItemCount int    `json:"sub_event_count"`
	HarvestedAt       string `json:"scrape_time"`
}

// IsEmpty reports whether extraction produced nothing usable. A root with all
// display fields empty aborts the pipeline.
func (r RootDocument) IsEmpty() bool {
	return r.Name == "" && r.LastUpdate == "" && r.DeclaredItemCount == 0
}

// SubEvent is one entry of the root timeline. IDs are sequential and stable
// within a single run; ordering reflects source display order.
type SubEvent struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Time    string `json:"time"`
	Summary string `json:"summary"`
	Author  string `json:"author"`
}

// SubEventID formats the stable per-run identifier for the given 1-based index.
func SubEventID(index int) string {
	return fmt.Sprintf("event_%d", index)
}

// DedupKey identifies a sub-event for source-side deduplication.
func (e SubEvent) DedupKey() string {
	return e.Title + "\x1f" + e.Time
}

// Comment is one user comment under a sub-event page. EventID is a weak
// back-reference to SubEvent.ID, resolved by lookup at combine time.
// Comments are append-only; never mutated after creation.
type Comment struct {
	EventTitle  string `json:"event_title"`
	EventID     string `json:"event_id"`
	EventURL    string `json:"event_url"`
	EventTime   string `json:"event_time"`
	Index       int    `json:"comment_index"`
	AuthorID    string `json:"user_id"`
	Time        string `json:"comment_time"`
	Content     string `json:"comment_content"`
	Location    string `json:"user_location"`
	LikeCount   int    `json:"like_count"`
	HarvestedAt string `json:"scrape_time"`
}

// IsPlaceholder reports whether this comment is the row-alignment placeholder
// emitted for sub-events whose pages yielded no comments.
func (c Comment) IsPlaceholder() bool {
	return c.Index == 0 && c.Content == ""
}

// PlaceholderComment builds the single empty comment emitted for a sub-event
// with a link but zero extracted comments, preserving row-for-row alignment
// between the two ledgers.
func PlaceholderComment(ev SubEvent) Comment {
	return Comment{
		EventTitle:  ev.Title,
		EventID:     ev.ID,
		EventURL:    ev.Link,
		EventTime:   ev.Time,
		HarvestedAt: Now(),
	}
}

// Statistics are derived counts computed at combine time.
type Statistics struct {
	TotalSubEvents     int    `json:"total_sub_events"`
	TotalComments      int    `json:"total_comments"`
	EventsWithComments int    `json:"events_with_comments"`
	RootHarvestedAt    string `json:"level1_scrape_time"`
	CommentHarvestedAt string `json:"level2_scrape_time"`
}

// CombinedDataset is the read-only projection joining both ledgers. It is
// computed on demand and never independently mutated.
type CombinedDataset struct {
	Root       RootDocument `json:"core_event"`
	SubEvents  []SubEvent   `json:"sub_events"`
	Comments   []Comment    `json:"comments"`
	Statistics Statistics   `json:"statistics"`
}

// CandidateRecord is one discovery made by the identifier prober.
// Ledger entries are immutable once written.
type CandidateRecord struct {
	ID              int
	URL             string
	TitleNative     string
	TitleTranslated string
	UpdateDate      time.Time
	DiscoveredAt    time.Time
}
