package extract

import "regexp"

// SubEventContainerSelectors are the timeline entry containers, tried by
// most-matches-wins after stabilization.
var SubEventContainerSelectors = []string{
	"div.item",
	`div[class*="item"]`,
	`div[class*="event"]`,
	`li[class*="item"]`,
	`li[class*="event"]`,
	".timeline-item",
	".event-item",
	`section[class*="item"]`,
}

// CommentContainerSelectors are the comment card candidates, current markup
// first, picked by most matches. Older and alternate markup follows.
var CommentContainerSelectors = []string{
	"div.xcp-item",
	"div[data-reply-id]",
	"div.comment-item",
	"div.comment",
	"div.user-comment",
	`div[class*="comment"]`,
	`div[class*="reply"]`,
	`li[class*="comment"]`,
	`li[class*="reply"]`,
	`div[data-role="comment"]`,
	`div[data-type="comment"]`,
}

// CommentVocabulary matches text that signals a comment-bearing node. Used
// only when every structural selector comes up empty.
var CommentVocabulary = regexp.MustCompile(`用户|网友|评论`)

// LoadMoreSelectors locate the "load more" control on the timeline page.
var LoadMoreSelectors = []string{
	`button[class*="load"]`,
	`button[class*="more"]`,
	`a[class*="load"]`,
	`a[class*="more"]`,
	`div[class*="load-more"]`,
}

// Root page fields.
var (
	RootNameSpec   = FieldSpec{Name: "core_event_name", Candidates: []Candidate{{Selector: "title"}}}
	RootUpdateSpec = FieldSpec{Name: "update_time", Candidates: []Candidate{{Selector: "p.create-time"}}}
	RootCountSpec  = FieldSpec{Name: "sub_event_count", Candidates: []Candidate{{Selector: "span.count"}}}
)

// Sub-event fields, extracted relative to a timeline container.
var (
	SubEventTimeSpec    = FieldSpec{Name: "time", Candidates: []Candidate{{Selector: "span.time"}}}
	SubEventTitleSpec   = FieldSpec{Name: "title", Candidates: []Candidate{{Selector: "a.content-link"}}}
	SubEventAuthorSpec  = FieldSpec{Name: "author", Candidates: []Candidate{{Selector: "a.dynamic-container div.dynamic-author"}}}
	SubEventSummarySpec = FieldSpec{Name: "summary", Candidates: []Candidate{{Selector: "a.dynamic-container div.dynamic-content"}}}
)

// Comment fields, extracted relative to a comment container. Fallback floors
// keep boilerplate fragments from masquerading as user text.
var (
	CommentUserSpec = FieldSpec{Name: "user_id", Candidates: []Candidate{
		{Selector: "h5.user-bar-uname"},
		{Selector: `h5[class*="user"]`, Floor: 2},
		{Selector: `span[class*="user"]`, Floor: 2},
		{Selector: `div[class*="user"]`, Floor: 2},
		{Selector: `a[class*="user"]`, Floor: 2},
		{Selector: "strong", Floor: 2},
		{Selector: "b", Floor: 2},
	}}
	CommentTimeSpec = FieldSpec{Name: "comment_time", Candidates: []Candidate{
		{Selector: "span.time"},
		{Selector: `span[class*="time"]`},
		{Selector: `div[class*="time"]`},
		{Selector: `span[class*="date"]`},
		{Selector: `div[class*="date"]`},
		{Selector: "time"},
		{Selector: "[datetime]", Attr: "datetime"},
	}}
	CommentContentSpec = FieldSpec{Name: "comment_content", Candidates: []Candidate{
		{Selector: "span.type-text"},
		{Selector: `span[class*="text"]`, Floor: 5},
		{Selector: `div[class*="content"]`, Floor: 5},
		{Selector: `div[class*="text"]`, Floor: 5},
		{Selector: "p", Floor: 5},
		{Selector: `span[class*="comment"]`, Floor: 5},
		{Selector: `div[class*="comment"]`, Floor: 5},
	}}
	CommentLocationSpec = FieldSpec{Name: "user_location", Candidates: []Candidate{
		{Selector: "div.area"},
		{Selector: `div[class*="area"]`},
		{Selector: `span[class*="location"]`},
		{Selector: `div[class*="location"]`},
		{Selector: `span[class*="region"]`},
		{Selector: `div[class*="region"]`},
	}}
	CommentLikeSpec = FieldSpec{Name: "like_count", Candidates: []Candidate{
		{Selector: "span.like-text"},
		{Selector: `span[class*="like"]`},
		{Selector: `div[class*="like"]`},
		{Selector: `span[class*="thumb"]`},
		{Selector: `div[class*="thumb"]`},
		{Selector: `[class*="count"]`},
	}}
)

// CommentContentFallbackFloor guards the whole-container text fallback used
// when the content cascade finds nothing.
const CommentContentFallbackFloor = 10
