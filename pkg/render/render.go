// Package render abstracts the browser automation layer. The harvester talks
// to rendered pages only through these interfaces, which keeps the extraction
// and stabilization logic testable without a real browser.
package render

import "context"

// Page is one rendered browser tab.
type Page interface {
	// Load navigates to the URL and waits for the initial load event.
	Load(ctx context.Context, url string) error
	// HTML returns the current serialized DOM.
	HTML() (string, error)
	// ScrollToBottom scrolls the page to its full height.
	ScrollToBottom() error
	// FindAndClick clicks the first visible element matching any of the
	// given selectors. Returns true if something was clicked.
	FindAndClick(selectors []string) (bool, error)
	// WaitForBody blocks until the document body exists or the timeout
	// elapses.
	WaitForBody(ctx context.Context) error
	// Close releases the tab.
	Close() error
}

// Browser opens pages. Implementations own the underlying driver process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
