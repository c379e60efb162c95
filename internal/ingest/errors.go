// Package ingest adapts spreadsheet rows, event pages and remote images into
// event drafts.
package ingest

import "errors"

var (
	// ErrPageFetch indicates the event page could not be fetched or the URL is unusable.
	ErrPageFetch = errors.New("page fetch failed")
	// ErrUnreadableInput indicates the bulk input cannot be read at all.
	ErrUnreadableInput = errors.New("unreadable input")
)
