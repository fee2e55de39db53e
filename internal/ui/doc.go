// Package ui provides the Bubble Tea terminal interface for nodedeck.
//
// The interface has two views. The deck view lists every configured source
// with its tail state and headline metrics. The logs view shows one source's
// buffered lines through a viewport, either chronologically or grouped by
// consecutive level and module, with level filters and substring search
// applied to already-parsed lines.
//
// The model polls the coordinator on a tick and drains its coalesced update
// mailbox without blocking, so a burst of ingest cycles costs at most one
// re-render per tick.
package ui
