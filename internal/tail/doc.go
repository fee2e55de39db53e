// Package tail runs the live log pipeline. A coordinator owns one tailer per
// started source; each tailer polls its source on an interval, drops the
// overlap with the previous fetch window, sanitizes and parses only the new
// lines, appends them to the source's rolling buffer, folds them into the
// metric snapshot, and signals subscribers through a coalescing notifier.
//
// Lines are parsed exactly once, at ingest. Views and filters operate on the
// parsed lines already in the buffer, so changing a filter or view mode never
// touches the parser.
package tail
