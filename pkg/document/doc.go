// Package document is the authoritative in-memory model of a tenant's
// website: an ordered list of component instances per page, plus
// tenant-wide extras (global component data, website layout, theme backups).
//
// # Overview
//
// A [Document] owns the canonical tree and exposes the only legal mutation
// operations:
//
//   - [Document.Insert]: place an instance at an index, creating the page if needed
//   - [Document.Remove]: remove an instance, deleting the page when it empties
//   - [Document.Move]: reorder within a page as one atomic remove+insert
//   - [Document.Transfer]: move an instance to another page
//   - [Document.Update]: change an instance's variant, data or layout
//   - [Document.DeletePage]: drop a page (no-op when absent)
//
// After every operation the positions of a page's instances are exactly
// 0..N-1 in slice order. Every successful structural mutation records one
// entry in the [changelog.Recorder] the document was created with; failed
// operations record an error entry and leave the document unchanged.
//
// # Concurrency
//
// Writes replace page slices and instance values wholesale; nothing reachable
// from a previous read is modified in place. Readers therefore never observe a
// torn update. All methods are safe for concurrent use, although an editor
// session has a single writer.
//
// # Persistence
//
// [Document.Snapshot] and [FromSnapshot] convert to and from the persisted
// [Snapshot] form. Pages are never empty in a snapshot: a page that loses its
// last instance is recorded in [Document.PendingDeletes] so the next save can
// ask the persistence gateway to remove it.
package document
