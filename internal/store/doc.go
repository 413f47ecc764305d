// Package store is the local story store: durable, versioned persistence of
// story records that works without network access.
//
// Stories sits on a kv.Substrate and adds the record rules:
//   - Save checks key presence of description and photo, defaults
//     createdAt, and lets the substrate assign the id unless one is given
//   - GetAll returns records in substrate key order
//   - Delete of a missing id is a no-op
//
// # Errors
//
// Every failure is an *Error tagged VALIDATION, CONSTRAINT or STORAGE.
// Nothing is retried here; fallback between local and remote data belongs
// to the caller (see internal/feed).
//
// # Layout
//
// One database (default "taleweaver-db") at schema version 1 holding one
// collection, "stories", with an auto-generated integer key and no
// secondary indexes. Values are MessagePack documents.
package store
