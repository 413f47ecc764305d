// Package kv defines the persistence substrate the story store is built on:
// a named, versioned database holding collections of binary values under
// auto-incrementing integer keys.
//
// Every Substrate call is atomic. Auto-generated keys are never reused for
// the lifetime of the database, even after deletes. A Substrate does no
// retries; failures are returned as-is for the caller to classify.
//
// Implementations:
//   - Memory (this package): process-local, for tests and ephemeral runs
//   - sqlitekv: SQLite file via mattn/go-sqlite3
//   - rediskv: Redis via go-redis
package kv
