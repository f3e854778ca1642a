// Package client defines the contract the notekeeper client consumes from its
// remote backend (authentication with an event stream, the profile table and
// hierarchical object storage) together with the sentinel errors backends
// return and the bootstrap of the local SQLite database.
//
// Two implementations exist: internal/backend talks to Postgres and S3, and
// internal/backend/inmemory keeps everything in process for tests and demos.
//
// Auth-state events are delivered one at a time, in emission order, on a
// goroutine owned by the backend. Callbacks must not block for long; the auth
// store hands them to its own worker.
package client
