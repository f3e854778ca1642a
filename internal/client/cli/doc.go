// Package cli provides the interactive NoteKeeper terminal client.
//
// It wires configuration, the local store, a backend (in-memory or
// Postgres + S3), the auth store, the downloads manager, the preview server,
// the AI assistant and the contact form behind a REPL. Protected commands
// wait for the auth store to settle and print an "authentication required"
// notice when nobody is signed in.
//
// Notes listed by notes, bookmarks or downloads can be referred to by their
// position in the last listing or by id.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
