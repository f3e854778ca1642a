// Package downloads turns remote note files into local, offline-available
// copies. It owns three pieces of state:
//
//   - the per-user downloaded-note index, persisted in the local store under
//     downloadedNotes_<userID> (or downloadedNotes when no user is known);
//   - an in-memory blob cache used for preview and share, with sliding
//     expiration and a capacity bound, whose entries own an object URL that
//     is revoked exactly once when the entry leaves the cache;
//   - a periodic sweep that drops cache entries idle for longer than the
//     expiration window.
//
// Index helpers never fail loudly: unreadable or corrupt data reads as an
// empty index and write failures are reported as false. Downloads return an
// error that Classify and Hint turn into a user-facing remediation message.
package downloads
