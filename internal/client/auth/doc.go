// Package auth holds the client's single view of the signed-in user.
//
// A Store follows the backend's auth-event stream: every event replaces the
// session, and when the session carries a user a profile fetch is queued to
// a worker goroutine. Fetch results from superseded events are dropped. The
// derived State is Authenticated only when both a session and its profile
// are present.
//
// Bookmarks and profile edits are written remotely first and applied to the
// local view only when the remote write succeeded.
package auth
