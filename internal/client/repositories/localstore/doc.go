// Package localstore is the client's durable key-value store, the analogue of
// browser local storage. Values are opaque bytes; callers own the encoding.
//
// Get returns (nil, nil) for a missing key and Set is an upsert. The SQLite
// implementation persists across restarts; MemoryRepository does not.
package localstore
