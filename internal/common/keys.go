package common

// Keys used in the local durable key-value store.
const (
	DownloadedNotesKey = "downloadedNotes"
	RememberedEmailKey = "rememberedEmail"
	LastEmailSentKey   = "lastEmailSent"
	ChatHistoryKey     = "ai-chat-history"
	SessionKey         = "auth-session"

	// StorageProbeKey is written and removed to check that the store is usable.
	StorageProbeKey = "storage_test"
)
