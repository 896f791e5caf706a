// Package config provides configuration management for seek.
package config

// Default configuration values for seek.
const (
	// DefaultJournalBatch is the flush threshold for journal scans.
	DefaultJournalBatch = 1000

	// DefaultWalkBatch is the flush threshold for tree walks.
	DefaultWalkBatch = 5000

	// DefaultProgressEvery is how many flushed records separate progress events.
	DefaultProgressEvery = 1000

	// DefaultReservedPrefix marks directory names that walks never descend into.
	DefaultReservedPrefix = "$"

	// DefaultSearchLimit caps the number of rows a search returns.
	DefaultSearchLimit = 100

	// DefaultHistoryEntries is how many session entries the history keeps.
	DefaultHistoryEntries = 200

	// DefaultAPIAddr is the listen address for seek serve.
	DefaultAPIAddr = "127.0.0.1:7878"

	// CancelPolicyPublish promotes flushed batches into a snapshot on cancel.
	CancelPolicyPublish = "publish"

	// CancelPolicyDiscard deletes the staging artifact on cancel.
	CancelPolicyDiscard = "discard"
)

// DefaultSkipDirs are directory names never descended into, matched
// case-insensitively: recycle bins, shadow copy and restore storage, OS
// update staging and installer caches.
var DefaultSkipDirs = []string{
	"$Recycle.Bin",
	"RECYCLER",
	"System Volume Information",
	"$WINDOWS.~BT",
	"$Windows.~WS",
	"$WinREAgent",
	"$SysReset",
	"Config.Msi",
	"MSOCache",
	".Trashes",
	".Spotlight-V100",
	".fseventsd",
}
