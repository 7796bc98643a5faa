package domain

// Logical table names for the small whole-document tables. Each is stored
// as a single item and rewritten in full on every mutation, preserving the
// load/save-by-name contract the rest of the system is written against.
const (
	TableGroups        = "groups"
	TableUsers         = "users"
	TableHistory       = "sms_history"
	TableVerifications = "verifications"
	TableAutoDelete    = "autodelete"
	TableDailyStats    = "daily_stats"
)

// DedupHistoryCap bounds the dedup ledger; the oldest entries are evicted
// once the cap is exceeded.
const DedupHistoryCap = 1000

// GroupSet is the registry of group chats subscribed to OTP broadcasts.
type GroupSet struct {
	Groups []int64 `json:"groups"`
}

// Contains reports whether the chat id is already registered.
func (g *GroupSet) Contains(chatID int64) bool {
	for _, id := range g.Groups {
		if id == chatID {
			return true
		}
	}
	return false
}

// UserSet partitions known users into verified and unverified.
type UserSet struct {
	NotVerified []int64 `json:"not_verif"`
	Verified    []int64 `json:"verified"`
}

// IsVerified reports whether the user id is in the verified set.
func (u *UserSet) IsVerified(userID int64) bool {
	for _, id := range u.Verified {
		if id == userID {
			return true
		}
	}
	return false
}

// DedupHistory is the bounded append-only ledger of seen-message keys.
type DedupHistory struct {
	Entries []string `json:"entries"`
}

// VerificationChannel is one channel or group a user must join before the
// bot serves them.
type VerificationChannel struct {
	Link   string `json:"link"`
	ChatID string `json:"chat_id"` // "-100…" supergroup id, empty if link-only
}

// VerificationSet maps a display label to its channel.
type VerificationSet struct {
	Channels map[string]VerificationChannel `json:"channels"`
}

// AutoDeleteSettings controls the scheduled cleanup of group deliveries.
// Minutes == 0 means disabled.
type AutoDeleteSettings struct {
	Enabled bool `json:"enabled"`
	Minutes int  `json:"minutes"`
}
