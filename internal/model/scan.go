package model

import "time"

// Scan is a single logged QR code. Rows are immutable once created.
type Scan struct {
	ID        int64     `json:"id"`
	Code      int       `json:"code"`
	OwnerID   *string   `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedScope selects between the shared feed and a single user's own scans.
type FeedScope string

const (
	FeedScopeGlobal FeedScope = "global"
	FeedScopeOwn    FeedScope = "own"
)

func (s FeedScope) Valid() bool {
	return s == FeedScopeGlobal || s == FeedScopeOwn
}
