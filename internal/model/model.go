// Package model holds the domain types shared by the storage layer and the
// bot handlers. All counters are scoped per chat: the same user has
// independent stats in every group.
package model

// UserIdentity is the chat-scoped identity captured from an update.
type UserIdentity struct {
	ChatID      int64
	UserID      int64
	Username    string // without the @, empty if the account has none
	DisplayName string
}

// UserStats is one user's accumulated engagement in a chat.
type UserStats struct {
	ChatID      int64
	UserID      int64
	Username    string
	DisplayName string
	Circles     int
	Reactions   int
	Points      int
}

// TopRow is one line of a published ranking.
type TopRow struct {
	Rank        int
	UserID      int64
	Username    string
	DisplayName string
	Circles     int
	Reactions   int
	Points      int
}

// ChatState tracks per-chat bookkeeping for the rating scheduler.
type ChatState struct {
	ChatID         int64
	LastCircleTS   int64
	LastRatingTS   int64
	RatingsEnabled bool
	Language       string
}

// CircleMessage records a posted circle (video note) so that repeated
// delivery of the same update never double-counts it.
type CircleMessage struct {
	ChatID      int64
	MessageID   int
	AuthorID    int64
	CreatedAtTS int64
}

// Zero-user selection criteria for the callout message.
const (
	ZeroCriteriaPoints  = "points"
	ZeroCriteriaCircles = "circles"
)
