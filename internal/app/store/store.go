/*
Package store is the narrow data-access boundary the real-time core calls into.

The core never issues arbitrary queries: it persists finalized session results
and resolves relationship sets (parents, friends, guild mates) for derived
notification audiences, and nothing else. Postgres backs the production
implementation; tests substitute in-memory fakes.
*/
package store

import (
	"context"
	"time"
)

// RelationshipKind selects which related-user set to resolve.
type RelationshipKind string

const (
	// RelParent resolves the guardians of a child account.
	RelParent RelationshipKind = "parent"

	// RelFriend resolves accepted friendships.
	RelFriend RelationshipKind = "friend"

	// RelGuild resolves fellow guild members.
	RelGuild RelationshipKind = "guild"
)

// ParticipantResult is the final record of one participant in a completed
// session.
type ParticipantResult struct {
	UserID           string `json:"userId"`
	Role             string `json:"role"`
	Status           string `json:"status"`
	Score            int    `json:"score"`
	AnswersSubmitted int    `json:"answersSubmitted"`
	CorrectAnswers   int    `json:"correctAnswers"`
}

// SessionResult is the immutable outcome of a terminal session, persisted
// downstream once the in-memory state machine reaches completed or cancelled.
type SessionResult struct {
	SessionID   string
	JoinCode    string
	Kind        string
	State       string
	WinnerID    string
	Draw        bool
	Forfeit     bool
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	Participants []ParticipantResult
}

// Store is the data-access collaborator interface.
type Store interface {
	// PersistSessionResult writes a terminal session outcome. It must be
	// idempotent per session ID so the background reconciliation sweep can
	// retry failed writes safely.
	PersistSessionResult(ctx context.Context, result SessionResult) error

	// LookupRelationships resolves the set of user IDs related to userID by
	// the given kind.
	LookupRelationships(ctx context.Context, userID string, kind RelationshipKind) ([]string, error)
}
