/*
Package session implements the multiplayer study-session state machine.

This file defines the session domain model: kinds, states, participant
records, question material, and the snapshot views broadcast to clients.
State is held in memory only. A restart loses in-flight sessions and clients
re-establish through the normal create/join path.
*/
package session

import (
	"strings"
	"sync"
	"time"
)

// Kind classifies a session's activity mode.
type Kind string

const (
	KindCoop       Kind = "co_op"
	KindPvP        Kind = "pvp"
	KindStudyGroup Kind = "study_group"
	KindTournament Kind = "tournament"
)

// Valid reports whether k is a recognized session kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCoop, KindPvP, KindStudyGroup, KindTournament:
		return true
	}
	return false
}

// Competitive reports whether answers in this kind earn a speed bonus.
func (k Kind) Competitive() bool {
	return k == KindPvP || k == KindTournament
}

// State is a session lifecycle state. Transitions are monotonic:
// waiting -> in_progress -> completed, with cancelled reachable from waiting.
type State string

const (
	StateWaiting    State = "waiting"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Role is a participant's role within a session.
type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// ParticipantStatus tracks a participant's membership condition.
type ParticipantStatus string

const (
	StatusActive       ParticipantStatus = "active"
	StatusDisconnected ParticipantStatus = "disconnected"
	StatusLeft         ParticipantStatus = "left"
	StatusKicked       ParticipantStatus = "kicked"
)

// Question is one unit of study material presented during a session.
type Question struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`

	// Points awarded for a correct answer. Zero means the default value.
	Points int `json:"points,omitempty"`
}

// defaultQuestionPoints applies when a question carries no explicit value.
const defaultQuestionPoints = 10

// matches compares a submitted answer against the expected one, ignoring
// case and surrounding whitespace.
func (q Question) matches(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.Answer))
}

// Meta carries the creator-supplied session material.
type Meta struct {
	Title     string     `json:"title"`
	Subject   string     `json:"subject,omitempty"`
	Questions []Question `json:"questions"`
}

// Participant binds a user to a session. A user holds at most one
// participant record per session.
type Participant struct {
	UserID           string
	Role             Role
	Status           ParticipantStatus
	Score            int
	AnswersSubmitted int
	CorrectAnswers   int
	JoinedAt         time.Time
	LeftAt           time.Time

	// joinOrder is a per-session monotonic counter used for leader
	// succession: leadership passes to the earliest-joined remaining
	// participant.
	joinOrder int
}

// Session is one multiplayer activity instance. All fields past the mutex are
// guarded by it; the engine never exposes the struct directly, only Snapshot
// views taken under the lock.
type Session struct {
	ID        string
	JoinCode  string
	Kind      Kind
	CreatorID string
	Min       int
	Max       int
	Meta      Meta
	CreatedAt time.Time

	mu           sync.Mutex
	state        State
	startedAt    time.Time
	completedAt  time.Time
	winnerID     string
	draw         bool
	forfeit      bool
	participants map[string]*Participant
	nextOrder    int
}

// activeCount counts participants in status active. Callers hold s.mu.
func (s *Session) activeCount() int {
	n := 0
	for _, p := range s.participants {
		if p.Status == StatusActive {
			n++
		}
	}
	return n
}

// presentCount counts participants still occupying a seat (active or
// momentarily disconnected). Capacity checks use this so a disconnected
// player's seat is not given away before the health sweep settles their fate.
// Callers hold s.mu.
func (s *Session) presentCount() int {
	n := 0
	for _, p := range s.participants {
		if p.Status == StatusActive || p.Status == StatusDisconnected {
			n++
		}
	}
	return n
}

// question returns the material for the given zero-based submission index.
func (s *Session) question(index int) (Question, bool) {
	if index < 0 || index >= len(s.Meta.Questions) {
		return Question{}, false
	}
	return s.Meta.Questions[index], true
}

// ParticipantView is the client-facing projection of a Participant.
type ParticipantView struct {
	UserID           string `json:"userId"`
	Role             Role   `json:"role"`
	Status           string `json:"status"`
	Score            int    `json:"score"`
	AnswersSubmitted int    `json:"answersSubmitted"`
	JoinedAt         int64  `json:"joinedAt"`
}

// Snapshot is the client-facing projection of a Session, taken atomically
// under the session lock and safe to fan out afterwards.
type Snapshot struct {
	ID            string            `json:"sessionId"`
	JoinCode      string            `json:"joinCode"`
	Kind          Kind              `json:"kind"`
	State         State             `json:"state"`
	CreatorID     string            `json:"creatorId"`
	Min           int               `json:"minParticipants"`
	Max           int               `json:"maxParticipants"`
	Title         string            `json:"title"`
	QuestionCount int               `json:"questionCount"`
	WinnerID      string            `json:"winnerId,omitempty"`
	Draw          bool              `json:"draw,omitempty"`
	Forfeit       bool              `json:"forfeit,omitempty"`
	CreatedAt     int64             `json:"createdAt"`
	StartedAt     int64             `json:"startedAt,omitempty"`
	CompletedAt   int64             `json:"completedAt,omitempty"`
	Participants  []ParticipantView `json:"participants"`
}

// snapshotLocked builds a Snapshot. Callers hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.ID,
		JoinCode:      s.JoinCode,
		Kind:          s.Kind,
		State:         s.state,
		CreatorID:     s.CreatorID,
		Min:           s.Min,
		Max:           s.Max,
		Title:         s.Meta.Title,
		QuestionCount: len(s.Meta.Questions),
		WinnerID:      s.winnerID,
		Draw:          s.draw,
		Forfeit:       s.forfeit,
		CreatedAt:     s.CreatedAt.UnixMilli(),
	}
	if !s.startedAt.IsZero() {
		snap.StartedAt = s.startedAt.UnixMilli()
	}
	if !s.completedAt.IsZero() {
		snap.CompletedAt = s.completedAt.UnixMilli()
	}
	snap.Participants = make([]ParticipantView, 0, len(s.participants))
	for _, p := range s.participants {
		snap.Participants = append(snap.Participants, ParticipantView{
			UserID:           p.UserID,
			Role:             p.Role,
			Status:           string(p.Status),
			Score:            p.Score,
			AnswersSubmitted: p.AnswersSubmitted,
			JoinedAt:         p.JoinedAt.UnixMilli(),
		})
	}
	return snap
}

// ScoreDelta reports the effect of one answer submission.
type ScoreDelta struct {
	SessionID        string `json:"sessionId"`
	UserID           string `json:"userId"`
	Correct          bool   `json:"correct"`
	Points           int    `json:"points"`
	SpeedBonus       int    `json:"speedBonus,omitempty"`
	TotalScore       int    `json:"totalScore"`
	AnswersSubmitted int    `json:"answersSubmitted"`
}

// LeaderChange announces a leadership transfer within a session.
type LeaderChange struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}
