/*
Package session implements the multiplayer study-session state machine.

This file defines the Engine: session creation with unique join codes, the
join/start/submit/leave operations, forfeit settlement on disconnect, and
fail-forward persistence of terminal results with a background retry loop.

Locking: each Session guards its own state with a per-session mutex, so
operations on independent sessions proceed in parallel. The engine's own lock
covers only the session and join-code indexes. Broadcasts and persistence
always happen after the session lock is released.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/store"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/randx"
)

const (
	// maxCodeAttempts bounds join-code generation retries on collision.
	maxCodeAttempts = 5

	// persistTimeout bounds one PersistSessionResult call.
	persistTimeout = 5 * time.Second

	// defaultReconcileInterval is how often failed result writes are retried.
	defaultReconcileInterval = 30 * time.Second

	// roomPrefix namespaces the per-session room in the directory.
	roomPrefix = "session:"

	// Correct answers in competitive kinds earn a speed bonus that decays to
	// zero over the bonus window.
	speedBonusWindowMs = 10000
	speedBonusStepMs   = 1000
	maxAnswerTimeTaken = time.Hour
)

// RoomID returns the directory room identifier for a session.
func RoomID(sessionID string) string {
	return roomPrefix + sessionID
}

// Rooms is the slice of the room directory the engine needs. The realtime
// Directory satisfies it.
type Rooms interface {
	CreateRoom(roomID string, kind realtime.RoomKind, capacity int) (*realtime.Room, *errs.CustomError)
	DeleteRoom(roomID string)
	Broadcast(roomID string, event realtime.Event, excludeUserID string) int
}

// ResultWriter persists terminal session outcomes. The store satisfies it.
type ResultWriter interface {
	PersistSessionResult(ctx context.Context, result store.SessionResult) error
}

// PlayerEvent is the payload of session membership broadcasts.
type PlayerEvent struct {
	SessionID string   `json:"sessionId"`
	UserID    string   `json:"userId"`
	Session   Snapshot `json:"session"`
}

// Engine owns every live session. It is a process-wide singleton with no
// persisted state; restarts lose in-flight sessions by design.
type Engine struct {
	rooms   Rooms
	results ResultWriter
	logger  zerolog.Logger

	now               func() time.Time
	genID             func() string
	genCode           func() (string, error)
	reconcileInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	codes    map[string]string
	draining bool

	// pending holds terminal results whose first persist attempt failed,
	// keyed by session ID. PersistSessionResult is idempotent per session,
	// so retries are safe.
	pendingMu sync.Mutex
	pending   map[string]store.SessionResult

	// onComplete, when set, observes every settled session. Wired during
	// startup before any session exists.
	onComplete func(store.SessionResult, Snapshot)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// BindCompletionHook registers a callback invoked after a session settles,
// used to route completion notifications beyond the session room. Must be
// called before the engine serves traffic.
func (e *Engine) BindCompletionHook(fn func(store.SessionResult, Snapshot)) {
	e.onComplete = fn
}

// NewEngine constructs an Engine wired to the given room directory and
// result store.
func NewEngine(rooms Rooms, results ResultWriter) *Engine {
	return &Engine{
		rooms:             rooms,
		results:           results,
		logger:            logx.Component("session_engine"),
		now:               time.Now,
		genID:             randx.SessionID,
		genCode:           randx.JoinCode,
		reconcileInterval: defaultReconcileInterval,
		sessions:          make(map[string]*Session),
		codes:             make(map[string]string),
		pending:           make(map[string]store.SessionResult),
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
}

// CreateSession creates a waiting session with the creator as leader and a
// join code unique among non-terminal sessions.
func (e *Engine) CreateSession(creatorID string, kind Kind, min, max int, meta Meta) (Snapshot, *errs.CustomError) {
	if !kind.Valid() {
		return Snapshot{}, errs.NewError(errs.ErrSessionKindInvalid)
	}
	if min < 1 || max < min {
		return Snapshot{}, errs.NewError(errs.ErrInvalidParams)
	}

	now := e.now()
	sess := &Session{
		ID:        e.genID(),
		Kind:      kind,
		CreatorID: creatorID,
		Min:       min,
		Max:       max,
		Meta:      meta,
		CreatedAt: now,
		state:     StateWaiting,
		participants: map[string]*Participant{
			creatorID: {
				UserID:   creatorID,
				Role:     RoleLeader,
				Status:   StatusActive,
				JoinedAt: now,
			},
		},
		nextOrder: 1,
	}

	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return Snapshot{}, errs.NewError(errs.ErrServerDraining)
	}
	code, cerr := e.uniqueCodeLocked()
	if cerr != nil {
		e.mu.Unlock()
		return Snapshot{}, cerr
	}
	sess.JoinCode = code
	e.sessions[sess.ID] = sess
	e.codes[code] = sess.ID
	e.mu.Unlock()

	if _, rerr := e.rooms.CreateRoom(RoomID(sess.ID), realtime.RoomSession, max); rerr != nil {
		e.logger.Error().Err(rerr).Str("session_id", sess.ID).Msg("Failed to create session room.")
	}

	e.logger.Info().Str("session_id", sess.ID).Str("kind", string(kind)).
		Str("creator_id", creatorID).Int("max", max).Msg("Session created.")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// uniqueCodeLocked generates a join code not currently bound to a
// non-terminal session. Callers hold e.mu.
func (e *Engine) uniqueCodeLocked() (string, *errs.CustomError) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := e.genCode()
		if err != nil {
			e.logger.Error().Err(err).Msg("Join code generation failed.")
			return "", errs.NewError(errs.ErrUnknown)
		}
		if _, taken := e.codes[code]; !taken {
			return code, nil
		}
	}
	return "", errs.NewError(errs.ErrJoinCodeExhausted)
}

// JoinSession adds userID to the session identified by its join code. The
// capacity check and the participant insert happen atomically under the
// session lock. A disconnected participant rejoining reclaims their seat
// without a capacity check, in any non-terminal state, so a player whose
// connection dropped mid-game can still come back.
func (e *Engine) JoinSession(code, userID string) (Snapshot, *errs.CustomError) {
	e.mu.RLock()
	if e.draining {
		e.mu.RUnlock()
		return Snapshot{}, errs.NewError(errs.ErrServerDraining)
	}
	sess := e.sessions[e.codes[code]]
	e.mu.RUnlock()
	if sess == nil {
		return Snapshot{}, errs.NewError(errs.ErrSessionNotFound)
	}

	sess.mu.Lock()
	if sess.state.Terminal() {
		sess.mu.Unlock()
		return Snapshot{}, errs.NewError(errs.ErrSessionNotJoinable)
	}

	// Seat reclaim comes before the waiting-only check: an existing
	// participant may rejoin an in-progress session.
	if p, ok := sess.participants[userID]; ok {
		switch p.Status {
		case StatusActive:
			sess.mu.Unlock()
			return Snapshot{}, errs.NewError(errs.ErrAlreadyJoined)
		case StatusDisconnected:
			p.Status = StatusActive
			snap := sess.snapshotLocked()
			sess.mu.Unlock()
			return snap, nil
		}
	}

	if sess.state != StateWaiting {
		sess.mu.Unlock()
		return Snapshot{}, errs.NewError(errs.ErrSessionNotJoinable)
	}

	if sess.presentCount() >= sess.Max {
		sess.mu.Unlock()
		return Snapshot{}, errs.NewError(errs.ErrSessionFull)
	}

	sess.participants[userID] = &Participant{
		UserID:    userID,
		Role:      RoleMember,
		Status:    StatusActive,
		JoinedAt:  e.now(),
		joinOrder: sess.nextOrder,
	}
	sess.nextOrder++
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	e.rooms.Broadcast(RoomID(sess.ID), realtime.NewEvent(realtime.EventSessionPlayerJoined, PlayerEvent{
		SessionID: sess.ID,
		UserID:    userID,
		Session:   snap,
	}), "")

	e.logger.Info().Str("session_id", sess.ID).Str("user_id", userID).Msg("Participant joined session.")
	return snap, nil
}

// StartSession transitions waiting -> in_progress. Only the leader may start,
// and only once the active participant count meets the session minimum.
func (e *Engine) StartSession(sessionID, requesterID string) *errs.CustomError {
	sess := e.session(sessionID)
	if sess == nil {
		return errs.NewError(errs.ErrSessionNotFound)
	}

	sess.mu.Lock()
	if sess.state != StateWaiting {
		sess.mu.Unlock()
		return errs.NewError(errs.ErrAlreadyStarted)
	}
	p := sess.participants[requesterID]
	if p == nil || p.Status != StatusActive {
		sess.mu.Unlock()
		return errs.NewError(errs.ErrUnknownParticipant)
	}
	if p.Role != RoleLeader {
		sess.mu.Unlock()
		return errs.NewError(errs.ErrNotLeader)
	}
	if sess.activeCount() < sess.Min {
		sess.mu.Unlock()
		return errs.NewError(errs.ErrNotEnoughParticipants, sess.Min)
	}
	sess.state = StateInProgress
	sess.startedAt = e.now()
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	e.rooms.Broadcast(RoomID(sess.ID), realtime.NewEvent(realtime.EventSessionStarted, snap), "")
	e.logger.Info().Str("session_id", sess.ID).Int("participants", len(snap.Participants)).Msg("Session started.")
	return nil
}

// SubmitAnswer grades the participant's next question and applies the score
// delta. When every active participant has answered every question, the
// session completes naturally.
func (e *Engine) SubmitAnswer(sessionID, userID, answer string, timeTaken time.Duration) (ScoreDelta, *errs.CustomError) {
	sess := e.session(sessionID)
	if sess == nil {
		return ScoreDelta{}, errs.NewError(errs.ErrSessionNotFound)
	}

	sess.mu.Lock()
	if sess.state != StateInProgress {
		sess.mu.Unlock()
		return ScoreDelta{}, errs.NewError(errs.ErrSessionNotActive)
	}
	p := sess.participants[userID]
	if p == nil || p.Status != StatusActive {
		sess.mu.Unlock()
		return ScoreDelta{}, errs.NewError(errs.ErrUnknownParticipant)
	}
	q, ok := sess.question(p.AnswersSubmitted)
	if !ok {
		sess.mu.Unlock()
		return ScoreDelta{}, errs.NewError(errs.ErrInvalidParams)
	}

	delta := gradeAnswer(sess.Kind, q, answer, timeTaken)
	delta.SessionID = sess.ID
	delta.UserID = userID

	p.AnswersSubmitted++
	if delta.Correct {
		p.CorrectAnswers++
		p.Score += delta.Points + delta.SpeedBonus
	}
	delta.TotalScore = p.Score
	delta.AnswersSubmitted = p.AnswersSubmitted

	finished := sess.allAnsweredLocked()
	sess.mu.Unlock()

	e.rooms.Broadcast(RoomID(sess.ID), realtime.NewEvent(realtime.EventScoreUpdate, delta), "")

	if finished {
		e.completeByScore(sess)
	}
	return delta, nil
}

// gradeAnswer scores one submission. Competitive kinds earn a speed bonus
// that decays linearly over the bonus window.
func gradeAnswer(kind Kind, q Question, answer string, timeTaken time.Duration) ScoreDelta {
	delta := ScoreDelta{Correct: q.matches(answer)}
	if !delta.Correct {
		return delta
	}

	delta.Points = q.Points
	if delta.Points == 0 {
		delta.Points = defaultQuestionPoints
	}

	if kind.Competitive() {
		ms := timeTaken.Milliseconds()
		if ms < 0 || timeTaken > maxAnswerTimeTaken {
			ms = speedBonusWindowMs
		}
		if ms < speedBonusWindowMs {
			delta.SpeedBonus = int((speedBonusWindowMs - ms) / speedBonusStepMs)
		}
	}
	return delta
}

// allAnsweredLocked reports whether every active participant has submitted an
// answer for every question. Callers hold sess.mu.
func (s *Session) allAnsweredLocked() bool {
	if len(s.Meta.Questions) == 0 {
		return false
	}
	active := 0
	for _, p := range s.participants {
		if p.Status != StatusActive {
			continue
		}
		active++
		if p.AnswersSubmitted < len(s.Meta.Questions) {
			return false
		}
	}
	return active > 0
}

// Complete finalizes an in-progress session by score. It is the explicit
// entry point for time-limit expiry and administrative termination; natural
// completion and forfeits call the same settlement path internally.
func (e *Engine) Complete(sessionID string) *errs.CustomError {
	sess := e.session(sessionID)
	if sess == nil {
		return errs.NewError(errs.ErrSessionNotFound)
	}
	if !e.completeByScore(sess) {
		return errs.NewError(errs.ErrSessionNotActive)
	}
	return nil
}

// LeaveSession marks the participant left. A leader leaving hands leadership
// to the earliest-joined remaining participant. The last leaver cancels a
// waiting session; the last active participant leaving mid-game forfeits it.
func (e *Engine) LeaveSession(sessionID, userID string) *errs.CustomError {
	sess := e.session(sessionID)
	if sess == nil {
		return errs.NewError(errs.ErrSessionNotFound)
	}

	sess.mu.Lock()
	if sess.state.Terminal() {
		sess.mu.Unlock()
		return errs.NewError(errs.ErrSessionNotActive)
	}
	p := sess.participants[userID]
	if p == nil || p.Status == StatusLeft || p.Status == StatusKicked {
		sess.mu.Unlock()
		return errs.NewError(errs.ErrUnknownParticipant)
	}

	wasLeader := p.Role == RoleLeader
	p.Status = StatusLeft
	p.LeftAt = e.now()
	p.Role = RoleMember

	newLeader := ""
	if wasLeader {
		if next := sess.successorLocked(); next != nil {
			next.Role = RoleLeader
			newLeader = next.UserID
		}
	}

	var result *store.SessionResult
	switch {
	case sess.state == StateWaiting && sess.presentCount() == 0:
		result = e.settleLocked(sess, StateCancelled, "", false)
	case sess.state == StateInProgress && sess.activeCount() <= 1:
		result = e.settleLocked(sess, StateCompleted, sess.soleActiveLocked(), true)
	}
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	e.rooms.Broadcast(RoomID(sess.ID), realtime.NewEvent(realtime.EventSessionPlayerLeft, PlayerEvent{
		SessionID: sess.ID,
		UserID:    userID,
		Session:   snap,
	}), userID)
	if newLeader != "" {
		e.rooms.Broadcast(RoomID(sess.ID), realtime.NewEvent(realtime.EventSessionLeaderChange, LeaderChange{
			SessionID: sess.ID,
			UserID:    newLeader,
		}), "")
	}
	if result != nil {
		e.finalize(sess, *result, snap)
	}

	e.logger.Info().Str("session_id", sess.ID).Str("user_id", userID).
		Bool("was_leader", wasLeader).Msg("Participant left session.")
	return nil
}

// successorLocked picks the earliest-joined participant still holding a seat.
// Callers hold sess.mu.
func (s *Session) successorLocked() *Participant {
	var next *Participant
	for _, p := range s.participants {
		if p.Status != StatusActive && p.Status != StatusDisconnected {
			continue
		}
		if next == nil || p.joinOrder < next.joinOrder {
			next = p
		}
	}
	return next
}

// soleActiveLocked returns the user ID of the single remaining active
// participant, or empty when none remain. Callers hold sess.mu.
func (s *Session) soleActiveLocked() string {
	winner := ""
	for _, p := range s.participants {
		if p.Status == StatusActive {
			if winner != "" {
				return ""
			}
			winner = p.UserID
		}
	}
	return winner
}

// HandlePresence reacts to connection-registry presence transitions. Wire it
// as a PresenceTracker subscription. A participant whose last connection
// drops is marked disconnected; if that leaves an in-progress session with at
// most one active participant, the session settles as a forfeit.
func (e *Engine) HandlePresence(ev realtime.PresenceEvent) {
	for _, sess := range e.allSessions() {
		sess.mu.Lock()
		p := sess.participants[ev.UserID]
		if p == nil || sess.state.Terminal() {
			sess.mu.Unlock()
			continue
		}

		changed := false
		if ev.Online && p.Status == StatusDisconnected {
			p.Status = StatusActive
			changed = true
		}
		if !ev.Online && p.Status == StatusActive {
			p.Status = StatusDisconnected
			changed = true
		}
		if !changed {
			sess.mu.Unlock()
			continue
		}

		var result *store.SessionResult
		if !ev.Online && sess.state == StateInProgress && sess.activeCount() <= 1 {
			result = e.settleLocked(sess, StateCompleted, sess.soleActiveLocked(), true)
		}
		snap := sess.snapshotLocked()
		sess.mu.Unlock()

		if result != nil {
			e.finalize(sess, *result, snap)
		}
	}
}

// completeByScore settles an in-progress session by final scores. The highest
// score wins; a tie is a declared draw. Returns false when the session was
// not in progress.
func (e *Engine) completeByScore(sess *Session) bool {
	sess.mu.Lock()
	if sess.state != StateInProgress {
		sess.mu.Unlock()
		return false
	}
	winner, draw := topScorerLocked(sess)
	if draw {
		winner = ""
	}
	result := e.settleLocked(sess, StateCompleted, winner, false)
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	e.finalize(sess, *result, snap)
	return true
}

// topScorerLocked finds the highest-scoring present participant. Players who
// left or were kicked forfeit their standing. A shared top score is a draw.
// Callers hold sess.mu.
func topScorerLocked(sess *Session) (string, bool) {
	winner := ""
	best := -1
	draw := false
	for _, p := range sess.participants {
		if p.Status != StatusActive && p.Status != StatusDisconnected {
			continue
		}
		switch {
		case p.Score > best:
			best = p.Score
			winner = p.UserID
			draw = false
		case p.Score == best:
			draw = true
		}
	}
	return winner, draw
}

// settleLocked applies the terminal transition and builds the immutable
// result record. A forfeit with no surviving participant is recorded as a
// draw. Callers hold sess.mu and must not call this on a terminal session.
func (e *Engine) settleLocked(sess *Session, state State, winnerID string, forfeit bool) *store.SessionResult {
	sess.state = state
	sess.completedAt = e.now()
	sess.winnerID = winnerID
	sess.forfeit = forfeit
	sess.draw = state == StateCompleted && winnerID == ""

	result := store.SessionResult{
		SessionID:   sess.ID,
		JoinCode:    sess.JoinCode,
		Kind:        string(sess.Kind),
		State:       string(sess.state),
		WinnerID:    sess.winnerID,
		Draw:        sess.draw,
		Forfeit:     sess.forfeit,
		CreatedAt:   sess.CreatedAt,
		StartedAt:   sess.startedAt,
		CompletedAt: sess.completedAt,
	}
	for _, p := range sess.participants {
		result.Participants = append(result.Participants, store.ParticipantResult{
			UserID:           p.UserID,
			Role:             string(p.Role),
			Status:           string(p.Status),
			Score:            p.Score,
			AnswersSubmitted: p.AnswersSubmitted,
			CorrectAnswers:   p.CorrectAnswers,
		})
	}
	return &result
}

// finalize runs the post-terminal side effects: free the join code, announce
// completion to the room, tear the room down, and persist the result. The
// in-memory transition is already committed; a persistence failure only
// parks the result for the reconciliation loop.
func (e *Engine) finalize(sess *Session, result store.SessionResult, snap Snapshot) {
	e.mu.Lock()
	if e.codes[sess.JoinCode] == sess.ID {
		delete(e.codes, sess.JoinCode)
	}
	e.mu.Unlock()

	e.rooms.Broadcast(RoomID(sess.ID), realtime.NewEvent(realtime.EventSessionCompleted, snap), "")
	e.rooms.DeleteRoom(RoomID(sess.ID))

	e.logger.Info().Str("session_id", sess.ID).Str("state", string(snap.State)).
		Str("winner_id", snap.WinnerID).Bool("draw", snap.Draw).
		Bool("forfeit", snap.Forfeit).Msg("Session settled.")

	if e.onComplete != nil {
		e.onComplete(result, snap)
	}

	e.persist(result)
}

func (e *Engine) persist(result store.SessionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := e.results.PersistSessionResult(ctx, result); err != nil {
		e.logger.Error().Err(err).Str("session_id", result.SessionID).
			Msg("Result persistence failed, queued for retry.")
		e.pendingMu.Lock()
		e.pending[result.SessionID] = result
		e.pendingMu.Unlock()
		return
	}

	e.pendingMu.Lock()
	delete(e.pending, result.SessionID)
	e.pendingMu.Unlock()
}

// Snapshot returns the current view of a session.
func (e *Engine) Snapshot(sessionID string) (Snapshot, *errs.CustomError) {
	sess := e.session(sessionID)
	if sess == nil {
		return Snapshot{}, errs.NewError(errs.ErrSessionNotFound)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// SessionIDByCode resolves a join code to its live session.
func (e *Engine) SessionIDByCode(code string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.codes[code]
	return id, ok
}

// IsParticipant reports whether userID holds a seat in the session.
func (e *Engine) IsParticipant(sessionID, userID string) bool {
	sess := e.session(sessionID)
	if sess == nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	p := sess.participants[userID]
	return p != nil && (p.Status == StatusActive || p.Status == StatusDisconnected)
}

func (e *Engine) session(sessionID string) *Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessions[sessionID]
}

func (e *Engine) allSessions() []*Session {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		out = append(out, sess)
	}
	return out
}

// Drain rejects new creates and joins and cancels every waiting session.
// In-progress sessions are left to settle through the registry shutdown's
// disconnect cascade.
func (e *Engine) Drain() {
	e.mu.Lock()
	e.draining = true
	all := make([]*Session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		all = append(all, sess)
	}
	e.mu.Unlock()

	for _, sess := range all {
		sess.mu.Lock()
		if sess.state != StateWaiting {
			sess.mu.Unlock()
			continue
		}
		result := e.settleLocked(sess, StateCancelled, "", false)
		snap := sess.snapshotLocked()
		sess.mu.Unlock()
		e.finalize(sess, *result, snap)
	}
}

// Start launches the persistence reconciliation loop.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		go e.run()
	})
}

// Stop terminates the reconciliation loop and waits for it to exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
		<-e.done
	})
}

func (e *Engine) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.RetryPending()
		case <-e.stop:
			// Final attempt so a clean shutdown does not strand results.
			e.RetryPending()
			return
		}
	}
}

// RetryPending re-attempts every parked result write. Exported so tests and
// shutdown can force a pass without waiting for the ticker.
func (e *Engine) RetryPending() {
	e.pendingMu.Lock()
	batch := make([]store.SessionResult, 0, len(e.pending))
	for _, result := range e.pending {
		batch = append(batch, result)
	}
	e.pendingMu.Unlock()

	if len(batch) == 0 {
		return
	}

	e.logger.Info().Int("pending", len(batch)).Msg("Retrying failed result writes.")
	for _, result := range batch {
		e.persist(result)
	}
}
