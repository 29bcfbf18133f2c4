/*
Package handler provides HTTP handler functions for creating and joining
multiplayer study sessions.

Create returns the short join code the creator shares out-of-band. Join
validates the code, reserves the seat, and returns a short-lived
session-scoped token the client presents in its WebSocket authenticate frame.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rktkdduq01/study-app-sub002/internal/app/session"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/auth/jwt"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/randx"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/req"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/resp"
)

// QuestionInput is one question supplied at session creation.
type QuestionInput struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Points int    `json:"points,omitempty"`
}

// CreateSessionInput defines the JSON input structure for session creation.
type CreateSessionInput struct {
	Kind            string          `json:"kind"`
	MinParticipants int             `json:"minParticipants"`
	MaxParticipants int             `json:"maxParticipants"`
	Title           string          `json:"title"`
	Subject         string          `json:"subject,omitempty"`
	Questions       []QuestionInput `json:"questions"`
}

// HandleCreateSession creates an HTTP HandlerFunc to process session creation
// requests from authenticated users.
func HandleCreateSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateSessionInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		meta := session.Meta{
			Title:   input.Title,
			Subject: input.Subject,
		}
		for _, q := range input.Questions {
			if q.Prompt == "" || q.Answer == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			meta.Questions = append(meta.Questions, session.Question{
				Prompt: q.Prompt,
				Answer: q.Answer,
				Points: q.Points,
			})
		}

		snap, createErr := deps.Engine.CreateSession(
			identity.ID,
			session.Kind(input.Kind),
			input.MinParticipants,
			input.MaxParticipants,
			meta,
		)
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		token, err := sessionToken(deps, identity, snap.JoinCode)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"sessionId": snap.ID,
			"joinCode":  snap.JoinCode,
			"token":     token,
		})
	}
}

// JoinSessionInput defines the JSON input structure for joining by code.
type JoinSessionInput struct {
	Code string `json:"code"`
}

// HandleJoinSession processes the request to join a session by its code.
func HandleJoinSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input JoinSessionInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidJoinCode(input.Code) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		snap, joinErr := deps.Engine.JoinSession(input.Code, identity.ID)
		if joinErr != nil {
			resp.RespondError(w, r, joinErr)
			return
		}

		token, err := sessionToken(deps, identity, input.Code)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"session": snap,
			"token":   token,
		})
	}
}

// HandleGetSession returns the current view of a session to its participants.
func HandleGetSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		sessionID := chi.URLParam(r, "id")
		if sessionID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if !deps.Engine.IsParticipant(sessionID, identity.ID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknownParticipant))
			return
		}

		snap, snapErr := deps.Engine.Snapshot(sessionID)
		if snapErr != nil {
			resp.RespondError(w, r, snapErr)
			return
		}

		resp.RespondSuccess(w, r, snap)
	}
}

// sessionToken mints a short-lived token scoped to the session's join code.
func sessionToken(deps *AppDeps, identity *jwt.Payload, code string) (string, *errs.CustomError) {
	payload := &jwt.Payload{
		ID:          identity.ID,
		Role:        identity.Role,
		SessionCode: code,
	}

	token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionAccessExpiration)
	if err != nil {
		return "", errs.NewError(errs.ErrUnknown, err)
	}
	return token, nil
}
