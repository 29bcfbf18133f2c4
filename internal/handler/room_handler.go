/*
Package handler provides HTTP handler functions for managing persistent rooms.

Session rooms are created and destroyed by the session engine; this endpoint
covers the persistent kinds (guild channels, broadcast rooms) that outlive
their membership.
*/
package handler

import (
	"net/http"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/auth/jwt"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/req"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/resp"
)

type CreateRoomInput struct {
	// RoomID names the room, e.g. "guild:42". Session rooms are reserved for
	// the engine.
	RoomID string `json:"roomId"`

	// Kind is the room kind, "guild" or "broadcast".
	Kind string `json:"kind"`

	// Capacity bounds concurrent members. Zero means unbounded.
	Capacity int `json:"capacity,omitempty"`
}

// HandleCreateRoom creates an HTTP HandlerFunc to process room creation
// requests. Creating an existing room is idempotent.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateRoomInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.RoomID == "" || input.Capacity < 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		kind := realtime.RoomKind(input.Kind)
		if !kind.Valid() || kind.Ephemeral() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomKindInvalid))
			return
		}

		room, createErr := deps.Directory.CreateRoom(input.RoomID, kind, input.Capacity)
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"roomId": room.ID,
			"kind":   string(room.Kind),
		})
	}
}
