/*
Package handler tests.

This file exercises the session HTTP endpoints end to end through the jwt
identity middleware: create returns a join code and a session-scoped token,
join reserves a seat, and business rejections surface as their error codes.
*/
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rktkdduq01/study-app-sub002/internal/app/realtime"
	"github.com/rktkdduq01/study-app-sub002/internal/app/session"
	"github.com/rktkdduq01/study-app-sub002/internal/app/store"
	"github.com/rktkdduq01/study-app-sub002/internal/configs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/auth/jwt"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/errs"
	"github.com/rktkdduq01/study-app-sub002/internal/pkg/randx"
)

const testSecret = "handler-test-secret"

func newTestDeps() *AppDeps {
	presence := realtime.NewPresenceTracker()
	registry := realtime.NewRegistry(100, presence)
	directory := realtime.NewDirectory(registry)

	return &AppDeps{
		Config: &configs.AppConfig{
			Environment: "development",
			JWTSecret:   testSecret,
		},
		Registry:  registry,
		Directory: directory,
		Engine:    session.NewEngine(directory, nopResults{}),
	}
}

type nopResults struct{}

func (nopResults) PersistSessionResult(_ context.Context, _ store.SessionResult) error {
	return nil
}

func identityToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(&jwt.Payload{ID: userID, Role: "student"}, testSecret, jwt.UserIdentityExpiration)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, h http.Handler, method, target, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var envelope struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	data := envelope.Data
	if data == nil {
		data = map[string]any{}
	}
	data["__code"] = float64(envelope.Code)
	return rec, data
}

func withIdentity(deps *AppDeps, h http.HandlerFunc) http.Handler {
	return jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret)(h)
}

func TestHandleCreateSessionRequiresAuth(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	h := withIdentity(deps, HandleCreateSession(deps))

	rec, data := doJSON(t, h, http.MethodPost, "/api/session/create", "", map[string]any{
		"kind": "pvp", "minParticipants": 2, "maxParticipants": 2,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if int(data["__code"].(float64)) != errs.ErrUnauthorized {
		t.Fatalf("expected unauthorized code, got %v", data["__code"])
	}
}

func TestHandleCreateSessionReturnsCodeAndToken(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	h := withIdentity(deps, HandleCreateSession(deps))

	rec, data := doJSON(t, h, http.MethodPost, "/api/session/create", identityToken(t, "alice"), map[string]any{
		"kind":            "pvp",
		"minParticipants": 2,
		"maxParticipants": 2,
		"title":           "Fractions duel",
		"questions": []map[string]any{
			{"prompt": "1/2 + 1/4", "answer": "3/4"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	joinCode, _ := data["joinCode"].(string)
	if !randx.IsValidJoinCode(joinCode) {
		t.Fatalf("expected valid join code, got %q", joinCode)
	}

	tokenString, _ := data["token"].(string)
	claims, err := jwt.ParseToken(tokenString, testSecret)
	if err != nil {
		t.Fatalf("returned token does not parse: %v", err)
	}
	if claims.ID != "alice" || claims.SessionCode != joinCode {
		t.Fatalf("unexpected token claims: %+v", claims)
	}
}

func TestHandleCreateSessionRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	h := withIdentity(deps, HandleCreateSession(deps))

	_, data := doJSON(t, h, http.MethodPost, "/api/session/create", identityToken(t, "alice"), map[string]any{
		"kind":            "speedrun",
		"minParticipants": 2,
		"maxParticipants": 2,
	})
	if int(data["__code"].(float64)) != errs.ErrSessionKindInvalid {
		t.Fatalf("expected kind rejection, got %v", data["__code"])
	}
}

func TestHandleJoinSessionReservesSeat(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	snap, createErr := deps.Engine.CreateSession("alice", session.KindPvP, 2, 2, session.Meta{
		Questions: []session.Question{{Prompt: "2+2", Answer: "4"}},
	})
	if createErr != nil {
		t.Fatalf("engine create failed: %v", createErr)
	}

	h := withIdentity(deps, HandleJoinSession(deps))

	rec, data := doJSON(t, h, http.MethodPost, "/api/session/join", identityToken(t, "bob"), map[string]any{
		"code": snap.JoinCode,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := data["token"].(string); !ok {
		t.Fatalf("expected session token in response, got %v", data)
	}

	// Seat is taken: a third user sees Full.
	_, full := doJSON(t, h, http.MethodPost, "/api/session/join", identityToken(t, "carol"), map[string]any{
		"code": snap.JoinCode,
	})
	if int(full["__code"].(float64)) != errs.ErrSessionFull {
		t.Fatalf("expected full rejection, got %v", full["__code"])
	}
}

func TestHandleJoinSessionRejectsMalformedCode(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	h := withIdentity(deps, HandleJoinSession(deps))

	_, data := doJSON(t, h, http.MethodPost, "/api/session/join", identityToken(t, "bob"), map[string]any{
		"code": "not a code",
	})
	if int(data["__code"].(float64)) != errs.ErrInvalidParams {
		t.Fatalf("expected invalid params, got %v", data["__code"])
	}
}

func TestHandleCreateRoomValidatesKind(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	h := withIdentity(deps, HandleCreateRoom(deps))

	rec, data := doJSON(t, h, http.MethodPost, "/api/room/create", identityToken(t, "alice"), map[string]any{
		"roomId": "guild:42", "kind": "guild",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if data["roomId"] != "guild:42" {
		t.Fatalf("unexpected response: %v", data)
	}

	// Session rooms belong to the engine.
	_, rejected := doJSON(t, h, http.MethodPost, "/api/room/create", identityToken(t, "alice"), map[string]any{
		"roomId": "session:sneaky", "kind": "session",
	})
	if int(rejected["__code"].(float64)) != errs.ErrRoomKindInvalid {
		t.Fatalf("expected kind rejection, got %v", rejected["__code"])
	}
}
