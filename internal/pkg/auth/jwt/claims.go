package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims used across the real-time service.
// Token issuance belongs to the platform's auth service; this package only
// validates tokens and extracts the identity the core operates on.
type Payload struct {
	// StandardClaims embeds the standard JWT fields (Exp, Iat, Iss) used for
	// validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the platform user identifier of the token holder.
	ID string `json:"id"`

	// Role describes the account kind, e.g. "student", "parent", or "teacher".
	// Parent accounts receive derived-audience notifications but never hold
	// session participant records.
	Role string `json:"role"`

	// SessionCode, when present, scopes the token to a single session's room.
	// Issued by the HTTP join endpoint and presented in the WebSocket
	// authenticate frame.
	SessionCode string `json:"session_code,omitempty"`
}
