/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients. Rejections of join/start/
submit operations carry distinct codes so the client can render a specific
message rather than a generic failure.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Room and Broadcast Errors
const (
	// ErrRoomKindInvalid indicates that an unrecognized room kind was requested.
	ErrRoomKindInvalid = 2101

	// ErrRoomNotFound indicates that the target room does not exist.
	ErrRoomNotFound = 2102

	// ErrRoomIsFull indicates that the room has reached its capacity bound.
	ErrRoomIsFull = 2103

	// ErrAlreadyMember indicates that the connection already holds membership in the room.
	ErrAlreadyMember = 2104

	// ErrNotMember indicates that the user is not a member of the target room.
	ErrNotMember = 2105

	// ErrMessageContentTooLong indicates that a chat message exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrAttachmentCountInvalid indicates an invalid number of shared attachments.
	ErrAttachmentCountInvalid = 2202

	// ErrAttachmentKeyInvalid indicates an attachment key outside the room's storage prefix.
	ErrAttachmentKeyInvalid = 2203

	// ErrFileSizeTooLarge indicates an attachment exceeding the maximum upload size.
	ErrFileSizeTooLarge = 2204
)

// 3xxx: Session State Machine Errors
const (
	// ErrSessionNotFound indicates that no session matches the given identifier or join code.
	ErrSessionNotFound = 3101

	// ErrSessionNotJoinable indicates that the session has left the waiting state.
	ErrSessionNotJoinable = 3102

	// ErrSessionFull indicates that the active participant count equals the session maximum.
	ErrSessionFull = 3103

	// ErrAlreadyJoined indicates that the user already holds an active participant record.
	ErrAlreadyJoined = 3104

	// ErrNotEnoughParticipants indicates a start attempt below the session minimum.
	ErrNotEnoughParticipants = 3105

	// ErrNotLeader indicates that a leader-only operation was attempted by a member.
	ErrNotLeader = 3106

	// ErrAlreadyStarted indicates that the session has already transitioned to in-progress.
	ErrAlreadyStarted = 3107

	// ErrSessionNotActive indicates an answer submission against a session that is not in progress.
	ErrSessionNotActive = 3108

	// ErrUnknownParticipant indicates that the acting user is not an active participant.
	ErrUnknownParticipant = 3109

	// ErrJoinCodeExhausted indicates repeated join-code collisions during session creation.
	ErrJoinCodeExhausted = 3110

	// ErrSessionKindInvalid indicates an unrecognized session kind was requested.
	ErrSessionKindInvalid = 3111
)

// 4xxx: Connection, Identity, and Lifecycle Errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 4001

	// ErrConnectionLimit indicates that the registry refused a connection due to resource exhaustion.
	ErrConnectionLimit = 4002

	// ErrConnectionKicked indicates that the connection was replaced by a newer one.
	ErrConnectionKicked = 4003

	// ErrServerDraining indicates that the server is shutting down and rejects new joins.
	ErrServerDraining = 4004

	// ErrNotAuthenticated indicates a frame sent before a successful authenticate frame.
	ErrNotAuthenticated = 4005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates a failure talking to the object storage service.
	ErrFileStorageFailed = 5001
)
