/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Broadcast Errors
	ErrRoomKindInvalid:        {Code: ErrRoomKindInvalid, Message: "Invalid room kind."},
	ErrRoomNotFound:           {Code: ErrRoomNotFound, Message: "Room not found."},
	ErrRoomIsFull:             {Code: ErrRoomIsFull, Message: "This room is full."},
	ErrAlreadyMember:          {Code: ErrAlreadyMember, Message: "You are already in this room."},
	ErrNotMember:              {Code: ErrNotMember, Message: "You are not in this room."},
	ErrMessageContentTooLong:  {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrAttachmentCountInvalid: {Code: ErrAttachmentCountInvalid, Message: "Invalid number of attachments. At most %d allowed."},
	ErrAttachmentKeyInvalid:   {Code: ErrAttachmentKeyInvalid, Message: "Invalid attachment."},
	ErrFileSizeTooLarge:       {Code: ErrFileSizeTooLarge, Message: "File is too large. Maximum size is %dMB."},

	// 3xxx: Session State Machine Errors
	ErrSessionNotFound:       {Code: ErrSessionNotFound, Message: "Session not found. Check the join code."},
	ErrSessionNotJoinable:    {Code: ErrSessionNotJoinable, Message: "This session is no longer accepting players."},
	ErrSessionFull:           {Code: ErrSessionFull, Message: "This session is full."},
	ErrAlreadyJoined:         {Code: ErrAlreadyJoined, Message: "You already joined this session."},
	ErrNotEnoughParticipants: {Code: ErrNotEnoughParticipants, Message: "Not enough players to start. At least %d required."},
	ErrNotLeader:             {Code: ErrNotLeader, Message: "Only the session leader can do that."},
	ErrAlreadyStarted:        {Code: ErrAlreadyStarted, Message: "This session has already started."},
	ErrSessionNotActive:      {Code: ErrSessionNotActive, Message: "This session is not in progress."},
	ErrUnknownParticipant:    {Code: ErrUnknownParticipant, Message: "You are not part of this session."},
	ErrJoinCodeExhausted:     {Code: ErrJoinCodeExhausted, Message: "Could not create a session right now. Please try again.", Status: http.StatusInternalServerError},
	ErrSessionKindInvalid:    {Code: ErrSessionKindInvalid, Message: "Invalid session kind."},

	// 4xxx: Connection, Identity, and Lifecycle Errors
	ErrUnauthorized:     {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrConnectionLimit:  {Code: ErrConnectionLimit, Message: "Server is at capacity. Please try again later.", Status: http.StatusServiceUnavailable},
	ErrConnectionKicked: {Code: ErrConnectionKicked, Message: "You were connected from another device."},
	ErrServerDraining:   {Code: ErrServerDraining, Message: "Server is restarting. Please reconnect shortly.", Status: http.StatusServiceUnavailable},
	ErrNotAuthenticated: {Code: ErrNotAuthenticated, Message: "Authenticate before sending messages."},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again."},
}
