/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError template: the message
shown to players and, for backend codes, the HTTP status returned on the wire.
*/
package errs

import "net/http"

// errorMap stores the CustomError template corresponding to every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Malformed JSON body.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Character Errors
	ErrCharacterNameInvalid: {Code: ErrCharacterNameInvalid, Message: "Character name must be between 2 and 50 characters", Status: http.StatusBadRequest},
	ErrCharacterNameExists:  {Code: ErrCharacterNameExists, Message: "You already have a character with this name", Status: http.StatusConflict},
	ErrCharacterNotFound:    {Code: ErrCharacterNotFound, Message: "Character not found", Status: http.StatusNotFound},
	ErrInvalidCoordinates:   {Code: ErrInvalidCoordinates, Message: "Invalid coordinates. x, y, z must be numbers", Status: http.StatusBadRequest},

	// 3xxx: Account and Token Errors
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Username must be between 3 and 50 characters", Status: http.StatusBadRequest},
	ErrInvalidEmail:       {Code: ErrInvalidEmail, Message: "Valid email is required", Status: http.StatusBadRequest},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Password must be at least 8 characters and contain a letter and a number", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username or email already exists", Status: http.StatusConflict},
	ErrMissingCredentials: {Code: ErrMissingCredentials, Message: "Username and password are required", Status: http.StatusBadRequest},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Invalid credentials", Status: http.StatusUnauthorized},
	ErrTokenRequired:      {Code: ErrTokenRequired, Message: "Access token required", Status: http.StatusUnauthorized},
	ErrTokenInvalid:       {Code: ErrTokenInvalid, Message: "Invalid or expired token", Status: http.StatusForbidden},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "User not found", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},

	// 6xxx: Client Gateway Outcomes
	ErrTransportFailure: {Code: ErrTransportFailure, Message: "Could not reach the game server."},
	ErrUnauthenticated:  {Code: ErrUnauthenticated, Message: "Please sign in to continue."},
	ErrConflict:         {Code: ErrConflict, Message: "Conflict: %s"},
	ErrRequestFailed:    {Code: ErrRequestFailed, Message: "The game server rejected the request."},
	ErrDecodeWarning:    {Code: ErrDecodeWarning, Message: "Response field %s missing or malformed, using default."},
}
