/*
Package errs provides custom error types and application-level error code constants.

The codes are shared by both ends of the wire: the game client's gateway classifies
every failed operation into one of the 6xxx codes, and the development backend uses
the 1xxx-5xxx codes to pick its HTTP status and message.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Character Errors
const (
	// ErrCharacterNameInvalid indicates a character name outside 2-50 characters.
	ErrCharacterNameInvalid = 2101

	// ErrCharacterNameExists indicates the account already owns a character with that name.
	ErrCharacterNameExists = 2102

	// ErrCharacterNotFound indicates the character does not exist or belongs to another account.
	ErrCharacterNotFound = 2103

	// ErrInvalidCoordinates indicates a position update with non-numeric coordinates.
	ErrInvalidCoordinates = 2201
)

// 3xxx: Account and Token Errors
const (
	// ErrInvalidUsername indicates a username outside 3-50 characters.
	ErrInvalidUsername = 3001

	// ErrInvalidEmail indicates a missing or malformed email address.
	ErrInvalidEmail = 3002

	// ErrInvalidPassword indicates a password that fails the length or composition policy.
	ErrInvalidPassword = 3003

	// ErrUserAlreadyExists indicates the username or email is already registered.
	ErrUserAlreadyExists = 3004

	// ErrMissingCredentials indicates a login request without username or password.
	ErrMissingCredentials = 3005

	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	ErrInvalidCredentials = 3006

	// ErrTokenRequired indicates an authenticated route was called without a bearer token.
	ErrTokenRequired = 3007

	// ErrTokenInvalid indicates the bearer token failed verification or has expired.
	ErrTokenInvalid = 3008

	// ErrUserNotFound indicates the token refers to an account that no longer exists.
	ErrUserNotFound = 3009
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)

// 6xxx: Client Gateway Outcomes
const (
	// ErrTransportFailure indicates that no HTTP response was received: connection
	// refused, DNS failure, timeout or cancellation.
	ErrTransportFailure = 6001

	// ErrUnauthenticated indicates a 401 on an authenticated call, or a call that
	// was refused locally because the session holds no token.
	ErrUnauthenticated = 6002

	// ErrConflict indicates a 409. Detail names what collided.
	ErrConflict = 6003

	// ErrRequestFailed indicates any other non-success HTTP status. Status and Body
	// carry the backend's answer.
	ErrRequestFailed = 6004

	// ErrDecodeWarning indicates a missing or malformed response field that was
	// replaced by its default. It never fails an operation.
	ErrDecodeWarning = 6005
)
