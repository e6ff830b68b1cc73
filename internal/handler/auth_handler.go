/*
Package handler provides HTTP handler functions for account registration, login and
token verification.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"mmoclient/internal/app/user"
	"mmoclient/internal/pkg/auth/jwt"
	"mmoclient/internal/pkg/errs"
	"mmoclient/internal/pkg/logx"
	"mmoclient/internal/pkg/req"
	"mmoclient/internal/pkg/resp"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validate applies the account rules: 3-50 character username, a plausible email,
// and a password of at least 8 characters mixing letters and digits.
func (in RegisterInput) validate() *errs.CustomError {
	if n := utf8.RuneCountInString(in.Username); n < 3 || n > 50 {
		return errs.NewError(errs.ErrInvalidUsername)
	}

	if !emailRegex.MatchString(in.Email) {
		return errs.NewError(errs.ErrInvalidEmail)
	}

	if utf8.RuneCountInString(in.Password) < 8 {
		return errs.NewError(errs.ErrInvalidPassword)
	}

	var hasLetter, hasDigit bool
	for _, r := range in.Password {
		hasLetter = hasLetter || unicode.IsLetter(r)
		hasDigit = hasDigit || unicode.IsDigit(r)
	}
	if !hasLetter || !hasDigit {
		return errs.NewError(errs.ErrInvalidPassword)
	}

	return nil
}

// HandleRegister creates an account and answers 201 with the new account and a token.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := input.validate(); customErr != nil {
			deps.countAuth("register", "invalid")
			resp.RespondError(w, r, customErr)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "register: failed to hash password")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		account, err := deps.Store.CreateAccount(r.Context(), user.CreateAccountParams{
			Username:     input.Username,
			Email:        input.Email,
			PasswordHash: string(hashedPassword),
		})
		if err != nil {
			if errors.Is(err, user.ErrDuplicate) {
				logx.Warn("registration conflict: username or email already exists", "username", input.Username)
				deps.countAuth("register", "conflict")
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "register: failed to create account")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		token, err := jwt.GenerateToken(&jwt.Payload{UserID: account.ID, Username: account.Username}, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
		if err != nil {
			logx.Error(err, "register: jwt generation failed", "user_id", account.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("User registered", "username", account.Username, "user_id", account.ID)
		deps.countAuth("register", "success")

		resp.RespondSuccess(w, r, http.StatusCreated, map[string]any{
			"message": "User registered successfully",
			"user": map[string]any{
				"user_id":    account.ID,
				"username":   account.Username,
				"email":      account.Email,
				"created_at": account.CreatedAt.Format(time.RFC3339),
			},
			"token": token,
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Username == "" || input.Password == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingCredentials))
			return
		}

		account, err := deps.Store.AccountByUsername(r.Context(), input.Username)
		if err != nil {
			logx.Warn("login: user not found", "username", input.Username)
			deps.countAuth("login", "rejected")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			deps.countAuth("login", "rejected")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := deps.Store.TouchLastLogin(r.Context(), account.ID); err != nil {
			logx.Error(err, "login: failed to update last_login", "user_id", account.ID)
		}

		token, err := jwt.GenerateToken(&jwt.Payload{UserID: account.ID, Username: account.Username}, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
		if err != nil {
			logx.Error(err, "login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("Login successful", "username", account.Username, "user_id", account.ID)
		deps.countAuth("login", "success")

		resp.RespondSuccess(w, r, http.StatusOK, map[string]any{
			"message": "Login successful",
			"user": map[string]any{
				"user_id":  account.ID,
				"username": account.Username,
				"email":    account.Email,
			},
			"token": token,
		})
	}
}

// HandleVerify answers with the account behind a valid token.
func HandleVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenRequired))
			return
		}

		account, err := deps.Store.AccountByID(r.Context(), identity.UserID)
		if err != nil {
			logx.Warn("verify: user not found", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		resp.RespondSuccess(w, r, http.StatusOK, map[string]any{
			"message": "Token is valid",
			"user": map[string]any{
				"user_id":    account.ID,
				"username":   account.Username,
				"email":      account.Email,
				"created_at": account.CreatedAt.Format(time.RFC3339),
			},
		})
	}
}

// HandleHealth reports liveness.
func HandleHealth(_ *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, http.StatusOK, map[string]any{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"message":   "Server is running",
		})
	}
}
