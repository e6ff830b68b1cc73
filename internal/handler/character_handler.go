package handler

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"mmoclient/internal/app/user"
	"mmoclient/internal/pkg/auth/jwt"
	"mmoclient/internal/pkg/errs"
	"mmoclient/internal/pkg/logx"
	"mmoclient/internal/pkg/req"
	"mmoclient/internal/pkg/resp"
)

type CreateCharacterInput struct {
	Name           string `json:"name"`
	CharacterClass string `json:"characterClass"`
}

type PositionInput struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// characterID parses the {id} URL parameter. Non-numeric ids cannot match any
// character and are reported as not found.
func characterID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// HandleListCharacters answers with the caller's characters, newest first.
func HandleListCharacters(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		characters, err := deps.Store.ListCharacters(r.Context(), identity.UserID)
		if err != nil {
			logx.Error(err, "list characters failed", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, http.StatusOK, map[string]any{
			"message":    "Characters retrieved successfully",
			"characters": characters,
		})
	}
}

// HandleCreateCharacter creates a character for the caller and answers 201.
func HandleCreateCharacter(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var input CreateCharacterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if n := utf8.RuneCountInString(input.Name); n < 2 || n > 50 {
			resp.RespondError(w, r, errs.NewError(errs.ErrCharacterNameInvalid))
			return
		}

		character, err := deps.Store.CreateCharacter(r.Context(), user.CreateCharacterParams{
			UserID: identity.UserID,
			Name:   input.Name,
			Class:  input.CharacterClass,
		})
		if err != nil {
			switch {
			case errors.Is(err, user.ErrDuplicate):
				logx.Warn("character creation conflict", "name", input.Name, "user_id", identity.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrCharacterNameExists))
			case errors.Is(err, user.ErrNotFound):
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			default:
				logx.Error(err, "create character failed", "user_id", identity.UserID)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			}
			return
		}

		logx.Info("Character created", "name", character.Name, "character_id", character.ID, "user_id", identity.UserID)

		resp.RespondSuccess(w, r, http.StatusCreated, map[string]any{
			"message":   "Character created successfully",
			"character": character,
		})
	}
}

// HandleGetCharacter answers with one of the caller's characters.
func HandleGetCharacter(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		id, ok := characterID(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrCharacterNotFound))
			return
		}

		character, err := deps.Store.Character(r.Context(), identity.UserID, id)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrCharacterNotFound))
			return
		}

		resp.RespondSuccess(w, r, http.StatusOK, map[string]any{
			"message":   "Character retrieved successfully",
			"character": character,
		})
	}
}

// HandleSavePosition stores a character's world position.
func HandleSavePosition(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		id, ok := characterID(r)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrCharacterNotFound))
			return
		}

		var input PositionInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			if customErr.Code == errs.ErrInvalidJSONFormat {
				customErr = errs.NewError(errs.ErrInvalidCoordinates)
			}
			resp.RespondError(w, r, customErr)
			return
		}
		if input.X == nil || input.Y == nil || input.Z == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCoordinates))
			return
		}

		if err := deps.Store.UpdatePosition(r.Context(), identity.UserID, id, *input.X, *input.Y, *input.Z); err != nil {
			logx.Warn("position save failed: character not found", "character_id", id, "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrCharacterNotFound))
			return
		}

		logx.Debug("Position saved", "character_id", id, "x", *input.X, "y", *input.Y, "z", *input.Z)

		resp.RespondSuccess(w, r, http.StatusOK, map[string]any{
			"message":  "Position saved successfully",
			"position": map[string]float64{"x": *input.X, "y": *input.Y, "z": *input.Z},
		})
	}
}
