// Package handlers implements the backend's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ridelinkhq/ridelink/internal/auth"
	"github.com/ridelinkhq/ridelink/internal/httputil"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"github.com/ridelinkhq/ridelink/internal/models"
	"github.com/ridelinkhq/ridelink/internal/repository"
	"go.uber.org/zap"
)

// AuthHandler serves the credential-exchange endpoint.
type AuthHandler struct {
	verifier auth.IdentityVerifier
	tokens   *auth.TokenManager
	users    repository.UserRepository
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(verifier auth.IdentityVerifier, tokens *auth.TokenManager, users repository.UserRepository) *AuthHandler {
	return &AuthHandler{verifier: verifier, tokens: tokens, users: users}
}

// googleLoginRequest accepts both credential shapes seen in the wild: the
// OIDC ID token and the older access-token variant.
type googleLoginRequest struct {
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

// GoogleLogin handles POST /auth/google: verify the provider credential,
// create or refresh the user record, and issue a session token.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IDToken == "" && req.AccessToken == "" {
		httputil.WriteError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	var (
		identity *auth.Identity
		err      error
	)
	if req.IDToken != "" {
		identity, err = h.verifier.VerifyIDToken(r.Context(), req.IDToken)
	} else {
		identity, err = h.verifier.VerifyAccessToken(r.Context(), req.AccessToken)
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialRejected) {
			httputil.WriteError(w, http.StatusUnauthorized, "Invalid or expired Google token")
			return
		}
		logger.Error("credential verification failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.upsertUser(r, identity)
	if err != nil {
		logger.Error("user upsert failed", zap.String("email", identity.Email), zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		logger.Error("token issue failed", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

// upsertUser creates the user on first verification of an email, and on
// later verifications updates name, photo, and provider ID when the
// provider-supplied values changed.
func (h *AuthHandler) upsertUser(r *http.Request, identity *auth.Identity) (*models.User, error) {
	user, err := h.users.GetByEmail(r.Context(), identity.Email)
	if errors.Is(err, repository.ErrNotFound) {
		now := time.Now().UTC()
		user = &models.User{
			ID:          uuid.New().String(),
			GoogleID:    identity.GoogleID,
			Name:        identity.Name,
			Email:       identity.Email,
			Photo:       identity.Photo,
			Provider:    "google",
			IsRider:     true,
			IsPassenger: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := h.users.Create(r.Context(), user); err != nil {
			return nil, err
		}
		logger.Info("new user created", zap.String("user_id", user.ID), zap.String("email", user.Email))
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if identity.GoogleID != "" && user.GoogleID != identity.GoogleID {
		user.GoogleID = identity.GoogleID
		changed = true
	}
	if identity.Name != "" && user.Name != identity.Name {
		user.Name = identity.Name
		changed = true
	}
	if identity.Photo != "" && user.Photo != identity.Photo {
		user.Photo = identity.Photo
		changed = true
	}
	if changed {
		if err := h.users.Update(r.Context(), user); err != nil {
			return nil, err
		}
	}
	return user, nil
}
