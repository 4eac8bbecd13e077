package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/ridelinkhq/ridelink/internal/config"
	"github.com/ridelinkhq/ridelink/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrCredentialRejected indicates the provider credential failed
// verification: expired, tampered, or issued for another audience. Handlers
// map it to 401.
var ErrCredentialRejected = errors.New("invalid or expired Google token")

// Identity is the verified subset of the provider's claims.
type Identity struct {
	GoogleID string
	Email    string
	Name     string
	Photo    string
}

// IdentityVerifier verifies provider-issued credentials.
type IdentityVerifier interface {
	// VerifyIDToken checks an OIDC ID token signature and audience.
	VerifyIDToken(ctx context.Context, rawIDToken string) (*Identity, error)

	// VerifyAccessToken resolves an OAuth access token via the provider's
	// userinfo endpoint. Kept for older clients that send access tokens.
	VerifyAccessToken(ctx context.Context, accessToken string) (*Identity, error)
}

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleVerifier verifies Google credentials against the provider's
// published keys.
type GoogleVerifier struct {
	verifier    *oidc.IDTokenVerifier
	userInfoURL string
}

// NewGoogleVerifier discovers the Google OIDC configuration and prepares an
// ID token verifier bound to the configured client ID.
func NewGoogleVerifier(cfg *config.GoogleConfig) (*GoogleVerifier, error) {
	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = "https://accounts.google.com"
	}
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &GoogleVerifier{
		verifier:    provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		userInfoURL: googleUserInfoURL,
	}, nil
}

type googleClaims struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (c googleClaims) identity() (*Identity, error) {
	if c.Email == "" {
		return nil, fmt.Errorf("%w: no email in claims", ErrCredentialRejected)
	}
	return &Identity{
		GoogleID: c.Sub,
		Email:    c.Email,
		Name:     c.Name,
		Photo:    c.Picture,
	}, nil
}

func (v *GoogleVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialRejected, err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	return claims.identity()
}

func (v *GoogleVerifier) VerifyAccessToken(ctx context.Context, accessToken string) (*Identity, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	resp, err := client.Get(v.userInfoURL)
	if err != nil {
		logger.Error("Failed to call userinfo endpoint", zap.Error(err))
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrCredentialRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var claims googleClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return claims.identity()
}
