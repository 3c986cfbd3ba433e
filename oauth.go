package welcome

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultScope grants read access to Welcome cameras and their pictures.
	DefaultScope = "read_camera access_camera"

	grantPassword = "password"
	grantRefresh  = "refresh_token"
)

// Scopes is the OAuth scope list. The token endpoint returns it either as a
// space separated string or as a JSON array; both decode here.
type Scopes []string

// UnmarshalJSON accepts a string or an array of strings.
func (s *Scopes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("scope must be a string or a list: %w", err)
	}
	*s = strings.Fields(str)
	return nil
}

// String joins the scopes the way they are sent on the wire.
func (s Scopes) String() string {
	return strings.Join(s, " ")
}

// TokenResponse represents the response from the OAuth token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	// ExpireIn is the legacy spelling some Netatmo deployments still send.
	ExpireIn int    `json:"expire_in,omitempty"`
	Scope    Scopes `json:"scope"`
}

// Lifetime returns how long the access token is valid for. It is zero when
// the response carries neither expires_in nor expire_in.
func (t *TokenResponse) Lifetime() time.Duration {
	secs := t.ExpiresIn
	if secs <= 0 {
		secs = t.ExpireIn
	}
	return time.Duration(secs) * time.Second
}

// PasswordGrant exchanges user credentials for tokens.
func (c *Client) PasswordGrant(ctx context.Context, cfg Config) (*TokenResponse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("grant_type", grantPassword)
	data.Set("client_id", cfg.ClientID)
	data.Set("client_secret", cfg.ClientSecret)
	data.Set("username", cfg.Username)
	data.Set("password", cfg.Password)
	data.Set("scope", cfg.scope())

	return c.doTokenRequest(ctx, data)
}

// RefreshGrant trades a refresh token for a new token pair.
func (c *Client) RefreshGrant(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrAuthentication)
	}

	data := url.Values{}
	data.Set("grant_type", grantRefresh)
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)

	return c.doTokenRequest(ctx, data)
}

// doTokenRequest performs a token request to the OAuth token endpoint.
// Any failure other than the context ending is reported as an
// authentication error.
func (c *Client) doTokenRequest(ctx context.Context, data url.Values) (*TokenResponse, error) {
	body, err := c.post(ctx, pathToken, data)
	if err != nil {
		if isContextError(err) {
			return nil, fmt.Errorf("token request interrupted: %w", err)
		}
		return nil, fmt.Errorf("%w: token request failed: %w", ErrAuthentication, err)
	}

	tokens, err := unmarshalResponse[TokenResponse](body, "token response")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	if tokens.AccessToken == "" {
		if _, msg, ok := parseErrorBody(body); ok {
			return nil, fmt.Errorf("%w: OAuth error: %s", ErrAuthentication, msg)
		}
		return nil, fmt.Errorf("%w: token response has no access_token", ErrAuthentication)
	}
	if tokens.Lifetime() <= 0 {
		return nil, fmt.Errorf("%w: token response has no lifetime", ErrAuthentication)
	}

	return tokens, nil
}
