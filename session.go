package welcome

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSource hands out access tokens that are valid at the time of the call.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, error)
}

var _ TokenSource = (*Session)(nil)

// Session wraps a Client and owns the OAuth token lifecycle for one user.
// It is safe for concurrent use.
type Session struct {
	*Client
	clientID     string
	clientSecret string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	scope        Scopes
	expiresAt    time.Time
	failure      error

	refresh singleflight.Group
}

// NewSession performs a password grant with the credentials in cfg and
// returns a Session holding the resulting tokens. Options are applied after
// the transport settings of cfg.
func NewSession(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := NewClient(append(cfg.options(), opts...)...)

	tokens, err := client.PasswordGrant(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Client:       client,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
	s.store(tokens)
	return s, nil
}

// store replaces the token state. Callers must hold s.mu or own s exclusively.
func (s *Session) store(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		s.refreshToken = tokens.RefreshToken
	}
	if len(tokens.Scope) > 0 {
		s.scope = tokens.Scope
	}
	s.expiresAt = s.now().Add(tokens.Lifetime())
}

// CurrentToken returns an access token that has not expired, refreshing it
// first when needed. Concurrent callers that find the token expired share a
// single refresh request. A failed refresh is fatal: the session stays
// invalid and every later call returns an error wrapping ErrSessionInvalid.
//
// The shared refresh is bounded by the client timeout, not by ctx. A caller
// whose ctx ends stops waiting and gets ctx.Err(); the refresh carries on for
// the other callers.
func (s *Session) CurrentToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, expiresAt, failure := s.accessToken, s.expiresAt, s.failure
	s.mu.RUnlock()

	if failure != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionInvalid, failure)
	}
	if s.now().Before(expiresAt) {
		return token, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ch := s.refresh.DoChan("refresh", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout())
		defer cancel()
		return s.refreshLocked(flightCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refreshTimeout bounds a shared refresh.
func (s *Session) refreshTimeout() time.Duration {
	if s.httpClient != nil && s.httpClient.Timeout > 0 {
		return s.httpClient.Timeout
	}
	return DefaultTimeout
}

// refreshLocked runs inside the singleflight group, so at most one refresh
// is in flight per session.
func (s *Session) refreshLocked(ctx context.Context) (string, error) {
	s.mu.RLock()
	token, expiresAt, refreshToken := s.accessToken, s.expiresAt, s.refreshToken
	s.mu.RUnlock()

	// A refresh that finished just before this flight started already did the work.
	if s.now().Before(expiresAt) {
		return token, nil
	}

	tokens, err := s.RefreshGrant(ctx, s.clientID, s.clientSecret, refreshToken)
	if err != nil {
		s.metrics.observeRefresh(resultError)
		s.logTokenRefresh(ctx, time.Time{}, err)
		if !isContextError(err) {
			s.mu.Lock()
			s.failure = err
			s.mu.Unlock()
		}
		return "", err
	}

	s.mu.Lock()
	s.store(tokens)
	token, expiresAt = s.accessToken, s.expiresAt
	s.mu.Unlock()

	s.metrics.observeRefresh(resultSuccess)
	s.logTokenRefresh(ctx, expiresAt, nil)
	return token, nil
}

// Scope returns the scopes granted to the session.
func (s *Session) Scope() Scopes {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Scopes, len(s.scope))
	copy(out, s.scope)
	return out
}

// ExpiresAt returns when the current access token expires.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Valid reports whether the session can still hand out tokens.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure == nil
}

// authParams returns params (or a fresh set) carrying a current access token.
func (s *Session) authParams(ctx context.Context, params url.Values) (url.Values, error) {
	token, err := s.CurrentToken(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", token)
	return params, nil
}

// call performs an authenticated API request and unwraps the envelope.
func (s *Session) call(ctx context.Context, path string, params url.Values, resourceName string) (*envelope, error) {
	params, err := s.authParams(ctx, params)
	if err != nil {
		return nil, err
	}

	data, err := s.post(ctx, path, params)
	if err != nil {
		return nil, err
	}

	return decodeEnvelope(data, resourceName)
}
