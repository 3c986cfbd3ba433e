package welcome

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WithLogger configures a structured logger for the client.
// When set, the client will log API requests, responses and token refreshes.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	sess, _ := welcome.NewSession(ctx, cfg, welcome.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewLogger builds a logger from a LogConfig. Format "json" selects the JSON
// handler, anything else the text handler. Unknown levels fall back to info.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoggingTransport wraps an http.RoundTripper and logs requests/responses.
// Query strings and user info are dropped from logged URLs and the form
// body, which carries credentials and tokens, is never read.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// RoundTrip implements http.RoundTripper with logging.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	target := redactURL(req)

	if t.Logger != nil {
		t.Logger.LogAttrs(req.Context(), slog.LevelDebug, "api_request",
			slog.String("method", req.Method),
			slog.String("url", target),
		)
	}

	resp, err := t.Base.RoundTrip(req)
	duration := time.Since(start)

	if t.Logger != nil {
		if err != nil {
			t.Logger.LogAttrs(req.Context(), slog.LevelError, "api_error",
				slog.String("method", req.Method),
				slog.String("url", target),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()),
			)
		} else {
			level := slog.LevelDebug
			if resp.StatusCode >= 400 {
				level = slog.LevelWarn
			}
			if resp.StatusCode >= 500 {
				level = slog.LevelError
			}

			t.Logger.LogAttrs(req.Context(), level, "api_response",
				slog.String("method", req.Method),
				slog.String("url", target),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", duration),
			)
		}
	}

	return resp, err
}

// redactURL drops the query string, which may hold an access token.
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// logTokenRefresh records the outcome of a refresh grant.
func (c *Client) logTokenRefresh(ctx context.Context, expiresAt time.Time, err error) {
	if c.logger == nil {
		return
	}
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "token_refresh",
			slog.String("error", err.Error()),
		)
		return
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "token_refresh",
		slog.Time("expires_at", expiresAt),
	)
}

// logOutOfRange records an ordinal event lookup past the end of a page.
func (c *Client) logOutOfRange(ctx context.Context, index, length int) {
	if c.logger == nil {
		return
	}
	c.logger.LogAttrs(ctx, slog.LevelWarn, "event_out_of_range",
		slog.Int("index", index),
		slog.Int("length", length),
	)
}
