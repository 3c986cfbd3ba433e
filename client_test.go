package welcome

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	t.Run("default configuration", func(t *testing.T) {
		client := NewClient()
		if client.baseURL != DefaultBaseURL {
			t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
		}
		if client.httpClient == nil || client.rest == nil {
			t.Fatal("HTTP client not initialised")
		}
		if client.httpClient.Timeout != DefaultTimeout {
			t.Errorf("timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
		}
		if client.maxResponseSize != DefaultMaxResponseSize {
			t.Errorf("maxResponseSize = %d, want %d", client.maxResponseSize, DefaultMaxResponseSize)
		}
		if client.maxPictureSize != DefaultMaxPictureSize {
			t.Errorf("maxPictureSize = %d, want %d", client.maxPictureSize, DefaultMaxPictureSize)
		}
	})

	t.Run("with custom base URL", func(t *testing.T) {
		client := NewClient(WithBaseURL("https://custom.example.com"))
		if client.BaseURL() != "https://custom.example.com" {
			t.Errorf("BaseURL() = %q", client.BaseURL())
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		client := NewClient(WithTimeout(5 * time.Second))
		if client.httpClient.Timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", client.httpClient.Timeout)
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		client := NewClient(WithHTTPClient(custom))
		if client.httpClient != custom {
			t.Error("httpClient was not set correctly")
		}
	})

	t.Run("timeout does not modify a shared HTTP client", func(t *testing.T) {
		shared := &http.Client{Timeout: 10 * time.Second}
		client := NewClient(WithHTTPClient(shared), WithTimeout(2*time.Second))
		if shared.Timeout != 10*time.Second {
			t.Errorf("shared timeout = %v, want 10s", shared.Timeout)
		}
		if client.httpClient.Timeout != 2*time.Second {
			t.Errorf("client timeout = %v, want 2s", client.httpClient.Timeout)
		}
	})

	t.Run("non-positive size limits are ignored", func(t *testing.T) {
		client := NewClient(WithMaxResponseSize(0), WithMaxPictureSize(-1))
		if client.maxResponseSize != DefaultMaxResponseSize || client.maxPictureSize != DefaultMaxPictureSize {
			t.Errorf("limits = %d/%d, want defaults", client.maxResponseSize, client.maxPictureSize)
		}
	})

	t.Run("with clock", func(t *testing.T) {
		clock := newFakeClock()
		client := NewClient(WithClock(clock.Now))
		if !client.now().Equal(clock.Now()) {
			t.Error("clock option not applied")
		}
	})
}

func TestClient_post(t *testing.T) {
	t.Run("sends a url-encoded form", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded;charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm: %v", err)
				return
			}
			if r.PostFormValue("home_id") != "h1" {
				t.Errorf("home_id = %q, want h1", r.PostFormValue("home_id"))
			}
			w.Write([]byte(`{"status":"ok","body":{}}`))
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL))
		data, err := client.post(context.Background(), "/api/test", map[string][]string{"home_id": {"h1"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"status":"ok","body":{}}` {
			t.Errorf("body = %s", data)
		}
	})

	t.Run("body at the limit is accepted", func(t *testing.T) {
		body := strings.Repeat("a", 64)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL), WithMaxResponseSize(64))
		data, err := client.post(context.Background(), "/api/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 64 {
			t.Errorf("len = %d, want 64", len(data))
		}
	})

	t.Run("body over the limit fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("a", 65)))
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL), WithMaxResponseSize(64))
		_, err := client.post(context.Background(), "/api/test", nil)
		if !errors.Is(err, ErrResponseTooLarge) {
			t.Errorf("error = %v, want ErrResponseTooLarge", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient(WithBaseURL(server.URL))
		_, err := client.post(ctx, "/api/test", nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestClient_handleError(t *testing.T) {
	client := NewClient()

	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantCode   int
		wantMsg    string
		wantUnauth bool
	}{
		{
			name:       "401 maps to ErrUnauthorized",
			status:     http.StatusUnauthorized,
			wantErr:    ErrUnauthorized,
			wantUnauth: true,
		},
		{
			name:    "404 maps to ErrNotFound",
			status:  http.StatusNotFound,
			wantErr: ErrNotFound,
		},
		{
			name:       "API error body",
			status:     http.StatusForbidden,
			body:       `{"error":{"code":2,"message":"Invalid access token"}}`,
			wantCode:   2,
			wantMsg:    "Invalid access token",
			wantUnauth: true,
		},
		{
			name:    "OAuth error body",
			status:  http.StatusBadRequest,
			body:    `{"error":"invalid_grant","error_description":"bad password"}`,
			wantMsg: "invalid_grant - bad password",
		},
		{
			name:    "unparseable body is previewed",
			status:  http.StatusInternalServerError,
			body:    `<html>oops</html>`,
			wantMsg: `<html>oops</html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.handleError(tt.status, []byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			} else {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %T, want *APIError", err)
				}
				if apiErr.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
				}
				if apiErr.Code != tt.wantCode {
					t.Errorf("Code = %d, want %d", apiErr.Code, tt.wantCode)
				}
				if apiErr.Message != tt.wantMsg {
					t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
				}
			}
			if IsUnauthorized(err) != tt.wantUnauth {
				t.Errorf("IsUnauthorized = %v, want %v", IsUnauthorized(err), tt.wantUnauth)
			}
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	t.Run("ok envelope", func(t *testing.T) {
		env, err := decodeEnvelope([]byte(`{"status":"ok","body":{"a":1},"time_exec":0.5,"time_server":1700000000}`), "thing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(env.Body) != `{"a":1}` {
			t.Errorf("Body = %s", env.Body)
		}
		if env.TimeServer != 1700000000 || env.TimeExec != 0.5 {
			t.Errorf("envelope = %+v", env)
		}
	})

	t.Run("missing body", func(t *testing.T) {
		_, err := decodeEnvelope([]byte(`{"status":"ok"}`), "thing")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("null body", func(t *testing.T) {
		_, err := decodeEnvelope([]byte(`{"status":"ok","body":null}`), "thing")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("non-ok status", func(t *testing.T) {
		_, err := decodeEnvelope([]byte(`{"status":"failed","error":{"code":21,"message":"invalid params"}}`), "thing")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.Code != 21 || apiErr.Message != "invalid params" {
			t.Errorf("APIError = %+v", apiErr)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := decodeEnvelope([]byte(`nope`), "thing")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestIsContextError(t *testing.T) {
	if !isContextError(context.Canceled) || !isContextError(context.DeadlineExceeded) {
		t.Error("context errors not recognised")
	}
	if isContextError(errors.New("boom")) {
		t.Error("plain error recognised as a context error")
	}
}
