// Package welcometest provides an in-memory fake of the Netatmo Welcome API
// for tests. It speaks the same form-encoded requests and JSON envelopes as
// the real service, issues rotating OAuth tokens and counts every call.
package welcometest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Credentials accepted by the fake token endpoint.
const (
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	Username     = "user@example.com"
	Password     = "hunter2"
)

// Endpoint paths served by the fake.
const (
	PathToken            = "/oauth2/token"
	PathGetUser          = "/api/getuser"
	PathDeviceList       = "/api/devicelist"
	PathGetHomeData      = "/api/gethomedata"
	PathGetNextEvents    = "/api/getnextevents"
	PathGetLastEventOf   = "/api/getlasteventof"
	PathGetEventsUntil   = "/api/geteventsuntil"
	PathGetCameraPicture = "/api/getcamerapicture"
	PathAddWebhook       = "/api/addwebhook"
	PathDropWebhook      = "/api/dropwebhook"
	PathPing             = "/command/ping"
)

// DefaultTokenTTL is the lifetime, in seconds, of issued access tokens.
const DefaultTokenTTL = 10800

type failure struct {
	status int
	body   []byte
}

type hold struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Server is a fake Welcome API backed by an httptest.Server.
type Server struct {
	*httptest.Server
	Router chi.Router

	mu             sync.Mutex
	tokenTTL       int
	scope          any
	omitAccess     bool
	access         map[string]bool
	refresh        map[string]bool
	passwordGrants int
	refreshGrants  int

	user     map[string]any
	devices  []map[string]any
	modules  []map[string]any
	homes    []map[string]any
	homeUser map[string]any
	events   []map[string]any
	pictures map[string][]byte
	webhook  string

	calls    map[string]int
	forms    map[string]url.Values
	failures map[string]failure
	raw      map[string][]byte
	holds    map[string]*hold
}

// New starts a fake server that is closed when tb finishes.
func New(tb testing.TB) *Server {
	tb.Helper()
	s := &Server{
		tokenTTL: DefaultTokenTTL,
		scope:    []string{"read_camera", "access_camera"},
		access:   make(map[string]bool),
		refresh:  make(map[string]bool),
		pictures: make(map[string][]byte),
		calls:    make(map[string]int),
		forms:    make(map[string]url.Values),
		failures: make(map[string]failure),
		raw:      make(map[string][]byte),
		holds:    make(map[string]*hold),
		homeUser: map[string]any{"reg_locale": "en-US", "lang": "en-US", "country": "US", "mail": Username},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Post(PathToken, s.handleToken)
	r.Get(PathPing, s.handlePing)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post(PathGetUser, s.handleUser)
		r.Post(PathDeviceList, s.handleDeviceList)
		r.Post(PathGetHomeData, s.handleHomeData)
		r.Post(PathGetNextEvents, s.handleEvents)
		r.Post(PathGetLastEventOf, s.handleEvents)
		r.Post(PathGetEventsUntil, s.handleEvents)
		r.Post(PathGetCameraPicture, s.handlePicture)
		r.Post(PathAddWebhook, s.handleAddWebhook)
		r.Post(PathDropWebhook, s.handleDropWebhook)
	})

	s.Router = r
	s.Server = httptest.NewServer(r)
	tb.Cleanup(s.Close)
	return s
}

// --- fixtures ---

// SetTokenTTL sets the expires_in of tokens issued from now on.
func (s *Server) SetTokenTTL(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = seconds
}

// SetScope sets the scope value returned by the token endpoint. It may be a
// string or a []string.
func (s *Server) SetScope(scope any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = scope
}

// OmitAccessToken makes the token endpoint answer 200 without an access_token.
func (s *Server) OmitAccessToken(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitAccess = omit
}

// SetUser sets the getuser body.
func (s *Server) SetUser(user map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SetDevices sets the stations and modules returned by devicelist.
func (s *Server) SetDevices(stations, modules []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = stations
	s.modules = modules
}

// SetHomes sets the homes returned by gethomedata.
func (s *Server) SetHomes(homes []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homes = homes
}

// SetEvents sets the events_list returned by all three event endpoints.
func (s *Server) SetEvents(events []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// SetPicture registers image bytes under an image id and key.
func (s *Server) SetPicture(imageID, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pictures[imageID+"/"+key] = data
}

// Fail makes every request to path answer status with body encoded as JSON.
// A status of zero clears the failure.
func (s *Server) Fail(path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	data, _ := json.Marshal(body)
	s.failures[path] = failure{status: status, body: data}
}

// SetRaw makes path answer 200 with data verbatim.
func (s *Server) SetRaw(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == nil {
		delete(s.raw, path)
		return
	}
	s.raw[path] = data
}

// Hold parks every request to path until release is called. entered is
// closed when the first parked request arrives. Release before the test
// ends; the server cannot close while requests are parked.
func (s *Server) Hold(path string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[path] = h
	s.mu.Unlock()

	var once sync.Once
	return h.entered, func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[path] == h {
				delete(s.holds, path)
			}
			s.mu.Unlock()
			close(h.release)
		})
	}
}

// RevokeAccessTokens invalidates every access token issued so far.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]bool)
}

// --- inspection ---

// Calls returns how many requests path has received.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// PasswordGrants returns how many password grants succeeded.
func (s *Server) PasswordGrants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwordGrants
}

// RefreshGrants returns how many refresh grants succeeded.
func (s *Server) RefreshGrants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshGrants
}

// LastForm returns the form of the latest request to path.
func (s *Server) LastForm(path string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[path]
}

// Webhook returns the currently registered webhook URL.
func (s *Server) Webhook() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.webhook
}

// --- middleware ---

// record counts the call, keeps its form, parks held requests and applies
// injected failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			apiError(w, http.StatusBadRequest, 21, "unable to parse form: "+err.Error())
			return
		}

		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.forms[r.URL.Path] = r.PostForm
		f, failing := s.failures[r.URL.Path]
		raw, isRaw := s.raw[r.URL.Path]
		h := s.holds[r.URL.Path]
		s.mu.Unlock()

		if h != nil {
			h.once.Do(func() { close(h.entered) })
			select {
			case <-h.release:
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			w.Write(f.body)
			return
		}
		if isRaw {
			w.Header().Set("Content-Type", "application/json")
			w.Write(raw)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireToken rejects API calls without a live access token, the way
// Netatmo does: 403 with error code 2 or 3.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.PostFormValue("access_token")
		if token == "" {
			apiError(w, http.StatusForbidden, 1, "Access token is missing")
			return
		}
		s.mu.Lock()
		ok := s.access[token]
		s.mu.Unlock()
		if !ok {
			apiError(w, http.StatusForbidden, 2, "Invalid access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("client_id") != ClientID || r.PostFormValue("client_secret") != ClientSecret {
		oauthError(w, http.StatusBadRequest, "invalid_client", "unknown client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.PostFormValue("grant_type") {
	case "password":
		if r.PostFormValue("username") != Username || r.PostFormValue("password") != Password {
			oauthError(w, http.StatusBadRequest, "invalid_grant", "bad user credentials")
			return
		}
		s.passwordGrants++
	case "refresh_token":
		rt := r.PostFormValue("refresh_token")
		if !s.refresh[rt] {
			oauthError(w, http.StatusBadRequest, "invalid_grant", "unknown refresh token")
			return
		}
		delete(s.refresh, rt)
		s.refreshGrants++
	default:
		oauthError(w, http.StatusBadRequest, "unsupported_grant_type", r.PostFormValue("grant_type"))
		return
	}

	access := "at-" + uuid.NewString()
	refresh := "rt-" + uuid.NewString()
	s.refresh[refresh] = true

	resp := map[string]any{
		"refresh_token": refresh,
		"expires_in":    s.tokenTTL,
		"expire_in":     s.tokenTTL,
		"scope":         s.scope,
	}
	if !s.omitAccess {
		s.access[access] = true
		resp["access_token"] = access
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"local_url":    s.URL,
		"product_name": "Welcome Netatmo",
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	if user == nil {
		user = map[string]any{"_id": "user-1", "mail": Username, "devices": []string{}}
	}
	writeEnvelope(w, user)
}

func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := map[string]any{
		"devices": orEmpty(s.devices),
		"modules": orEmpty(s.modules),
	}
	s.mu.Unlock()
	writeEnvelope(w, body)
}

func (s *Server) handleHomeData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := map[string]any{
		"homes": orEmpty(s.homes),
		"user":  s.homeUser,
	}
	s.mu.Unlock()
	writeEnvelope(w, body)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("home_id") == "" {
		apiError(w, http.StatusBadRequest, 21, "home_id is required")
		return
	}
	s.mu.Lock()
	events := orEmpty(s.events)
	s.mu.Unlock()

	if size, err := strconv.Atoi(r.PostFormValue("size")); err == nil && size >= 0 && size < len(events) {
		events = events[:size]
	}
	writeEnvelope(w, map[string]any{"events_list": events})
}

func (s *Server) handlePicture(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.pictures[r.PostFormValue("image_id")+"/"+r.PostFormValue("key")]
	s.mu.Unlock()
	if !ok {
		apiError(w, http.StatusNotFound, 9, "Picture not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

func (s *Server) handleAddWebhook(w http.ResponseWriter, r *http.Request) {
	callback := r.PostFormValue("url")
	if callback == "" {
		apiError(w, http.StatusBadRequest, 21, "url is required")
		return
	}
	s.mu.Lock()
	s.webhook = callback
	s.mu.Unlock()
	writeStatus(w)
}

func (s *Server) handleDropWebhook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.webhook = ""
	s.mu.Unlock()
	writeStatus(w)
}

// --- encoding ---

func orEmpty(v []map[string]any) []map[string]any {
	if v == nil {
		return []map[string]any{}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, body any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"body":        body,
		"time_exec":   0.012,
		"time_server": time.Now().Unix(),
	})
}

func writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"time_exec":   0.004,
		"time_server": time.Now().Unix(),
	})
}

func apiError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func oauthError(w http.ResponseWriter, status int, name, desc string) {
	writeJSON(w, status, map[string]any{
		"error":             name,
		"error_description": desc,
	})
}
