// Package welcome provides a Go client library for the Netatmo Welcome
// home-security API.
//
// The library covers the read side of the API: the user's account record,
// the station and module catalogue, homes with their persons and cameras,
// camera event history, camera pictures, and a reachability ping against a
// camera's VPN URL. Webhook registration for pushed security events is also
// available.
//
// # Authentication
//
// Netatmo uses the OAuth 2.0 resource owner password grant. A Session is
// created from the application credentials and the user's own credentials:
//
//	cfg := welcome.Config{
//	    ClientID:     "your-client-id",
//	    ClientSecret: "your-client-secret",
//	    Username:     "user@example.com",
//	    Password:     "secret",
//	}
//	sess, err := welcome.NewSession(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The session refreshes its access token on first use after expiry.
// Concurrent callers share a single refresh request. When a refresh fails
// the session is invalidated and every later call returns an error that
// satisfies IsAuthentication; create a new session to recover.
//
// # Configuration
//
// LoadConfig reads a YAML file and overlays WELCOME_* environment variables:
//
//	cfg, err := welcome.LoadConfig("welcome.yaml")
//	logger := welcome.NewLogger(cfg.Log, os.Stderr)
//	sess, err := welcome.NewSession(ctx, cfg, welcome.WithLogger(logger))
//
// # Catalogs
//
// DeviceList and HomeData are snapshots taken when they are built. Lookups
// by name scan in fetch order; the first fetched entity is the default:
//
//	homes, err := welcome.NewHomeData(ctx, sess)
//	home, ok := homes.HomeByName("") // default home
//	for _, cam := range homes.Cameras(home) {
//	    fmt.Printf("%s: %s\n", cam.Name, cam.Status)
//	}
//
// # Events
//
// Event pages are anchored at one event and walk forward, backward or up to
// the present:
//
//	page, err := welcome.NewNextEvents(ctx, sess, home.ID, lastSeenID, 0)
//	ev, err := page.EventByOrder(0)
//	if welcome.IsOutOfRange(err) {
//	    // empty page
//	}
//	if snap, ok := page.Snapshot(ev); ok {
//	    pic, err := welcome.NewSnapshotPicture(ctx, sess, snap)
//	}
//
// # Error Handling
//
// The library uses sentinel errors and typed errors:
//
//	if welcome.IsUnauthorized(err) {
//	    // access token rejected by the API
//	}
//	var apiErr *welcome.APIError
//	if errors.As(err, &apiErr) {
//	    fmt.Printf("API error %d: %s\n", apiErr.Code, apiErr.Message)
//	}
//
// Requests are never retried. Response bodies larger than the configured
// ceiling fail with ErrResponseTooLarge instead of being truncated.
//
// # Observability
//
// WithLogger enables structured request and token refresh logging through
// log/slog. WithMetrics registers Prometheus request counters, latency
// histograms and refresh counters.
//
// # Testing
//
// The welcometest package serves an in-memory fake of the API suitable for
// tests that exercise a real Session.
package welcome
