package welcome

import (
	"context"
	"encoding/json"
	"strings"
)

// PingStatus is what a camera answers on its VPN ping endpoint.
type PingStatus struct {
	LocalURL    string          `json:"local_url"`
	ProductName string          `json:"product_name"`
	Raw         json.RawMessage `json:"-"`
}

// Ping checks that a camera is reachable through its VPN URL. It needs no
// session; vpnURL comes from Camera.VPNURL. The request is a GET on
// vpnURL + "/command/ping"; a vpnURL that already ends in /command/ping is
// used as is.
func (c *Client) Ping(ctx context.Context, vpnURL string) (*PingStatus, error) {
	if vpnURL == "" {
		return nil, ErrEmptyVPNURL
	}

	data, err := c.get(ctx, pingURL(vpnURL), pathPing)
	if err != nil {
		return nil, err
	}

	status, err := unmarshalResponse[PingStatus](data, "ping")
	if err != nil {
		return nil, err
	}
	status.Raw = data
	return status, nil
}

// pingURL returns the ping endpoint of a camera's VPN URL.
func pingURL(vpnURL string) string {
	base := strings.TrimRight(vpnURL, "/")
	if strings.HasSuffix(base, pathPing) {
		return base
	}
	return base + pathPing
}

// Ping checks camera reachability with a throwaway client built from opts.
// See (*Client).Ping for how vpnURL is resolved.
func Ping(ctx context.Context, vpnURL string, opts ...Option) (*PingStatus, error) {
	return NewClient(opts...).Ping(ctx, vpnURL)
}
