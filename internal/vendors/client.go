package vendors

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fixed local control endpoints of each vendor's software.
const (
	PlantronicsBaseURL = "https://127.0.0.1:32018/Spokes"
	JabraBaseURL       = "https://127.0.0.1:41090/JabraBridge"
	SennheiserBaseURL  = "https://127.0.0.1:41091/SennheiserSDK"
)

const (
	defaultRequestTimeout = 5 * time.Second
	maxEnvelopeBytes      = 1 << 20
)

// ClientOptions controls a vendor API client.
type ClientOptions struct {
	// HTTPClient overrides the default loopback client (tests use httptest clients).
	HTTPClient *http.Client

	// Timeout bounds every request. Zero means the default.
	Timeout time.Duration

	Logger *slog.Logger
}

// Client issues calls against a vendor's local control endpoint and parses the envelope.
type Client struct {
	vendor  VendorID
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewClient(vendor VendorID, baseURL string, opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// Vendor services listen on loopback with self-signed certificates.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
				MaxIdleConns:    4,
				IdleConnTimeout: 30 * time.Second,
			},
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		vendor:  vendor,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		log:     log.With("component", "vendor_client", "vendor", string(vendor)),
	}
}

func (c *Client) Vendor() VendorID { return c.vendor }

// Call performs a GET on endpoint with params and returns the decoded envelope.
//
// Failures are always typed: *TransportError when the service is unreachable or the
// response is not a well-formed envelope, *RejectedError when isError is set.
func (c *Client) Call(ctx context.Context, endpoint string, params url.Values) (Envelope, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Envelope{}, c.transportErr(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Envelope{}, c.transportErr(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return Envelope{}, c.transportErr(endpoint, err)
	}
	c.log.Debug("vendor call", "endpoint", endpoint, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Envelope{}, c.transportErr(endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var env Envelope
	if len(bytes.TrimSpace(body)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, c.transportErr(endpoint, fmt.Errorf("decode envelope: %w", err))
	}
	if env.IsError {
		return env, &RejectedError{Vendor: c.vendor, Endpoint: endpoint, Description: env.Description}
	}
	return env, nil
}

func (c *Client) transportErr(endpoint string, err error) error {
	return &TransportError{Vendor: c.vendor, Endpoint: endpoint, Err: err}
}

// Command performs a call whose result is a Bool. A false result is reported as a
// rejection so callers only ever see typed failures.
func (c *Client) Command(ctx context.Context, endpoint string, params url.Values) error {
	env, err := c.Call(ctx, endpoint, params)
	if err != nil {
		return err
	}
	ok, err := env.Bool()
	if err != nil {
		return c.transportErr(endpoint, err)
	}
	if !ok {
		desc := env.Description
		if desc == "" {
			desc = "vendor returned false"
		}
		return &RejectedError{Vendor: c.vendor, Endpoint: endpoint, Description: desc}
	}
	return nil
}

// DeviceInfo calls endpoint and decodes a DeviceInfo result.
func (c *Client) DeviceInfo(ctx context.Context, endpoint string, params url.Values) (DeviceInfo, error) {
	env, err := c.Call(ctx, endpoint, params)
	if err != nil {
		return DeviceInfo{}, err
	}
	info, err := env.DeviceInfo()
	if err != nil {
		return DeviceInfo{}, c.transportErr(endpoint, err)
	}
	return info, nil
}

// CallEvents calls endpoint and decodes a call-record result.
func (c *Client) CallEvents(ctx context.Context, endpoint string, params url.Values) ([]CallEvent, error) {
	env, err := c.Call(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	events, err := env.CallEvents()
	if err != nil {
		return nil, c.transportErr(endpoint, err)
	}
	return events, nil
}
