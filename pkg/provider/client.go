package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/flock/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("provider")
	if err != nil {
		debugLog.Warnf("Failed to initialize provider logger, using stderr fallback: %v", err)
	}
}

// Client is the resilient session client. One instance owns the group
// cache and rate-limit state for a running engine; pass it by reference to
// whatever composes it.
type Client struct {
	cfg        Config
	httpClient *http.Client
	throttle   *throttle

	groupMu       sync.Mutex
	groupCache    []Group
	groupCachedAt time.Time

	now func() time.Time
}

// NewClient creates a Client from config, applying defaults for unset
// fields.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		throttle: newThrottle(cfg),
		now:      time.Now,
	}
}

// CooldownRemaining returns how long profile creation stays refused, or
// zero when no lockout is active.
func (c *Client) CooldownRemaining() time.Duration {
	return c.throttle.cooldownRemaining()
}

// remoteError is a classified failure response from the provider. It is
// internal; the public surface maps it to the typed errors in errors.go.
type remoteError struct {
	status  int
	code    int
	message string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("remote error (http %d, code %d): %s", e.status, e.code, e.message)
}

// attempt runs one HTTP call against one protocol generation and decodes
// the body. Success requires a 2xx HTTP status and a body-level status code
// of 0 or 200 when one is present; the provider signals most failures
// inside an HTTP 200.
func (c *Client) attempt(ctx context.Context, method, baseURL, path string, payload interface{}) (map[string]interface{}, error) {
	endpoint, err := url.JoinPath(baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	// The two generations (and some proxies in front of them) disagree on
	// where the secret goes, so send every alias at once.
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("X-API-Key", c.cfg.APIToken)
	q := req.URL.Query()
	q.Set("token", c.cfg.APIToken)
	req.URL.RawQuery = q.Encode()

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransientError{Op: method + " " + path, Err: err}
	}

	decoded := make(map[string]interface{})
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			// Some legacy endpoints return a bare JSON array.
			var arr []interface{}
			if arrErr := json.Unmarshal(raw, &arr); arrErr == nil {
				decoded = map[string]interface{}{"data": arr}
			} else {
				return nil, &TransientError{
					Op:  method + " " + path,
					Err: fmt.Errorf("unexpected response shape: %w", err),
				}
			}
		}
	}

	bodyCode := extractBodyCode(decoded)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (bodyCode != 0 && bodyCode != 200) {
		return nil, &remoteError{
			status:  resp.StatusCode,
			code:    bodyCode,
			message: extractMessage(decoded, raw),
		}
	}

	return decoded, nil
}

// extractBodyCode pulls the numeric status embedded in the JSON body, if
// any. Zero means absent or success.
func extractBodyCode(body map[string]interface{}) int {
	for _, key := range []string{"code", "statusCode", "status_code"} {
		if v, ok := body[key].(float64); ok {
			return int(v)
		}
	}
	return 0
}

// extractMessage pulls a human-readable error text from the usual spots.
func extractMessage(body map[string]interface{}, raw []byte) string {
	for _, key := range []string{"msg", "message", "error", "detail"} {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// withFallback attempts the current-generation call, then the legacy one.
// A hard lockout from either generation short-circuits: retrying a banned
// token against the other endpoint family only extends the ban.
func (c *Client) withFallback(ctx context.Context, op string,
	primary, legacy func(ctx context.Context) (map[string]interface{}, error)) (map[string]interface{}, error) {

	result, primaryErr := primary(ctx)
	if primaryErr == nil {
		return result, nil
	}
	if classified := c.classify(primaryErr); classified != nil {
		return nil, classified
	}

	debugLog.Debugf("%s: primary protocol failed (%v), trying legacy", op, primaryErr)

	result, legacyErr := legacy(ctx)
	if legacyErr == nil {
		return result, nil
	}
	if classified := c.classify(legacyErr); classified != nil {
		return nil, classified
	}

	return nil, &FallbackError{Op: op, Primary: primaryErr, Legacy: legacyErr}
}

// classify maps a remote error message onto the typed conditions that must
// not be retried via fallback. It returns nil for ordinary failures.
func (c *Client) classify(err error) error {
	re, ok := err.(*remoteError)
	if !ok {
		return nil
	}
	if re.status == http.StatusTooManyRequests || isLockoutMessage(re.message) {
		debugLog.Errorf("hard lockout signal from provider: %s", re.message)
		return c.throttle.enterCooldown()
	}
	if isInvalidGroupMessage(re.message) {
		return &GroupError{Msg: re.message}
	}
	if isInstallingMessage(re.message) {
		return &installingError{msg: re.message}
	}
	return nil
}
