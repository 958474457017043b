// Package remote talks to a log store over HTTP. The service keeps the
// collection at one URL: GET lists, POST creates, and PUT or DELETE on
// <url>/<id> change a single log.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/store"
)

// StatusError is returned for non-2xx answers other than 404, which maps
// to store.ErrNotFound.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

type Options struct {
	Timeout      time.Duration
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type Client struct {
	base string
	http *retryablehttp.Client
}

var _ store.Repository = (*Client)(nil)

// debugLogger routes the retry client's chatter to the debug level.
type debugLogger struct{}

func (debugLogger) Printf(format string, args ...interface{}) {
	logging.Log.Debugf(format, args...)
}

func New(baseURL string, o Options) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = debugLogger{}
	rc.RetryMax = o.Retries
	if o.RetryWaitMin > 0 {
		rc.RetryWaitMin = o.RetryWaitMin
	}
	if o.RetryWaitMax > 0 {
		rc.RetryWaitMax = o.RetryWaitMax
	}
	if o.Timeout > 0 {
		rc.HTTPClient.Timeout = o.Timeout
	}
	// Hand the last response back instead of a generic "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.CheckRetry = checkRetry
	return &Client{base: strings.TrimRight(baseURL, "/"), http: rc}
}

type noRetryKey struct{}

// checkRetry is the default policy, except that a request marked as not
// idempotent is sent once. A create that failed after the server stored
// it would otherwise be stored twice.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if once, _ := ctx.Value(noRetryKey{}).(bool); once {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) itemURL(id string) string {
	return c.base + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, u string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	var reqBody interface{}
	if payload != nil {
		reqBody = payload
	}
	if method == http.MethodPost {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, u, store.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Method: method, URL: u, Status: resp.StatusCode, Body: errorMessage(data)}
	}
	return data, nil
}

// errorMessage pulls {"error": ...} out of a failure body, or returns the
// trimmed body itself.
func errorMessage(data []byte) string {
	if gjson.ValidBytes(data) {
		if msg := gjson.GetBytes(data, "error"); msg.Exists() {
			return msg.String()
		}
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// ListLogs fetches the whole collection. The body is either an array of
// logs or an object wrapping one under "logs" or "data". Entries that are
// not objects are dropped.
func (c *Client) ListLogs(ctx context.Context) ([]store.Log, error) {
	data, err := c.do(ctx, http.MethodGet, c.base, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList(data)
}

func DecodeList(data []byte) ([]store.Log, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode logs: invalid json")
	}
	res := gjson.ParseBytes(data)
	if res.IsObject() {
		for _, key := range []string{"logs", "data"} {
			if inner := res.Get(key); inner.IsArray() {
				res = inner
				break
			}
		}
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("decode logs: expected an array, got %s", res.Type)
	}

	logs := make([]store.Log, 0, len(res.Array()))
	dropped := 0
	res.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			dropped++
			return true
		}
		logs = append(logs, store.DecodeLog(v))
		return true
	})
	if dropped > 0 {
		logging.Log.Warnf("remote: dropped %d non-object entries", dropped)
	}
	return logs, nil
}

// CreateLog posts l. Stores that answer with an empty or non-object body
// are taken to have accepted l as sent.
func (c *Client) CreateLog(ctx context.Context, l store.Log) (*store.Log, error) {
	if err := store.Validate(l); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, c.base, l)
	if err != nil {
		return nil, err
	}
	if created, ok := decodeOne(data); ok {
		return created, nil
	}
	return &l, nil
}

// UpdateLog sends only the fields p sets. When the store does not echo
// the record back, the current one is fetched.
func (c *Client) UpdateLog(ctx context.Context, id string, p store.LogPatch) (*store.Log, error) {
	if p.Empty() {
		return c.find(ctx, id)
	}
	data, err := c.do(ctx, http.MethodPut, c.itemURL(id), p)
	if err != nil {
		return nil, err
	}
	if updated, ok := decodeOne(data); ok {
		if updated.ID == "" {
			updated.ID = id
		}
		return updated, nil
	}
	return c.find(ctx, id)
}

func (c *Client) DeleteLog(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil)
	return err
}

func (c *Client) find(ctx context.Context, id string) (*store.Log, error) {
	logs, err := c.ListLogs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range logs {
		if logs[i].ID == id {
			return &logs[i], nil
		}
	}
	return nil, fmt.Errorf("log %s: %w", id, store.ErrNotFound)
}

func decodeOne(data []byte) (*store.Log, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return nil, false
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, false
	}
	l := store.DecodeLog(res)
	return &l, true
}
