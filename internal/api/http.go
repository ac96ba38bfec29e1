package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mfigueroa/rutero/internal/model"
)

// HTTPClient implements Client against the remote reconciliation API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) HTTPOption {
	return func(c *HTTPClient) {
		c.token = token
	}
}

// NewHTTPClient creates a client for the given base URL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckUploadPermission implements Client.
func (c *HTTPClient) CheckUploadPermission(ctx context.Context, agentID string) (Permission, error) {
	var perm Permission
	path := "/agents/" + url.PathEscape(agentID) + "/upload-permission"
	if err := c.do(ctx, http.MethodGet, path, nil, &perm, false); err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// SubmitSyncBatch implements Client. A timeout or connection cut after
// the request body has been sent is reported as UNKNOWN_OUTCOME, not as
// a plain failure: the server may have applied the batch even though no
// response arrived.
func (c *HTTPClient) SubmitSyncBatch(ctx context.Context, batch SyncBatch) (SyncResult, error) {
	var result SyncResult
	if err := c.do(ctx, http.MethodPost, "/sync", batch, &result, true); err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

// DownloadWorkingSet implements Client.
func (c *HTTPClient) DownloadWorkingSet(ctx context.Context, agentID string) (WorkingSet, error) {
	var ws WorkingSet
	path := "/agents/" + url.PathEscape(agentID) + "/working-set"
	if err := c.do(ctx, http.MethodGet, path, nil, &ws, false); err != nil {
		return WorkingSet{}, err
	}
	if ws.Payments == nil {
		ws.Payments = map[string][]model.PaymentEvent{}
	}
	return ws, nil
}

// do executes one request. submitted controls how an ambiguous cutoff
// is classified: true means the server may already hold the request
// (UNKNOWN_OUTCOME), false means the failure is a retryable transport
// error.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, submitted bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError(err, submitted)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &SyncError{Code: CodeServerError, Message: "malformed server response", Status: resp.StatusCode, Err: err}
		}
	}
	return nil
}

func (c *HTTPClient) transportError(err error, submitted bool) error {
	timedOut := errors.Is(err, context.DeadlineExceeded)
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		timedOut = true
	}

	switch {
	case timedOut && submitted:
		return &SyncError{Code: CodeUnknownOutcome, Message: "request cut off after submission; server state indeterminate", Err: err}
	case timedOut:
		return &SyncError{Code: CodeNetworkTimeout, Message: "request timed out", Err: err}
	default:
		return &SyncError{Code: CodeNetworkUnreachable, Message: "server unreachable", Err: err}
	}
}

func (c *HTTPClient) statusError(resp *http.Response) error {
	// Surface the server's own message verbatim where possible.
	message := resp.Status
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Reason  string `json:"reason"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		switch {
		case body.Message != "":
			message = body.Message
		case body.Error != "":
			message = body.Error
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if body.Reason == ReasonAlreadyUsedToday {
			return &SyncError{Code: CodeAlreadyUsedToday, Message: message, Status: resp.StatusCode}
		}
		return &SyncError{Code: CodePermissionDenied, Message: message, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusConflict:
		return &SyncError{Code: CodeAlreadyUsedToday, Message: message, Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &SyncError{Code: CodeServerError, Message: message, Status: resp.StatusCode}
	default:
		return &SyncError{Code: CodeValidationRejected, Message: message, Status: resp.StatusCode}
	}
}
