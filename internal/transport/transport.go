// Package transport implements the node-to-node HTTP+JSON RPC facade:
// thirteen POST endpoints with small JSON bodies, a client with a
// timeout+retry+back-off policy, and a server dispatch table.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/feng-zhe/zhechord/internal/logger"
	"github.com/feng-zhe/zhechord/internal/telemetry"
)

// ErrUnreachable is returned once a request has exhausted its retries —
// the signal the maintenance layer treats as "peer is dead".
var ErrUnreachable = errors.New("transport: peer unreachable")

// RPC path names.
const (
	PathFindPredecessor        = "/find_predecessor"
	PathFindSuccessor          = "/find_successor"
	PathGetPredecessor         = "/get_predecessor"
	PathSetPredecessor         = "/set_predecessor"
	PathGetSuccessor           = "/get_successor"
	PathSetSuccessor           = "/set_successor"
	PathClosestPrecedingFinger = "/closest_preceding_finger"
	PathNotify                 = "/notify"
	PathPut                    = "/put"
	PathGet                    = "/get"
	PathDisplayFingerTable     = "/display_finger_table"
	PathDisplayData            = "/display_data"
	PathDisplayBackupSucc      = "/display_backup_succ"
)

// IDRequest/IDResponse carry a single hex identifier — the shape of
// find_predecessor, find_successor, set_predecessor, set_successor,
// closest_preceding_finger, and notify.
type IDRequest struct {
	ID string `json:"id"`
}

type IDResponse struct {
	ID string `json:"id"`
}

// PutRequest is the /put body.
type PutRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetRequest is the /get body; GetResponse its reply.
type GetRequest struct {
	Key string `json:"key"`
}

type GetResponse struct {
	Value string `json:"value"`
}

// ListResponse wraps a result array (display_finger_table,
// display_backup_succ).
type ListResponse struct {
	Result []string `json:"result"`
}

// MapResponse wraps a result object (display_data).
type MapResponse struct {
	Result map[string]string `json:"result"`
}

// Policy is the client's retry/timeout/back-off configuration. Back-off
// delays are randomised within [BackoffMin, BackoffMax] so retries across
// the ring never synchronise.
type Policy struct {
	Timeout    time.Duration
	Retries    int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// DefaultPolicy is the stock tuning: 2s timeout, 3 retries, [1,3]s back-off.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    2 * time.Second,
		Retries:    3,
		BackoffMin: 1 * time.Second,
		BackoffMax: 3 * time.Second,
	}
}

// Client issues RPCs to remote peers over HTTP+JSON.
type Client struct {
	hc     *http.Client
	policy Policy
	lgr    logger.Logger
}

// NewClient builds a Client with the given policy. A zero Policy value is
// replaced with DefaultPolicy.
func NewClient(policy Policy, lgr logger.Logger) *Client {
	if policy.Timeout == 0 {
		policy = DefaultPolicy()
	}
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	return &Client{
		hc:     &http.Client{},
		policy: policy,
		lgr:    lgr,
	}
}

// Call posts body as JSON to addr+path and decodes the response into out.
// A nil out is valid for calls with an empty response ({}).
//
// Every transient failure (dial error, timeout) is retried internally up
// to policy.Retries times with a randomised [BackoffMin, BackoffMax] delay
// between attempts; once retries are exhausted the failure is reported as
// ErrUnreachable. A well-formed HTTP error response (4xx/5xx reached
// without a transport-level failure) is NOT retried — the peer answered,
// so it is a protocol violation and is returned as-is.
func (c *Client) Call(ctx context.Context, addr, path string, body, out any) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "rpc"+path)
	span.SetAttributes(attribute.String("peer.addr", addr))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("transport: marshal request for %s: %w", path, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.policy.Retries; attempt++ {
		if attempt > 0 {
			delay := c.policy.BackoffMin + time.Duration(rand.Int63n(int64(c.policy.BackoffMax-c.policy.BackoffMin+1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
			}
		}

		err := c.doOnce(ctx, addr, path, payload, out)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		c.lgr.Debug("transport: transient failure, retrying",
			logger.F("addr", addr), logger.F("path", path), logger.F("attempt", attempt), logger.F("err", err))
	}
	return fmt.Errorf("%w: %s%s: %v", ErrUnreachable, addr, path, lastErr)
}

func (c *Client) doOnce(ctx context.Context, addr, path string, payload []byte, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "http://"+addr+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &transientError{cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: %s%s returned status %d: %s", addr, path, resp.StatusCode, string(data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("transport: decode response from %s%s: %w", addr, path, err)
	}
	return nil
}

// transientError marks a connection-level failure (dial/timeout/context
// deadline) as retryable, as opposed to a well-formed non-200 response.
type transientError struct{ cause error }

func (e *transientError) Error() string { return e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
