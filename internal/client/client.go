package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/arklim/village-admin/internal/core/domain"
	"github.com/arklim/village-admin/internal/rpc"
)

const defaultBatchWindow = 5 * time.Millisecond

// Client issues typed calls against the batched RPC endpoint. Concurrent
// query calls started within the batch window travel in a single round trip.
// Session cookies are carried in the underlying jar, so the transparent
// server-side refresh keeps the client signed in.
type Client struct {
	baseURL     string
	http        *http.Client
	batchWindow time.Duration

	mu         sync.Mutex
	pending    []*pendingCall
	flushTimer *time.Timer

	cache  *queryCache
	events chan domain.EntityChangedEvent
	closed chan struct{}
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient supplies a custom HTTP client; it should carry a cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBatchWindow overrides the window within which concurrent queries are
// coalesced into one round trip.
func WithBatchWindow(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.batchWindow = d
		}
	}
}

// New constructs a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 30 * time.Second, Jar: jar},
		batchWindow: defaultBatchWindow,
		cache:       newQueryCache(),
		events:      make(chan domain.EntityChangedEvent, 16),
		closed:      make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	go c.invalidationLoop()

	return c
}

// Close stops the invalidation subscriber.
func (c *Client) Close() {
	close(c.closed)
}

type pendingCall struct {
	request rpc.CallRequest
	done    chan callOutcome
}

type callOutcome struct {
	data json.RawMessage
	err  error
}

// Query executes a read procedure, tracks its state in the cache, and decodes
// the result into out (which may be nil when the caller only wants the state).
func (c *Client) Query(ctx context.Context, path string, input any, out any) error {
	raw, err := marshalInput(input)
	if err != nil {
		return err
	}

	key := queryKey(path, raw)
	c.cache.markLoading(key, path, raw)

	data, err := c.enqueue(ctx, rpc.CallRequest{Path: path, Type: rpc.KindQuery, Input: raw})
	if err != nil {
		c.cache.markError(key, err)
		return err
	}

	c.cache.markData(key, data)

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s result: %w", path, err)
		}
	}

	return nil
}

// MutateOptions carry the imperative mutation callbacks.
type MutateOptions struct {
	OnSuccess func()
	OnError   func(error)
}

// Mutate executes a write procedure. A successful mutation emits an
// entity-changed event for the procedure's namespace; subscribed query keys
// are invalidated and refetched so reads reflect the new state.
func (c *Client) Mutate(ctx context.Context, path string, input any, out any, opts ...MutateOptions) error {
	var options MutateOptions
	if len(opts) > 0 {
		options = opts[0]
	}

	raw, err := marshalInput(input)
	if err != nil {
		return err
	}

	data, err := c.send(ctx, []rpc.CallRequest{{Path: path, Type: rpc.KindMutation, Input: raw}})
	if err == nil && len(data) == 1 {
		if data[0].err != nil {
			err = data[0].err
		} else if out != nil {
			err = json.Unmarshal(data[0].data, out)
		}
	} else if err == nil {
		err = fmt.Errorf("rpc: expected 1 response, got %d", len(data))
	}

	if err != nil {
		if options.OnError != nil {
			options.OnError(err)
		}
		return err
	}

	select {
	case c.events <- domain.EntityChangedEvent{
		Namespace:  namespaceOf(path),
		Operation:  operationOf(path),
		OccurredAt: time.Now().UTC(),
	}:
	default:
		// A full event buffer must not stall the mutation path.
	}

	if options.OnSuccess != nil {
		options.OnSuccess()
	}

	return nil
}

// State returns the tracked state for a query, if any.
func (c *Client) State(path string, input any) (QueryState, bool) {
	raw, err := marshalInput(input)
	if err != nil {
		return QueryState{}, false
	}
	return c.cache.get(queryKey(path, raw))
}

// Invalidate drops cached data for every query in the namespace and refetches
// each key in the background.
func (c *Client) Invalidate(namespace string) {
	entries := c.cache.invalidateNamespace(namespace)
	for _, entry := range entries {
		go c.refetch(entry)
	}
}

func (c *Client) invalidationLoop() {
	for {
		select {
		case <-c.closed:
			return
		case event := <-c.events:
			c.Invalidate(event.Namespace)
		}
	}
}

func (c *Client) refetch(entry cachedQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := queryKey(entry.path, entry.input)
	data, err := c.enqueue(ctx, rpc.CallRequest{Path: entry.path, Type: rpc.KindQuery, Input: entry.input})
	if err != nil {
		c.cache.markError(key, err)
		return
	}
	c.cache.markData(key, data)
}

// enqueue adds the call to the current batch and waits for its outcome. The
// caller's context abandons the wait only; the server still runs the call to
// completion.
func (c *Client) enqueue(ctx context.Context, request rpc.CallRequest) (json.RawMessage, error) {
	call := &pendingCall{
		request: request,
		done:    make(chan callOutcome, 1),
	}

	c.mu.Lock()
	c.pending = append(c.pending, call)
	if c.flushTimer == nil {
		c.flushTimer = time.AfterFunc(c.batchWindow, c.flush)
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case outcome := <-call.done:
		return outcome.data, outcome.err
	}
}

func (c *Client) flush() {
	c.mu.Lock()
	calls := c.pending
	c.pending = nil
	c.flushTimer = nil
	c.mu.Unlock()

	if len(calls) == 0 {
		return
	}

	requests := make([]rpc.CallRequest, len(calls))
	for i, call := range calls {
		requests[i] = call.request
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outcomes, err := c.send(ctx, requests)
	if err != nil {
		for _, call := range calls {
			call.done <- callOutcome{err: err}
		}
		return
	}

	for i, call := range calls {
		if i < len(outcomes) {
			call.done <- outcomes[i]
			continue
		}
		call.done <- callOutcome{err: fmt.Errorf("rpc: missing response for %s", call.request.Path)}
	}
}

type callEnvelope struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error *rpc.Error `json:"error"`
}

func (c *Client) send(ctx context.Context, requests []rpc.CallRequest) ([]callOutcome, error) {
	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("encode rpc batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc round trip: %w", err)
	}
	defer resp.Body.Close()

	var envelopes []callEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}

	outcomes := make([]callOutcome, len(envelopes))
	for i, envelope := range envelopes {
		switch {
		case envelope.Error != nil:
			outcomes[i] = callOutcome{err: envelope.Error}
		case envelope.Result != nil:
			outcomes[i] = callOutcome{data: envelope.Result.Data}
		default:
			outcomes[i] = callOutcome{err: fmt.Errorf("rpc: empty response envelope")}
		}
	}

	return outcomes, nil
}

// SignIn authenticates against the login endpoint; the session cookies land
// in the client's jar.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login round trip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	return nil
}

// SignOut invalidates the session server-side and clears the jar's cookies.
func (c *Client) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout round trip: %w", err)
	}
	defer resp.Body.Close()

	return nil
}

func marshalInput(input any) (json.RawMessage, error) {
	if input == nil {
		return nil, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	return raw, nil
}

func namespaceOf(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[:idx]
	}
	return ""
}

func operationOf(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
