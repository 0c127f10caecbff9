package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	methodGetCheckpoint         = "sui_getCheckpoint"
	methodLatestCheckpoint      = "sui_getLatestCheckpointSequenceNumber"
	methodMultiGetTransactions  = "sui_multiGetTransactionBlocks"
	methodTryMultiGetPastObject = "sui_tryMultiGetPastObjects"
)

// HTTPClient is a Sui JSON-RPC client with circuit-breaker and token-bucket rate limiting.
type HTTPClient struct {
	endpoints []string
	client    *http.Client
	nextID    atomic.Uint64

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 40
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}

	c := &HTTPClient{
		endpoints:        dedup(o.Endpoints),
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

func dedup(ss []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(ss))
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

func (c *HTTPClient) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

func (c *HTTPClient) acquire() {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return
		}
		time.Sleep(c.refillEvery / 2)
	}
}

func (c *HTTPClient) isOpen(ep string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.opened, ep)
		c.failures[ep] = 0
		return false
	}
	return true
}

func (c *HTTPClient) noteFailure(ep string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[ep]++
	if c.failures[ep] >= c.breakerThreshold {
		c.opened[ep] = time.Now().Add(c.breakerCooldown)
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call sends a JSON-RPC request, failing over between endpoints.
func (c *HTTPClient) call(ctx context.Context, method string, params []any, out any) error {
	if len(c.endpoints) == 0 {
		return fmt.Errorf("no endpoints configured")
	}

	b, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		ep := c.endpoints[i]
		if c.isOpen(ep) {
			continue
		}

		c.acquire()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(b))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.noteFailure(ep)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server %d", resp.StatusCode)
			c.noteFailure(ep)
			resp.Body.Close()
			continue
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			resp.Body.Close()
			continue
		}

		rawBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		slog.Debug("rpc", "method", method, "len", len(rawBody))

		var envelope rpcResponse
		if err := json.Unmarshal(rawBody, &envelope); err != nil {
			lastErr = fmt.Errorf("json unmarshal: %w (body: %s)", err, string(rawBody[:min(200, len(rawBody))]))
			continue
		}
		if envelope.Error != nil {
			// The node answered; another endpoint would give the same answer.
			return envelope.Error
		}
		if out != nil {
			if err := json.Unmarshal(envelope.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("all endpoints unavailable")
	}
	return lastErr
}

// GetCheckpoint fetches a checkpoint header and its transaction digests.
func (c *HTTPClient) GetCheckpoint(ctx context.Context, seq uint64) (*Checkpoint, error) {
	var resp Checkpoint
	if err := c.call(ctx, methodGetCheckpoint, []any{BigInt(seq)}, &resp); err != nil {
		return nil, err
	}
	if uint64(resp.SequenceNumber) != seq {
		return nil, fmt.Errorf("checkpoint not ready: requested %d, got %d", seq, resp.SequenceNumber)
	}
	return &resp, nil
}

// LatestCheckpointSequenceNumber returns the newest checkpoint known to the node.
func (c *HTTPClient) LatestCheckpointSequenceNumber(ctx context.Context) (uint64, error) {
	var resp BigInt
	if err := c.call(ctx, methodLatestCheckpoint, []any{}, &resp); err != nil {
		return 0, err
	}
	return uint64(resp), nil
}

// transactionOptions requests effects, input, events and the raw transaction.
var transactionOptions = map[string]bool{
	"showInput":         true,
	"showRawInput":      true,
	"showEffects":       true,
	"showEvents":        true,
	"showObjectChanges": true,
}

// MultiGetTransactionBlocks fetches full transaction responses for the given digests.
func (c *HTTPClient) MultiGetTransactionBlocks(ctx context.Context, digests []string) ([]TransactionBlockResponse, error) {
	var resp []TransactionBlockResponse
	if err := c.call(ctx, methodMultiGetTransactions, []any{digests, transactionOptions}, &resp); err != nil {
		return nil, err
	}
	if len(resp) != len(digests) {
		return nil, fmt.Errorf("multi-get transactions: requested %d, got %d", len(digests), len(resp))
	}
	return resp, nil
}

// pastObjectOptions requests everything the classifier needs to build collections and tokens.
var pastObjectOptions = map[string]bool{
	"showType":                true,
	"showOwner":               true,
	"showPreviousTransaction": true,
	"showContent":             true,
	"showDisplay":             true,
	"showBcs":                 true,
}

// TryMultiGetPastObjects resolves objects at specific versions.
func (c *HTTPClient) TryMultiGetPastObjects(ctx context.Context, reqs []PastObjectRequest) ([]PastObjectResponse, error) {
	var resp []PastObjectResponse
	if err := c.call(ctx, methodTryMultiGetPastObject, []any{reqs, pastObjectOptions}, &resp); err != nil {
		return nil, err
	}
	if len(resp) != len(reqs) {
		return nil, fmt.Errorf("multi-get past objects: requested %d, got %d", len(reqs), len(resp))
	}
	return resp, nil
}
