// Package deployservice is an HTTP JSON-RPC 2.0 client for the token deploy service.
package deployservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"token-deploy-wizard/internal/deploy"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/observability"
)

// MethodDeployToken is the RPC method that submits a token deployment.
const MethodDeployToken = "deployToken"

// IdempotencyHeader carries the deployment ID alongside the RPC params.
const IdempotencyHeader = "Idempotency-Key"

// Default configuration values.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client implements deploy.Deployer using HTTP JSON-RPC 2.0.
type Client struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

var _ deploy.Deployer = (*Client)(nil)

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new deploy service client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends the draft and fee quote to the deploy service.
// A JSON-RPC error is returned as *RPCError whose message is the service's own text.
//
// deployToken is not idempotent on the service side, so a request is resent only
// when it never left this process (dial failure) or the service refused it with 429.
// Any other failure ends the attempt.
func (c *Client) Submit(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown) (domain.DeployResult, error) {
	params := []interface{}{toWireDraft(draft), toWireFees(fees), wireSubmission{DeploymentID: deploymentID}}

	var result deployTokenResult
	if err := c.call(ctx, MethodDeployToken, deploymentID, params, &result); err != nil {
		return domain.DeployResult{}, err
	}
	if result.TransactionID == "" {
		return domain.DeployResult{}, fmt.Errorf("deploy service returned no transaction id")
	}

	return domain.DeployResult{
		TransactionID: result.TransactionID,
		ContractID:    result.ContractID,
	}, nil
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error returned by the deploy service.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error returns the service message unchanged so it can be shown to the user.
func (e *RPCError) Error() string {
	return e.Message
}

type wireImage struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Data     []byte `json:"data"` // base64 on the wire
}

type wireMetadata struct {
	Description string     `json:"description"`
	Image       *wireImage `json:"image"`
}

type wireDraft struct {
	Name          string        `json:"name"`
	Symbol        string        `json:"symbol"`
	Decimals      int           `json:"decimals"`
	InitialSupply string        `json:"initialSupply"`
	AdminWallet   string        `json:"adminWallet"`
	Metadata      *wireMetadata `json:"metadata,omitempty"`
}

type wireFees struct {
	BaseFee     decimal.Decimal `json:"baseFee"`
	MetadataFee decimal.Decimal `json:"metadataFee"`
	TotalFee    decimal.Decimal `json:"totalFee"`
	Unit        string          `json:"unit"`
}

type wireSubmission struct {
	DeploymentID string `json:"deploymentId"`
}

type deployTokenResult struct {
	TransactionID string `json:"transactionId"`
	ContractID    string `json:"contractId"`
}

func toWireDraft(d domain.TokenDraft) wireDraft {
	w := wireDraft{
		Name:          d.Name,
		Symbol:        d.Symbol,
		Decimals:      d.Decimals,
		InitialSupply: d.InitialSupply,
		AdminWallet:   d.AdminWallet,
	}
	if d.Metadata != nil {
		w.Metadata = &wireMetadata{Description: d.Metadata.Description}
		if img := d.Metadata.Image; img != nil {
			w.Metadata.Image = &wireImage{
				Name:     img.Name,
				MimeType: img.MimeType,
				Size:     img.Size,
				Data:     img.Data,
			}
		}
	}
	return w
}

func toWireFees(f domain.FeeBreakdown) wireFees {
	return wireFees{
		BaseFee:     f.BaseFee,
		MetadataFee: f.MetadataFee,
		TotalFee:    f.TotalFee,
		Unit:        f.Unit,
	}
}

// errRetryable marks failures that prove the service did not process the request.
var errRetryable = errors.New("request not processed")

// call performs a JSON-RPC call, retrying with exponential backoff only on errRetryable.
func (c *Client) call(ctx context.Context, method, idempotencyKey string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqID := c.requestID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		err := c.do(ctx, idempotencyKey, body, result)
		if err == nil || !errors.Is(err, errRetryable) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// do sends one request. Only failures wrapped in errRetryable may be retried.
func (c *Client) do(ctx context.Context, idempotencyKey string, body []byte, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isDialError(err) {
			return fmt.Errorf("http request: %w: %w", errRetryable, err)
		}
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("unexpected status %d: %w", resp.StatusCode, errRetryable)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// isDialError reports whether err happened before any byte reached the service.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
