package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cosmos/btcutil/base58"
	log "github.com/sirupsen/logrus"

	"seeker-scratch/internal/address"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	maxErrorBodyBytes     = 512

	commitmentConfirmed = "confirmed"
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Client is a JSON-RPC implementation of Ledger.
type Client struct {
	endpoint     string
	http         *http.Client
	pollInterval time.Duration
	nextID       atomic.Uint64
}

var _ Ledger = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	c := &Client{
		endpoint:     endpoint,
		http:         &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type contextValue[T any] struct {
	Value T `json:"value"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) (err error) {
	body, errMarshal := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if errMarshal != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if errReq != nil {
		return fmt.Errorf("failed to create %s request: %w", method, errReq)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := c.http.Do(req)
	if errDo != nil {
		return fmt.Errorf("%s: %w", method, errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", errClose)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%s: status=%d body=%s", method, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var decoded rpcResponse
	if errDecode := json.NewDecoder(resp.Body).Decode(&decoded); errDecode != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, errDecode)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	if errResult := json.Unmarshal(decoded.Result, out); errResult != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, errResult)
	}
	return nil
}

type accountInfo struct {
	Lamports uint64   `json:"lamports"`
	Data     []string `json:"data"`
}

func (a *accountInfo) bytes() ([]byte, error) {
	if len(a.Data) == 0 {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(a.Data[0])
}

func (c *Client) GetAccount(ctx context.Context, addr address.PublicKey) ([]byte, error) {
	var result contextValue[*accountInfo]
	params := []any{addr.String(), map[string]any{"encoding": "base64", "commitment": commitmentConfirmed}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, ErrAccountNotFound
	}
	data, err := result.Value.bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to decode account data: %w", err)
	}
	return data, nil
}

func (c *Client) GetBalance(ctx context.Context, owner address.PublicKey) (uint64, error) {
	var result contextValue[uint64]
	params := []any{owner.String(), map[string]any{"commitment": commitmentConfirmed}}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

func (c *Client) LatestCheckpoint(ctx context.Context) (Checkpoint, error) {
	var result contextValue[Checkpoint]
	params := []any{map[string]any{"commitment": commitmentConfirmed}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return Checkpoint{}, err
	}
	if _, err := result.Value.hash(); err != nil {
		return Checkpoint{}, err
	}
	return result.Value, nil
}

func (c *Client) Submit(ctx context.Context, tx []byte) (Signature, error) {
	var text string
	params := []any{
		base64.StdEncoding.EncodeToString(tx),
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": commitmentConfirmed,
		},
	}
	if err := c.call(ctx, "sendTransaction", params, &text); err != nil {
		return Signature{}, err
	}
	return ParseSignature(text)
}

type signatureStatus struct {
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

func (c *Client) signatureStatus(ctx context.Context, sig Signature) (*signatureStatus, error) {
	var result contextValue[[]*signatureStatus]
	params := []any{[]string{sig.String()}, map[string]any{"searchTransactionHistory": false}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

func (c *Client) blockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	params := []any{map[string]any{"commitment": commitmentConfirmed}}
	if err := c.call(ctx, "getBlockHeight", params, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// Confirm polls the signature status until the transaction lands at
// confirmed commitment, fails, or the block height passes the checkpoint's
// expiry. The caller's context bounds the wait independently.
func (c *Client) Confirm(ctx context.Context, sig Signature, cp Checkpoint) (Confirmation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.signatureStatus(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return Confirmation{}, ctx.Err()
			}
			log.WithError(err).Debug("ledger: signature status poll failed")
		} else if status != nil {
			if !isNullJSON(status.Err) {
				return Confirmation{Status: StatusFailed, Err: DescribeTransactionError(status.Err)}, nil
			}
			if status.ConfirmationStatus == commitmentConfirmed || status.ConfirmationStatus == "finalized" {
				return Confirmation{Status: StatusConfirmed}, nil
			}
		}

		height, err := c.blockHeight(ctx)
		if err == nil && height > cp.LastValidBlockHeight {
			return Confirmation{Status: StatusExpired}, nil
		}

		select {
		case <-ctx.Done():
			return Confirmation{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

type programAccount struct {
	Pubkey  string      `json:"pubkey"`
	Account accountInfo `json:"account"`
}

func (c *Client) GetProgramAccounts(ctx context.Context, program address.PublicKey, filters ...Filter) ([]KeyedAccount, error) {
	config := map[string]any{"encoding": "base64", "commitment": commitmentConfirmed}
	if len(filters) > 0 {
		memcmp := make([]map[string]any, 0, len(filters))
		for _, f := range filters {
			memcmp = append(memcmp, map[string]any{
				"memcmp": map[string]any{"offset": f.Offset, "bytes": base58.Encode(f.Bytes)},
			})
		}
		config["filters"] = memcmp
	}

	var result []programAccount
	if err := c.call(ctx, "getProgramAccounts", []any{program.String(), config}, &result); err != nil {
		return nil, err
	}

	accounts := make([]KeyedAccount, 0, len(result))
	for _, item := range result {
		key, err := address.ParsePublicKey(item.Pubkey)
		if err != nil {
			log.WithError(err).WithField("pubkey", item.Pubkey).Debug("ledger: skipping program account")
			continue
		}
		data, err := item.Account.bytes()
		if err != nil {
			log.WithError(err).WithField("pubkey", item.Pubkey).Debug("ledger: skipping program account")
			continue
		}
		accounts = append(accounts, KeyedAccount{Address: key, Lamports: item.Account.Lamports, Data: data})
	}
	return accounts, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
