package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/tranche-vault/pkg/rate"
	"github.com/code-payments/tranche-vault/pkg/retry"
	"github.com/code-payments/tranche-vault/pkg/retry/backoff"
)

// JSON-RPC error codes returned by validators.
const (
	codeInvalidParam  = -32602
	codeNodeUnhealthy = -32005
	codeTooMany       = 429
)

const blockhashTTL = 2 * time.Second

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrNoBalance     = errors.New("no balance")

	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

// AccountInfo is the raw state of an on-chain account.
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// Client is the subset of the Solana JSON RPC API needed to read vault state,
// fund payers on test clusters and submit vault transactions.
//
// Reference: https://docs.solana.com/api/http
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetBalance(ed25519.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error)
	GetLatestBlockhash() (Blockhash, error)
	GetSignatureStatuses([]Signature) ([]*SignatureStatus, error)
	GetTokenAccountBalance(ed25519.PublicKey, Commitment) (uint64, uint64, error)
	RequestAirdrop(ed25519.PublicKey, uint64, Commitment) (Signature, error)
	SubmitTransaction(Transaction, Commitment) (Signature, error)
}

type client struct {
	log     *logrus.Entry
	rpc     jsonrpc.RPCClient
	limiter rate.Limiter
	retrier retry.Retrier

	cacheMu      sync.RWMutex
	cachedHash   Blockhash
	cachedHashAt time.Time
}

// New returns a client for endpoint with no local rate limiting.
func New(endpoint string) Client {
	return NewWithRateLimiter(endpoint, &rate.NoLimiter{})
}

// NewWithRateLimiter returns a client whose calls are gated per RPC method
// by limiter. Limited calls back off and retry like a 429 from the node.
func NewWithRateLimiter(endpoint string, limiter rate.Limiter) Client {
	return &client{
		log:     logrus.StandardLogger().WithField("type", "solana/client"),
		rpc:     jsonrpc.NewClient(endpoint),
		limiter: limiter,
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
	}
}

// call invokes method, retrying transient node failures. Errors other than
// rate limiting and node health are returned as the original *jsonrpc.RPCError.
func (c *client) call(out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(func() error {
		allowed, err := c.limiter.Allow(method)
		if err != nil {
			return errors.Wrap(err, "error checking rate limit")
		}
		if !allowed {
			c.log.WithField("method", method).Debug("locally rate limited")
			return errRateLimited
		}

		err = c.rpc.CallFor(out, method, params...)
		rpcErr, ok := err.(*jsonrpc.RPCError)
		switch {
		case !ok:
			return err
		case rpcErr.Code == codeTooMany:
			c.log.WithField("method", method).Warn("rate limited by node")
			return errRateLimited
		case rpcErr.Code >= 500, rpcErr.Code == codeNodeUnhealthy:
			return errServiceError
		default:
			return err
		}
	})
	return err
}

func isInvalidParam(err error) bool {
	rpcErr, ok := errors.Cause(err).(*jsonrpc.RPCError)
	return ok && rpcErr.Code == codeInvalidParam
}

func decodeSignature(encoded string) (Signature, error) {
	var sig Signature

	raw, err := base58.Decode(encoded)
	if err != nil {
		return sig, errors.Wrap(err, "invalid signature in response")
	}
	if len(raw) != len(sig) {
		return sig, errors.Errorf("signature in response has length %d", len(raw))
	}

	copy(sig[:], raw)
	return sig, nil
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	var info AccountInfo

	config := struct {
		Commitment Commitment `json:"commitment"`
		Encoding   string     `json:"encoding"`
	}{commitment, "base64"}

	var resp struct {
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}
	if err := c.call(&resp, "getAccountInfo", base58.Encode(account), config); err != nil {
		return info, errors.Wrap(err, "getAccountInfo")
	}

	value := resp.Value
	if value == nil {
		return info, ErrNoAccountInfo
	}
	if len(value.Data) == 0 {
		return info, errors.New("getAccountInfo: response has no data")
	}

	owner, err := base58.Decode(value.Owner)
	if err != nil {
		return info, errors.Wrap(err, "getAccountInfo: invalid owner")
	}
	data, err := base64.StdEncoding.DecodeString(value.Data[0])
	if err != nil {
		return info, errors.Wrap(err, "getAccountInfo: invalid data")
	}

	return AccountInfo{
		Data:       data,
		Owner:      owner,
		Lamports:   value.Lamports,
		Executable: value.Executable,
	}, nil
}

func (c *client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	var resp struct {
		Value *uint64 `json:"value"`
	}
	err := c.call(&resp, "getBalance", base58.Encode(account), CommitmentProcessed)
	switch {
	case isInvalidParam(err):
		return 0, ErrNoBalance
	case err != nil:
		return 0, errors.Wrap(err, "getBalance")
	case resp.Value == nil:
		return 0, errors.New("getBalance: response has no value")
	}
	return *resp.Value, nil
}

func (c *client) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	var lamports uint64
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", size); err != nil {
		return 0, errors.Wrap(err, "getMinimumBalanceForRentExemption")
	}
	return lamports, nil
}

// GetLatestBlockhash serves a cached hash for up to a jittered blockhashTTL so
// that concurrent submitters don't all refresh at once.
func (c *client) GetLatestBlockhash() (Blockhash, error) {
	ttl := time.Duration(float64(blockhashTTL) * (0.8 + rand.Float64()))

	c.cacheMu.RLock()
	hash, fresh := c.cachedHash, time.Since(c.cachedHashAt) < ttl
	c.cacheMu.RUnlock()
	if fresh && hash != (Blockhash{}) {
		return hash, nil
	}

	var resp struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(&resp, "getLatestBlockhash"); err != nil {
		return Blockhash{}, errors.Wrap(err, "getLatestBlockhash")
	}

	raw, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return Blockhash{}, errors.Wrap(err, "getLatestBlockhash: invalid hash")
	}
	copy(hash[:], raw)

	c.cacheMu.Lock()
	c.cachedHash, c.cachedHashAt = hash, time.Now()
	c.cacheMu.Unlock()

	return hash, nil
}

func (c *client) GetSignatureStatuses(sigs []Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i := range sigs {
		encoded[i] = base58.Encode(sigs[i][:])
	}

	config := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{true}

	var resp struct {
		Value []*struct {
			Slot               uint64          `json:"slot"`
			Confirmations      *int            `json:"confirmations"`
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	if err := c.call(&resp, "getSignatureStatuses", encoded, config); err != nil {
		return nil, errors.Wrap(err, "getSignatureStatuses")
	}
	if len(resp.Value) != len(sigs) {
		return nil, errors.Errorf("getSignatureStatuses: requested %d statuses, got %d", len(sigs), len(resp.Value))
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil {
			continue
		}

		status := &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}
		if len(v.Err) > 0 && !bytes.Equal(v.Err, []byte("null")) {
			var raw interface{}
			if err := json.Unmarshal(v.Err, &raw); err != nil {
				return nil, errors.Wrap(err, "getSignatureStatuses: invalid err")
			}

			txErr, err := ParseTransactionError(raw)
			if err != nil {
				return nil, errors.Wrap(err, "getSignatureStatuses: invalid err")
			}
			status.ErrorResult = txErr
		}
		statuses[i] = status
	}

	return statuses, nil
}

// GetTokenAccountBalance returns the account's balance in base units and the
// slot it was observed at.
func (c *client) GetTokenAccountBalance(account ed25519.PublicKey, commitment Commitment) (uint64, uint64, error) {
	var resp struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	err := c.call(&resp, "getTokenAccountBalance", base58.Encode(account), commitment)
	switch {
	case isInvalidParam(err):
		return 0, 0, ErrNoBalance
	case err != nil:
		return 0, 0, errors.Wrap(err, "getTokenAccountBalance")
	}

	amount, err := strconv.ParseUint(resp.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "getTokenAccountBalance: invalid amount")
	}
	return amount, resp.Context.Slot, nil
}

// RequestAirdrop asks the cluster's faucet for lamports. Only local, devnet
// and testnet clusters have one.
func (c *client) RequestAirdrop(account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var encoded string
	if err := c.call(&encoded, "requestAirdrop", base58.Encode(account), lamports, commitment); err != nil {
		return Signature{}, errors.Wrap(err, "requestAirdrop")
	}

	sig, err := decodeSignature(encoded)
	if err != nil {
		return Signature{}, err
	}
	if sig == (Signature{}) {
		return Signature{}, errors.New("requestAirdrop: empty signature")
	}
	return sig, nil
}

// SubmitTransaction sends the transaction without preflight. Program
// failures reported by the node are returned as *TransactionError.
func (c *client) SubmitTransaction(txn Transaction, commitment Commitment) (Signature, error) {
	sig := txn.Signatures[0]

	if err := txn.CheckSize(); err != nil {
		return sig, err
	}

	config := struct {
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
		Encoding            string `json:"encoding"`
	}{true, commitment.Commitment, "base64"}

	var ignored string
	err := c.call(&ignored, "sendTransaction", base64.StdEncoding.EncodeToString(txn.Marshal()), config)
	if err == nil {
		return sig, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrap(err, "sendTransaction")
	}
	if txErr, parseErr := ParseRPCError(rpcErr); parseErr == nil && txErr != nil {
		return sig, txErr
	}
	return sig, err
}
