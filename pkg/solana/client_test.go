package solana

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureStatus(t *testing.T) {
	zero, one := 0, 1

	testCases := []struct {
		s         SignatureStatus
		confirmed bool
		finalized bool
	}{
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "random",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: levelProcessed,
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &one,
				ConfirmationStatus: "",
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: levelConfirmed,
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: levelFinalized,
			},
			confirmed: true,
			finalized: true,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.confirmed, tc.s.Confirmed())
		assert.Equal(t, tc.finalized, tc.s.Finalized())
	}
}

type rpcRequest struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// newRPCServer serves JSON-RPC requests from handler, which returns either a
// result or an error object for each method call.
func newRPCServer(t *testing.T, handler func(req rpcRequest) (result interface{}, rpcErr map[string]interface{})) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClient_GetAccountInfo(t *testing.T) {
	keys := generateKeys(t, 2)
	data := []byte{1, 2, 3, 4}

	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		assert.Equal(t, "getAccountInfo", req.Method)

		var params []interface{}
		require.NoError(t, json.Unmarshal(req.Params, &params))
		if params[0] == base58.Encode(public(keys[1])) {
			return map[string]interface{}{"value": nil}, nil
		}

		return map[string]interface{}{
			"value": map[string]interface{}{
				"lamports":   1_000,
				"owner":      base58.Encode(public(keys[1])),
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
			},
		}, nil
	})
	defer server.Close()

	client := New(server.URL)

	info, err := client.GetAccountInfo(public(keys[0]), CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, data, info.Data)
	assert.EqualValues(t, 1_000, info.Lamports)
	assert.EqualValues(t, public(keys[1]), info.Owner)

	_, err = client.GetAccountInfo(public(keys[1]), CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetTokenAccountBalance(t *testing.T) {
	keys := generateKeys(t, 2)

	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		var params []interface{}
		require.NoError(t, json.Unmarshal(req.Params, &params))
		if params[0] == base58.Encode(public(keys[1])) {
			return nil, map[string]interface{}{"code": codeInvalidParam, "message": "Invalid param: could not find account"}
		}

		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 42},
			"value":   map[string]interface{}{"amount": "1500000", "decimals": 6},
		}, nil
	})
	defer server.Close()

	client := New(server.URL)

	balance, slot, err := client.GetTokenAccountBalance(public(keys[0]), CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, 1_500_000, balance)
	assert.EqualValues(t, 42, slot)

	_, _, err = client.GetTokenAccountBalance(public(keys[1]), CommitmentFinalized)
	assert.Equal(t, ErrNoBalance, err)
}

func TestClient_SubmitTransaction(t *testing.T) {
	keys := generateKeys(t, 2)

	var fail bool
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		assert.Equal(t, "sendTransaction", req.Method)

		var params []json.RawMessage
		require.NoError(t, json.Unmarshal(req.Params, &params))

		var encoded string
		require.NoError(t, json.Unmarshal(params[0], &encoded))
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)

		var txn Transaction
		require.NoError(t, txn.Unmarshal(raw))

		if fail {
			return nil, map[string]interface{}{
				"code":    -32002,
				"message": "Transaction simulation failed",
				"data": map[string]interface{}{
					"err": map[string]interface{}{
						"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6000}},
					},
				},
			}
		}
		return base58.Encode(txn.Signature()), nil
	})
	defer server.Close()

	client := New(server.URL)

	txn := NewTransaction(public(keys[0]), NewInstruction(public(keys[1]), []byte{1}))
	require.NoError(t, txn.Sign(keys[0]))

	sig, err := client.SubmitTransaction(txn, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, txn.Signatures[0], sig)

	fail = true
	_, err = client.SubmitTransaction(txn, CommitmentConfirmed)
	require.Error(t, err)

	custom, ok := GetCustomError(err)
	require.True(t, ok)
	assert.Equal(t, CustomError(6000), custom)
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		assert.Equal(t, "getSignatureStatuses", req.Method)

		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
			"value": []interface{}{
				nil,
				map[string]interface{}{"slot": 90, "confirmations": nil, "confirmationStatus": "finalized", "err": nil},
				map[string]interface{}{"slot": 95, "confirmations": 1, "confirmationStatus": "confirmed", "err": map[string]interface{}{
					"InstructionError": []interface{}{1, map[string]interface{}{"Custom": 6001}},
				}},
			},
		}, nil
	})
	defer server.Close()

	client := New(server.URL)

	statuses, err := client.GetSignatureStatuses(make([]Signature, 3))
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Nil(t, statuses[0])

	require.NotNil(t, statuses[1])
	assert.True(t, statuses[1].Finalized())
	assert.Nil(t, statuses[1].ErrorResult)

	require.NotNil(t, statuses[2])
	assert.True(t, statuses[2].Confirmed())
	require.NotNil(t, statuses[2].ErrorResult)
	assert.Equal(t, 1, statuses[2].ErrorResult.InstructionError().Index)

	_, err = client.GetSignatureStatuses(make([]Signature, 2))
	assert.Error(t, err)
}

type denyOnceLimiter struct {
	mu     sync.Mutex
	denied map[string]bool
}

func (l *denyOnceLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.denied[key] {
		return true, nil
	}
	l.denied[key] = true
	return false, nil
}

func TestClient_RateLimited(t *testing.T) {
	var calls int
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		calls++
		return map[string]interface{}{"value": 100}, nil
	})
	defer server.Close()

	client := NewWithRateLimiter(server.URL, &denyOnceLimiter{denied: make(map[string]bool)})

	balance, err := client.GetBalance(public(generateKeys(t, 1)[0]))
	require.NoError(t, err)
	assert.EqualValues(t, 100, balance)
	assert.Equal(t, 1, calls)
}

func TestClient_RequestAirdrop(t *testing.T) {
	keys := generateKeys(t, 1)
	sig := Signature{1, 2, 3}

	var empty bool
	server := newRPCServer(t, func(req rpcRequest) (interface{}, map[string]interface{}) {
		assert.Equal(t, "requestAirdrop", req.Method)

		var params []interface{}
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, base58.Encode(public(keys[0])), params[0])
		assert.EqualValues(t, 1_000_000_000, params[1])

		if empty {
			return base58.Encode(make([]byte, len(sig))), nil
		}
		return base58.Encode(sig[:]), nil
	})
	defer server.Close()

	client := New(server.URL)

	actual, err := client.RequestAirdrop(public(keys[0]), 1_000_000_000, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, sig, actual)

	empty = true
	_, err = client.RequestAirdrop(public(keys[0]), 1_000_000_000, CommitmentConfirmed)
	assert.Error(t, err)
}

func TestParseCommitment(t *testing.T) {
	for level, expected := range map[string]Commitment{
		"processed": CommitmentProcessed,
		"confirmed": CommitmentConfirmed,
		"finalized": CommitmentFinalized,
	} {
		actual, err := ParseCommitment(level)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseCommitment("max")
	assert.Error(t, err)
}
