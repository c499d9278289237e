package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRPCServer(t *testing.T, handler func(method string, params []interface{}) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)

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
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetLatestBlockhash(t *testing.T) {
	server := newRPCServer(t, func(method string, _ []interface{}) (interface{}, *rpcError) {
		require.Equal(t, "getLatestBlockhash", method)
		return map[string]interface{}{
			"value": map[string]interface{}{
				"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
				"lastValidBlockHeight": 3090,
			},
		}, nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(0))
	bh, err := client.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", bh.Hash)
	assert.Equal(t, uint64(3090), bh.LastValidBlockHeight)
}

func TestSendTransaction(t *testing.T) {
	server := newRPCServer(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		require.Equal(t, "sendTransaction", method)
		require.Len(t, params, 2)
		assert.Equal(t, "dHg=", params[0])

		opts, ok := params[1].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "base64", opts["encoding"])
		assert.Equal(t, true, opts["skipPreflight"])

		return "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW", nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(0))
	sig, err := client.SendTransaction(context.Background(), "dHg=")
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestSendTransaction_RPCErrorNotRetried(t *testing.T) {
	calls := 0
	server := newRPCServer(t, func(string, []interface{}) (interface{}, *rpcError) {
		calls++
		return nil, &rpcError{Code: -32002, Message: "Transaction simulation failed"}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3))
	_, err := client.SendTransaction(context.Background(), "dHg=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction simulation failed")
	assert.Equal(t, 1, calls, "RPC-level errors must not be retried")
}

func TestGetBalance(t *testing.T) {
	server := newRPCServer(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		require.Equal(t, "getBalance", method)
		assert.Equal(t, "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", params[0])
		return map[string]interface{}{"value": 1500000000}, nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(0))
	balance, err := client.GetBalance(context.Background(), "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	require.NoError(t, err)
	assert.Equal(t, uint64(1500000000), balance)
}

func TestCall_RetriesOnServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":42}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(0))
	balance, err := client.GetBalance(context.Background(), "pubkey")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), balance)
	assert.Equal(t, 3, calls)
}
