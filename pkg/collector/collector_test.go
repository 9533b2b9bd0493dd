package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/pkg/platform/httpclient"
)

func testHTTP() *httpclient.Client {
	return httpclient.NewClient(httpclient.ClientOptions{
		Timeout:         time.Second,
		RequestsPerSec:  1000,
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
	})
}

func rpcServer(t *testing.T, handler func(method string, params []interface{}) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		_ = json.NewEncoder(w).Encode(handler(req.Method, req.Params))
	}))
}

func TestFetchTokenAccounts(t *testing.T) {
	srv := rpcServer(t, func(method string, params []interface{}) interface{} {
		assert.Equal(t, "getTokenAccountsByOwner", method)
		require.Len(t, params, 3)
		assert.Equal(t, "wallet1", params[0])
		assert.Equal(t, map[string]interface{}{"programId": splTokenProgram}, params[1])
		return map[string]interface{}{
			"jsonrpc": "2.0", "id": 1,
			"result": map[string]interface{}{
				"value": []interface{}{
					map[string]interface{}{
						"pubkey": "acct1",
						"account": map[string]interface{}{"data": map[string]interface{}{"parsed": map[string]interface{}{
							"info": map[string]interface{}{
								"mint":        "mintA",
								"tokenAmount": map[string]interface{}{"amount": "1500", "decimals": 3, "uiAmount": 1.5},
							},
						}}},
					},
					map[string]interface{}{"pubkey": "acct2"},
				},
			},
		}
	})
	defer srv.Close()

	holdings, err := NewSolanaClient(srv.URL, testHTTP()).FetchTokenAccounts(context.Background(), "wallet1")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, TokenHolding{Account: "acct1", Mint: "mintA", Amount: "1500", UIAmount: 1.5, Decimals: 3}, holdings[0])
	assert.Equal(t, "acct2", holdings[1].Account)
}

func TestFetchRecentTransactions(t *testing.T) {
	srv := rpcServer(t, func(method string, params []interface{}) interface{} {
		assert.Equal(t, "getSignaturesForAddress", method)
		assert.Equal(t, map[string]interface{}{"limit": float64(2)}, params[1])
		return map[string]interface{}{
			"jsonrpc": "2.0", "id": 1,
			"result": []interface{}{
				map[string]interface{}{"signature": "s1", "slot": 10},
				map[string]interface{}{"signature": "s2", "slot": 9},
				map[string]interface{}{"signature": "s3", "slot": 8},
			},
		}
	})
	defer srv.Close()

	sigs, err := NewSolanaClient(srv.URL, testHTTP()).FetchRecentTransactions(context.Background(), "wallet1", 2)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, "s1", sigs[0].Signature)
	assert.Equal(t, uint64(9), sigs[1].Slot)
}

func TestRPCErrorIsReturned(t *testing.T) {
	srv := rpcServer(t, func(string, []interface{}) interface{} {
		return map[string]interface{}{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]interface{}{"code": -32602, "message": "Invalid param: WrongSize"},
		}
	})
	defer srv.Close()

	_, err := NewSolanaClient(srv.URL, testHTTP()).FetchTokenAccounts(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid param")
}

func TestFetchTokenPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		if r.URL.Query().Get("ids") == "solana" {
			_, _ = w.Write([]byte(`{"solana":{"usd":142.37}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewPriceClient(srv.URL+"/", testHTTP())

	price, err := client.FetchTokenPrice(context.Background(), "Solana")
	require.NoError(t, err)
	assert.Equal(t, 142.37, price)

	price, err = client.FetchTokenPrice(context.Background(), "unknown-coin")
	assert.ErrorIs(t, err, ErrPriceNotFound)
	assert.Equal(t, 0.0, price)

	_, err = client.FetchTokenPrice(context.Background(), " ")
	assert.Error(t, err)
}

func TestFetchTokenPriceServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	price, err := NewPriceClient(srv.URL, testHTTP()).FetchTokenPrice(context.Background(), "solana")
	assert.Error(t, err)
	assert.Equal(t, 0.0, price)
}
