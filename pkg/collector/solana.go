package collector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SignalForge/pkg/platform/httpclient"
)

// SPL token program owning every fungible token account
const splTokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SolanaClient JSON-RPC client for wallet holdings and signatures
type SolanaClient struct {
	http   *httpclient.Client
	rpcURL string
	logger zerolog.Logger
}

// NewSolanaClient creates a client for the given RPC endpoint
func NewSolanaClient(rpcURL string, client *httpclient.Client) *SolanaClient {
	return &SolanaClient{
		http:   client,
		rpcURL: rpcURL,
		logger: log.With().Str("component", "solana_rpc").Logger(),
	}
}

// rpcCall performs a JSON-RPC call against the configured endpoint
func (c *SolanaClient) rpcCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	var resp rpcResponse
	err := c.http.PostJSON(ctx, c.rpcURL, rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%s: rpc error %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}

type tokenAccountsResult struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount   string   `json:"amount"`
							Decimals int      `json:"decimals"`
							UIAmount *float64 `json:"uiAmount"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// FetchTokenAccounts lists the SPL token accounts owned by address
func (c *SolanaClient) FetchTokenAccounts(ctx context.Context, address string) ([]TokenHolding, error) {
	raw, err := c.rpcCall(ctx, "getTokenAccountsByOwner", []interface{}{
		address,
		map[string]string{"programId": splTokenProgram},
		map[string]string{"encoding": "jsonParsed"},
	})
	if err != nil {
		return nil, err
	}

	var result tokenAccountsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode token accounts: %w", err)
	}

	holdings := make([]TokenHolding, 0, len(result.Value))
	for _, v := range result.Value {
		info := v.Account.Data.Parsed.Info
		h := TokenHolding{
			Account:  v.Pubkey,
			Mint:     info.Mint,
			Amount:   info.TokenAmount.Amount,
			Decimals: info.TokenAmount.Decimals,
		}
		if info.TokenAmount.UIAmount != nil {
			h.UIAmount = *info.TokenAmount.UIAmount
		}
		holdings = append(holdings, h)
	}

	if len(holdings) == 0 {
		c.logger.Info().Str("wallet", address).Msg("Wallet is empty")
	} else {
		c.logger.Info().Str("wallet", address).Int("tokens", len(holdings)).Msg("Fetched wallet balance")
	}
	return holdings, nil
}

// FetchRecentTransactions returns up to limit of the newest signatures for address
func (c *SolanaClient) FetchRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionSignature, error) {
	raw, err := c.rpcCall(ctx, "getSignaturesForAddress", []interface{}{
		address,
		map[string]int{"limit": limit},
	})
	if err != nil {
		return nil, err
	}

	var sigs []TransactionSignature
	if err := json.Unmarshal(raw, &sigs); err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	if len(sigs) > limit {
		sigs = sigs[:limit]
	}

	c.logger.Info().Str("wallet", address).Int("transactions", len(sigs)).Msg("Fetched transactions")
	return sigs, nil
}
