package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/pkg/model"
)

// resetFlags restores every flag changed by a previous run to its default
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if f.Value.Type() == "stringArray" {
			trainConditions = nil
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// walletRPC answers the two Solana calls the scanner makes
func walletRPC(t *testing.T, tokens, txs int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "getTokenAccountsByOwner":
			accounts := make([]interface{}, tokens)
			for i := range accounts {
				accounts[i] = map[string]interface{}{"pubkey": fmt.Sprintf("acct%d", i)}
			}
			result = map[string]interface{}{"value": accounts}
		case "getSignaturesForAddress":
			sigs := make([]interface{}, txs)
			for i := range sigs {
				sigs[i] = map[string]interface{}{"signature": fmt.Sprintf("sig%d", i), "slot": 100 - i}
			}
			result = sigs
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig writes a base config keeping every file under dir
func testConfig(t *testing.T, dir, rpcURL string) string {
	t.Helper()
	content := fmt.Sprintf(`rpc_url: %s
log_level: error
log_file: %s
storage:
  patterns: file
  pattern_file: %s
  signals_dir: %s
  reports_dir: %s
database:
  driver: sqlite
  dsn: %s
collector:
  requests_per_sec: 1000
  max_retries: 0
`,
		rpcURL,
		filepath.Join(dir, "logs", "cli.log"),
		filepath.Join(dir, "patterns.json"),
		filepath.Join(dir, "signals"),
		filepath.Join(dir, "reports"),
		filepath.Join(dir, "cli.db"),
	)
	path := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	base := testConfig(t, dir, "http://127.0.0.1:1")

	tests := []struct {
		name       string
		args       []string
		address    string
		rec        model.Recommendation
		confidence float64
		risk       float64
		patterns   []string
	}{
		{
			name:       "empty wallet",
			args:       []string{"--tokens", "0", "--txs", "0"},
			address:    "manual",
			rec:        model.RecommendationAvoid,
			confidence: 0.1,
			risk:       1.5,
			patterns:   []string{"Empty Wallet"},
		},
		{
			name:       "whale accumulating",
			args:       []string{"--tokens", "25", "--txs", "3", "--wallet", "whale-1"},
			address:    "whale-1",
			rec:        model.RecommendationBuy,
			confidence: 0.7,
			risk:       6.5,
			patterns:   []string{"Whale Wallet", "Accumulation Behavior"},
		},
		{
			name:       "no pattern",
			args:       []string{"--tokens", "1", "--txs", "10"},
			address:    "manual",
			rec:        model.RecommendationHold,
			confidence: 0.3,
			risk:       1.0,
			patterns:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"evaluate", "--config", base, "--strategy", "", "--json"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)

			var a model.Analysis
			require.NoError(t, json.Unmarshal([]byte(out), &a))
			assert.Equal(t, tt.address, a.Signal.Address)
			assert.Equal(t, tt.rec, a.Signal.Recommendation)
			assert.InDelta(t, tt.confidence, a.Signal.Confidence, 1e-9)
			assert.Equal(t, tt.risk, a.Signal.RiskScore)
			assert.Equal(t, model.AnnotationNotAvailable, a.Signal.Annotation)
			if len(tt.patterns) == 0 {
				assert.Empty(t, a.Patterns)
			} else {
				assert.Equal(t, tt.patterns, model.PatternNames(a.Patterns))
			}
		})
	}
}

func TestEvaluateRejectsNegativeCounts(t *testing.T) {
	base := testConfig(t, t.TempDir(), "http://127.0.0.1:1")
	_, err := execute(t, "evaluate", "--config", base, "--strategy", "", "--tokens=-1")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestScanCommandReturnsPatterns(t *testing.T) {
	rpc := walletRPC(t, 4, 2)
	base := testConfig(t, t.TempDir(), rpc.URL)

	out, err := execute(t, "scan", "--config", base, "--strategy", "", "--wallet", "wallet-1", "--json")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "wallet-1", got["address"])
	assert.Equal(t, 4.0, got["tokensHeld"])
	assert.Equal(t, 2.0, got["transactionCount"])
	assert.NotContains(t, got, "signal")

	patterns, ok := got["patterns"].([]interface{})
	require.True(t, ok)
	require.Len(t, patterns, 1)
	assert.Equal(t, "Accumulation Behavior", patterns[0].(map[string]interface{})["name"])
}

func TestScanCommandRequiresWallet(t *testing.T) {
	base := testConfig(t, t.TempDir(), "http://127.0.0.1:1")
	_, err := execute(t, "scan", "--config", base, "--strategy", "")
	assert.Error(t, err)
}

func TestSignalCommandDeliversAndHistoryReadsBack(t *testing.T) {
	dir := t.TempDir()
	rpc := walletRPC(t, 4, 2)
	base := testConfig(t, dir, rpc.URL)

	out, err := execute(t, "signal", "--config", base, "--strategy", "", "--wallet", "wallet-1", "--no-export", "--json")
	require.NoError(t, err)
	var a model.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, model.RecommendationBuy, a.Signal.Recommendation)
	assert.InDelta(t, 0.6, a.Signal.Confidence, 1e-9)
	assert.Equal(t, 2.5, a.Signal.RiskScore)

	exports, err := filepath.Glob(filepath.Join(dir, "signals", "*", "*.json"))
	require.NoError(t, err)
	assert.Empty(t, exports)

	out, err = execute(t, "history", "--config", base, "--strategy", "", "--json")
	require.NoError(t, err)
	var records []model.SignalRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Empty(t, records)

	_, err = execute(t, "signal", "--config", base, "--strategy", "", "--wallet", "wallet-1", "--json")
	require.NoError(t, err)

	exports, err = filepath.Glob(filepath.Join(dir, "signals", "*", "*.json"))
	require.NoError(t, err)
	assert.Len(t, exports, 1)
	reports, err := filepath.Glob(filepath.Join(dir, "reports", "*", "*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	out, err = execute(t, "history", "--config", base, "--strategy", "", "--wallet", "wallet-1", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "wallet-1", records[0].Address)
	assert.Equal(t, string(model.RecommendationBuy), records[0].Recommendation)
	assert.Equal(t, "Accumulation Behavior", records[0].Patterns)
}

func TestTrainAndPatternsCommands(t *testing.T) {
	base := testConfig(t, t.TempDir(), "http://127.0.0.1:1")
	common := []string{"--config", base, "--strategy", ""}

	_, err := execute(t, append([]string{"train", "--name", "Light Trader", "--description", "few moves",
		"--condition", "transaction_count<=3", "--condition", "tokens_held>=2"}, common...)...)
	require.NoError(t, err)

	_, err = execute(t, append([]string{"train", "--name", "light trader"}, common...)...)
	assert.ErrorIs(t, err, model.ErrPatternExists)

	out, err := execute(t, append([]string{"patterns", "list", "--json"}, common...)...)
	require.NoError(t, err)
	var rules []model.PatternRule
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "Light Trader", rules[0].Name)
	assert.Len(t, rules[0].Conditions, 2)

	out, err = execute(t, append([]string{"evaluate", "--tokens", "4", "--txs", "1", "--json"}, common...)...)
	require.NoError(t, err)
	var a model.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Contains(t, model.PatternNames(a.Patterns), "Light Trader")

	_, err = execute(t, append([]string{"patterns", "delete", "LIGHT TRADER"}, common...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"patterns", "delete", "Light Trader"}, common...)...)
	assert.ErrorIs(t, err, model.ErrPatternNotFound)

	out, err = execute(t, append([]string{"patterns", "list", "--json"}, common...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	assert.Empty(t, rules)
}

func TestWalletFlagDefaultsAreIndependent(t *testing.T) {
	resetFlags(rootCmd)
	assert.Equal(t, "", walletAddress)
	assert.Equal(t, "manual", evalWallet)
	for _, c := range []*cobra.Command{scanCmd, signalCmd, historyCmd} {
		assert.Equal(t, "", c.Flags().Lookup("wallet").DefValue, c.Name())
	}
	assert.Equal(t, "manual", evaluateCmd.Flags().Lookup("wallet").DefValue)
}
