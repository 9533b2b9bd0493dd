package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"SignalForge/pkg/collector"
	"SignalForge/pkg/model"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchTokenAccounts(ctx context.Context, address string) ([]collector.TokenHolding, error) {
	args := m.Called(address)
	holdings, _ := args.Get(0).([]collector.TokenHolding)
	return holdings, args.Error(1)
}

func (m *mockFetcher) FetchRecentTransactions(ctx context.Context, address string, limit int) ([]collector.TransactionSignature, error) {
	args := m.Called(address, limit)
	sigs, _ := args.Get(0).([]collector.TransactionSignature)
	return sigs, args.Error(1)
}

type recordingHealth struct {
	mu      sync.Mutex
	results []error
}

func (h *recordingHealth) RecordResult(_ string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, err)
}

func holdings(n int) []collector.TokenHolding {
	out := make([]collector.TokenHolding, n)
	for i := range out {
		out[i] = collector.TokenHolding{Mint: fmt.Sprintf("mint%d", i), UIAmount: float64(i)}
	}
	return out
}

func signatures(n int) []collector.TransactionSignature {
	out := make([]collector.TransactionSignature, n)
	for i := range out {
		out[i] = collector.TransactionSignature{Signature: fmt.Sprintf("sig%d", i)}
	}
	return out
}

func TestScanBuildsObservation(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchTokenAccounts", "w1").Return(holdings(12), nil)
	f.On("FetchRecentTransactions", "w1", 20).Return(signatures(1), nil)

	res, err := NewScanner(f, 10, 20, nil).Scan(context.Background(), " w1 ")
	require.NoError(t, err)
	assert.Equal(t, "w1", res.Address)
	assert.Equal(t, 12, res.TokensHeld)
	assert.Equal(t, 1, res.TransactionCount)
	assert.Equal(t, model.ActivityLow, res.ActivityType)
	assert.Equal(t, model.BehaviorHolder, res.BehaviorType)
	assert.True(t, res.IsWhale)
	require.Len(t, res.TopTokens, 10)
	assert.Equal(t, "mint11", res.TopTokens[0].Mint)
	assert.Empty(t, res.Warnings)
	f.AssertExpectations(t)
}

func TestScanSubstitutesZeroOnFailure(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchTokenAccounts", "w2").Return(nil, errors.New("rpc down"))
	f.On("FetchRecentTransactions", "w2", 20).Return(signatures(7), nil)

	health := &recordingHealth{}
	res, err := NewScanner(f, 20, 20, health).Scan(context.Background(), "w2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.TokensHeld)
	assert.Equal(t, 7, res.TransactionCount)
	assert.Equal(t, model.ActivityModerate, res.ActivityType)
	assert.False(t, res.IsWhale)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "rpc down")
	assert.Len(t, health.results, 2)
}

func TestScanBothFetchesFailing(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchTokenAccounts", "w3").Return(nil, errors.New("timeout"))
	f.On("FetchRecentTransactions", "w3", 5).Return(nil, errors.New("timeout"))

	res, err := NewScanner(f, 20, 5, nil).Scan(context.Background(), "w3")
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, model.ActivityDormant, res.ActivityType)
	assert.NotNil(t, res.RecentTransactions)
	assert.Len(t, res.Warnings, 2)
}

func TestScanCapsTransactionsAtLimit(t *testing.T) {
	f := new(mockFetcher)
	f.On("FetchTokenAccounts", "w4").Return(holdings(1), nil)
	f.On("FetchRecentTransactions", "w4", 5).Return(signatures(9), nil)

	res, err := NewScanner(f, 20, 5, nil).Scan(context.Background(), "w4")
	require.NoError(t, err)
	assert.Equal(t, 5, res.TransactionCount)
}

func TestScanRequiresAddress(t *testing.T) {
	_, err := NewScanner(new(mockFetcher), 20, 20, nil).Scan(context.Background(), "  ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
