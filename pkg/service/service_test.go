package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"SignalForge/pkg/collector"
	"SignalForge/pkg/engine"
	"SignalForge/pkg/model"
	"SignalForge/pkg/repository"
	"SignalForge/pkg/scanner"
)

type fakeFetcher struct {
	tokens int
	txs    int
	err    error
}

func (f *fakeFetcher) FetchTokenAccounts(_ context.Context, _ string) ([]collector.TokenHolding, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]collector.TokenHolding, f.tokens)
	for i := range out {
		out[i] = collector.TokenHolding{Mint: fmt.Sprintf("mint-%d", i), UIAmount: float64(i)}
	}
	return out, nil
}

func (f *fakeFetcher) FetchRecentTransactions(_ context.Context, _ string, _ int) ([]collector.TransactionSignature, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]collector.TransactionSignature, f.txs), nil
}

type outputs struct {
	mock.Mock
}

func (o *outputs) Export(a model.Analysis) (string, error) {
	args := o.Called(a.Signal.Address)
	return args.String(0), args.Error(1)
}

func (o *outputs) Write(a model.Analysis) (string, error) {
	args := o.Called(a.Signal.Address)
	return args.String(0), args.Error(1)
}

func (o *outputs) PublishSignal(_ context.Context, a model.Analysis) error {
	return o.Called(a.Signal.Recommendation).Error(0)
}

func (o *outputs) Notify(_ context.Context, s model.Signal) error {
	return o.Called(s.Address).Error(0)
}

type memorySignals struct {
	saved []model.Analysis
}

func (m *memorySignals) Save(_ context.Context, a model.Analysis) (*model.SignalRecord, error) {
	m.saved = append(m.saved, a)
	return model.NewSignalRecord(a), nil
}

func (m *memorySignals) List(_ context.Context, address string, _ int) ([]model.SignalRecord, error) {
	var out []model.SignalRecord
	for _, a := range m.saved {
		if address == "" || a.Signal.Address == address {
			out = append(out, *model.NewSignalRecord(a))
		}
	}
	return out, nil
}

type healthLog map[string]error

func (h healthLog) RecordResult(component string, err error) { h[component] = err }

type stubPrices struct {
	price float64
	err   error
}

func (s stubPrices) FetchTokenPrice(_ context.Context, _ string) (float64, error) {
	return s.price, s.err
}

func newService(t *testing.T, fetcher *fakeFetcher, mutate func(*Options)) *Service {
	t.Helper()
	store, err := repository.NewFilePatternStore(filepath.Join(t.TempDir(), "patterns.json"))
	require.NoError(t, err)

	opts := Options{
		Scanner:  scanner.NewScanner(fetcher, model.DefaultWhaleTokenThreshold, 20, nil),
		Pipeline: engine.NewPipeline(model.DefaultRuleConfiguration()),
		Patterns: store,
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := New(context.Background(), opts)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func TestNewRequiresCoreCollaborators(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestAnalyzeDeliversToEveryOutput(t *testing.T) {
	out := &outputs{}
	out.On("Export", "wallet-1").Return("a.json", nil).Once()
	out.On("Write", "wallet-1").Return("a.md", nil).Once()
	out.On("PublishSignal", model.RecommendationBuy).Return(nil).Once()
	out.On("Notify", "wallet-1").Return(nil).Once()
	signals := &memorySignals{}
	health := healthLog{}

	svc := newService(t, &fakeFetcher{tokens: 25, txs: 3}, func(o *Options) {
		o.Exporter, o.Reports, o.Bus, o.Notifier = out, out, out, out
		o.Signals = signals
		o.Health = health
	})

	a, err := svc.Analyze(context.Background(), "wallet-1", true)
	require.NoError(t, err)
	assert.Equal(t, model.RecommendationBuy, a.Signal.Recommendation)
	assert.Equal(t, []string{"Whale Wallet", "Accumulation"}, model.PatternNames(a.Patterns))
	assert.Equal(t, 2024, a.GeneratedAt.Year())
	assert.Len(t, signals.saved, 1)
	out.AssertExpectations(t)

	assert.Contains(t, health, "database")
	assert.NoError(t, health["nats"])
}

func TestAnalyzeWithoutDeliveryTouchesNoOutput(t *testing.T) {
	out := &outputs{}
	svc := newService(t, &fakeFetcher{tokens: 1, txs: 1}, func(o *Options) {
		o.Exporter, o.Reports, o.Bus, o.Notifier = out, out, out, out
	})

	a, err := svc.Analyze(context.Background(), "wallet-2", false)
	require.NoError(t, err)
	assert.Equal(t, model.RecommendationHold, a.Signal.Recommendation)
	out.AssertNotCalled(t, "Export", mock.Anything)
	out.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestAnalyzeOutputFailuresAreNotFatal(t *testing.T) {
	out := &outputs{}
	out.On("Export", mock.Anything).Return("", errors.New("disk full"))
	out.On("Write", mock.Anything).Return("", errors.New("disk full"))
	out.On("PublishSignal", mock.Anything).Return(errors.New("nats down"))
	out.On("Notify", mock.Anything).Return(errors.New("discord: 500"))
	health := healthLog{}

	svc := newService(t, &fakeFetcher{tokens: 25, txs: 3}, func(o *Options) {
		o.Exporter, o.Reports, o.Bus, o.Notifier = out, out, out, out
		o.Health = health
	})

	_, err := svc.Analyze(context.Background(), "wallet-3", true)
	require.NoError(t, err)
	assert.Error(t, health["nats"])
	assert.Error(t, health["notifier"])
}

func TestAnalyzeFetchFailureYieldsEmptyWallet(t *testing.T) {
	svc := newService(t, &fakeFetcher{err: errors.New("rpc down")}, nil)

	a, err := svc.Analyze(context.Background(), "wallet-4", false)
	require.NoError(t, err)
	assert.Equal(t, model.RecommendationAvoid, a.Signal.Recommendation)
}

func TestAnalyzeRejectsEmptyAddress(t *testing.T) {
	svc := newService(t, &fakeFetcher{}, nil)
	_, err := svc.Analyze(context.Background(), "  ", true)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestEvaluateObservationValidates(t *testing.T) {
	svc := newService(t, &fakeFetcher{}, nil)
	_, err := svc.EvaluateObservation(context.Background(), "w", -1, 0)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestScanReturnsPatternsWithoutSignal(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, &fakeFetcher{tokens: 25, txs: 3}, nil)

	result, err := svc.Scan(ctx, "wallet-1")
	require.NoError(t, err)
	assert.Equal(t, 25, result.TokensHeld)
	assert.Equal(t, []string{"Whale Wallet", "Accumulation Behavior"}, model.PatternNames(result.Patterns))

	require.NoError(t, svc.Train(ctx, model.PatternRule{
		Name:       "Light Trader",
		Conditions: model.Conditions{{Field: model.FieldTransactionCount, Operator: "<=", Value: 3}},
	}))
	result, err = svc.Scan(ctx, "wallet-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Whale Wallet", "Accumulation Behavior", "Light Trader"}, model.PatternNames(result.Patterns))

	empty := newService(t, &fakeFetcher{tokens: 1, txs: 10}, nil)
	result, err = empty.Scan(ctx, "wallet-2")
	require.NoError(t, err)
	assert.NotNil(t, result.Patterns)
	assert.Empty(t, result.Patterns)

	_, err = svc.Scan(ctx, " ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestTrainMakesRuleLive(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, &fakeFetcher{}, nil)

	rule := model.PatternRule{
		Name:        "Mega Bag",
		Description: "Holds at least 100 tokens",
		Conditions:  model.Conditions{{Field: model.FieldTokensHeld, Operator: ">=", Value: 100}},
	}
	require.NoError(t, svc.Train(ctx, rule))
	assert.ErrorIs(t, svc.Train(ctx, rule), model.ErrPatternExists)

	a, err := svc.EvaluateObservation(ctx, "w", 150, 50)
	require.NoError(t, err)
	assert.Contains(t, model.PatternNames(a.Patterns), "Mega Bag")

	list, err := svc.Patterns(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeletePattern(ctx, "mega bag"))
	a, err = svc.EvaluateObservation(ctx, "w", 150, 50)
	require.NoError(t, err)
	assert.NotContains(t, model.PatternNames(a.Patterns), "Mega Bag")

	assert.ErrorIs(t, svc.DeletePattern(ctx, "mega bag"), model.ErrPatternNotFound)
	assert.ErrorIs(t, svc.DeletePattern(ctx, ""), model.ErrInvalidInput)
}

func TestClearPatterns(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, &fakeFetcher{}, nil)
	require.NoError(t, svc.Train(ctx, model.PatternRule{Name: "One"}))
	require.NoError(t, svc.ClearPatterns(ctx))

	list, err := svc.Patterns(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	_, err := newService(t, &fakeFetcher{}, nil).History(ctx, "", 10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)

	signals := &memorySignals{}
	svc := newService(t, &fakeFetcher{tokens: 1, txs: 1}, func(o *Options) { o.Signals = signals })
	_, err = svc.Analyze(ctx, "wallet-5", true)
	require.NoError(t, err)

	records, err := svc.History(ctx, "wallet-5", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "HOLD", records[0].Recommendation)
}

func TestPrice(t *testing.T) {
	ctx := context.Background()
	health := healthLog{}
	svc := newService(t, &fakeFetcher{}, func(o *Options) {
		o.Prices = stubPrices{err: collector.ErrPriceNotFound}
		o.Health = health
	})

	_, err := svc.Price(ctx, " ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	price, err := svc.Price(ctx, "unknown-token")
	assert.ErrorIs(t, err, collector.ErrPriceNotFound)
	assert.Zero(t, price)
	assert.NoError(t, health["price_feed"])

	svc = newService(t, &fakeFetcher{}, func(o *Options) { o.Prices = stubPrices{price: 142.5} })
	price, err = svc.Price(ctx, "solana")
	require.NoError(t, err)
	assert.Equal(t, 142.5, price)
}
