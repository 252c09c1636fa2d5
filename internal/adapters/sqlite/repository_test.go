package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/account"
	"paperAccount/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "nested", "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// tradedState builds an account with a filled buy, an open limit sell, a
// canceled order and a per-account config override.
func tradedState(t *testing.T) *account.State {
	t.Helper()
	ctx := context.Background()

	acc := account.New("Primary", "USD", decimal.NewFromInt(10000), domain.DefaultTradingConfig(), nil)
	acc.WithConfig(domain.TradingConfig{
		DefaultSlippage: decimal.RequireFromString("0.001"),
		DefaultSpread:   decimal.RequireFromString("0.0002"),
		CommissionRate:  decimal.RequireFromString("0.001"),
		StoragePath:     "/var/lib/paper/primary.json",
	})

	aapl := domain.NewSymbol("AAPL")
	buyID, err := acc.SubmitOrder(ctx, domain.NewLimitOrder(aapl, domain.Buy, domain.MustQuantity("10"), domain.MustPrice("150")))
	require.NoError(t, err)
	require.NoError(t, acc.ExecuteOrderAtPrice(ctx, buyID, domain.MustPrice("150")))

	_, err = acc.SubmitOrder(ctx, domain.NewLimitOrder(aapl, domain.Sell, domain.MustQuantity("4"), domain.MustPrice("175.25")))
	require.NoError(t, err)
	_, err = acc.SubmitOrder(ctx, domain.NewStopLimitOrder(aapl, domain.Sell, domain.MustQuantity("2"), domain.MustPrice("140"), domain.MustPrice("139.5")))
	require.NoError(t, err)

	cancelID, err := acc.SubmitOrder(ctx, domain.NewMarketOrder(domain.NewSymbol("MSFT"), domain.Buy, domain.MustQuantity("1")))
	require.NoError(t, err)
	require.NoError(t, acc.CancelOrder(ctx, cancelID))

	return acc.Snapshot()
}

func assertSameState(t *testing.T, want, got *account.State) {
	t.Helper()
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func TestRepository_LoadEmpty(t *testing.T) {
	repo := setupTestDB(t)

	states, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestRepository_SaveAndLoadRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	traded := tradedState(t)
	plain := account.New("Savings", "EUR", decimal.RequireFromString("2500.50"), domain.DefaultTradingConfig(), nil).Snapshot()

	require.NoError(t, repo.Save(ctx, []*account.State{traded, plain}))

	states, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)

	byID := map[domain.AccountID]*account.State{}
	for _, st := range states {
		byID[st.ID] = st
	}
	require.Contains(t, byID, traded.ID)
	require.Contains(t, byID, plain.ID)

	assertSameState(t, traded, byID[traded.ID])
	assertSameState(t, plain, byID[plain.ID])

	loaded := byID[traded.ID]
	assert.Len(t, loaded.OpenOrders, 2)
	require.Len(t, loaded.OrderHistory, 2)
	assert.Equal(t, domain.StatusFilled, loaded.OrderHistory[0].Status)
	assert.Equal(t, domain.StatusCanceled, loaded.OrderHistory[1].Status)
	require.Len(t, loaded.OrderHistory[0].Trades, 1)
	assert.True(t, loaded.OrderHistory[0].Trades[0].Commission.Equal(decimal.RequireFromString("1.5")))
	require.NotNil(t, loaded.Config)
	assert.True(t, loaded.Config.CommissionRate.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, "/var/lib/paper/primary.json", loaded.Config.StoragePath)
	assert.Nil(t, byID[plain.ID].Config)
}

func TestRepository_SaveReplacesPreviousContents(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := tradedState(t)
	require.NoError(t, repo.Save(ctx, []*account.State{first}))

	second := account.New("Other", "USD", decimal.NewFromInt(100), domain.DefaultTradingConfig(), nil).Snapshot()
	require.NoError(t, repo.Save(ctx, []*account.State{second}))

	states, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, second.ID, states[0].ID)
}

func TestRepository_ManagerRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	m := account.NewManager(domain.DefaultTradingConfig(), nil, account.WithStore(repo))
	id, err := m.CreateAccount(ctx, "Main", "USD", decimal.NewFromInt(5000))
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx))

	loaded, err := account.LoadManager(ctx, repo, domain.DefaultTradingConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, repo.Location(), loaded.StoragePath())

	acc, err := loaded.Account(id)
	require.NoError(t, err)
	assert.Equal(t, "Main", acc.Name())
	assert.True(t, acc.CashBalance().Equal(decimal.NewFromInt(5000)))
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
}
