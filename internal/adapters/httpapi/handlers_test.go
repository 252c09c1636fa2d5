package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/account"
	"paperAccount/internal/domain"
	"paperAccount/internal/market"
)

var aapl = domain.NewSymbol("AAPL")

type testAPI struct {
	router  chi.Router
	manager *account.Manager
	quotes  *market.MemoryQuoteSource
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	m := account.NewManager(domain.DefaultTradingConfig(), nil)
	quotes := market.NewMemoryQuoteSource(domain.DefaultTradingConfig())
	quotes.SetQuote(domain.NewQuote(aapl, domain.MustPrice("149.5"), domain.MustPrice("150"), domain.MustPrice("149.75")))
	return &testAPI{router: NewRouter(NewHandlers(m, quotes, nil)), manager: m, quotes: quotes}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) createAccount(t *testing.T, deposit string) domain.AccountID {
	t.Helper()
	w := a.do(t, http.MethodPost, "/accounts", map[string]interface{}{
		"name": "Trader", "base_currency": "USD", "initial_deposit": deposit,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var st account.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st.ID
}

func TestCreateAndListAccounts(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "10000")

	w := api.do(t, http.MethodGet, "/accounts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var states []account.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, id, states[0].ID)
	assert.True(t, states[0].CashBalance.Equal(decimal.NewFromInt(10000)))

	w = api.do(t, http.MethodGet, "/accounts/"+string(id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateAccount_Validation(t *testing.T) {
	api := setupAPI(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed body", "{", http.StatusBadRequest},
		{"missing name", map[string]interface{}{"initial_deposit": "100"}, http.StatusUnprocessableEntity},
		{"negative deposit", map[string]interface{}{"name": "x", "initial_deposit": "-1"}, http.StatusUnprocessableEntity},
		{"commission out of range", map[string]interface{}{
			"name": "x", "initial_deposit": "100",
			"config": map[string]string{"commission_rate": "1.5"},
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/accounts", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 0, api.manager.Count())
}

func TestCreateAccount_WithConfig(t *testing.T) {
	api := setupAPI(t)
	w := api.do(t, http.MethodPost, "/accounts", map[string]interface{}{
		"name": "Fees", "initial_deposit": "1000",
		"config": map[string]string{"commission_rate": "0.001", "default_slippage": "0", "default_spread": "0"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st account.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotNil(t, st.Config)
	assert.True(t, st.Config.CommissionRate.Equal(decimal.RequireFromString("0.001")))
	assert.Equal(t, "USD", st.BaseCurrency)
}

func TestGetAccount_NotFound(t *testing.T) {
	api := setupAPI(t)
	w := api.do(t, http.MethodGet, "/accounts/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "missing")
}

func TestSubmitOrder_ExecuteMarket(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "10000")

	w := api.do(t, http.MethodPost, "/accounts/"+string(id)+"/orders?execute=true", map[string]string{
		"symbol": "aapl", "side": "BUY", "type": "MARKET", "quantity": "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, domain.StatusFilled, order.Status)
	require.Len(t, order.Trades, 1)
	assert.True(t, order.Trades[0].Price.Equal(decimal.NewFromInt(150)))

	acc, err := api.manager.Account(id)
	require.NoError(t, err)
	assert.True(t, acc.CashBalance().Equal(decimal.NewFromInt(8500)))

	w = api.do(t, http.MethodGet, "/accounts/"+string(id)+"/orders/"+string(order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitOrder_ExecuteMarketUnfilledIsCanceled(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "1000")
	path := "/accounts/" + string(id) + "/orders?execute=true"

	tests := []struct {
		name   string
		symbol string
		want   int
	}{
		{"insufficient funds at execution", "AAPL", http.StatusConflict},
		{"no quote for symbol", "NOPE", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, path, map[string]string{
				"symbol": tt.symbol, "side": "BUY", "type": "MARKET", "quantity": "10",
			})
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	acc, err := api.manager.Account(id)
	require.NoError(t, err)
	assert.Empty(t, acc.OpenOrders(), "unfilled orders do not linger")
	history := acc.OrderHistory()
	require.Len(t, history, 2)
	for _, o := range history {
		assert.Equal(t, domain.StatusCanceled, o.Status)
	}
	assert.True(t, acc.CashBalance().Equal(decimal.NewFromInt(1000)))
}

func TestSubmitOrder_Errors(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "1000")
	path := "/accounts/" + string(id) + "/orders"

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"malformed body", "not json", http.StatusBadRequest},
		{"unknown side", map[string]string{"symbol": "AAPL", "side": "HOLD", "type": "MARKET", "quantity": "1"}, http.StatusUnprocessableEntity},
		{"limit without price", map[string]string{"symbol": "AAPL", "side": "BUY", "type": "LIMIT", "quantity": "1"}, http.StatusUnprocessableEntity},
		{"zero quantity", map[string]string{"symbol": "AAPL", "side": "BUY", "type": "MARKET", "quantity": "0"}, http.StatusUnprocessableEntity},
		{"insufficient funds", map[string]string{"symbol": "AAPL", "side": "BUY", "type": "LIMIT", "quantity": "10", "limit_price": "150"}, http.StatusConflict},
		{"insufficient position", map[string]string{"symbol": "AAPL", "side": "SELL", "type": "MARKET", "quantity": "1"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	acc, err := api.manager.Account(id)
	require.NoError(t, err)
	assert.Empty(t, acc.OpenOrders())
	assert.True(t, acc.CashBalance().Equal(decimal.NewFromInt(1000)))
}

func TestCancelOrder(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "10000")

	w := api.do(t, http.MethodPost, "/accounts/"+string(id)+"/orders", map[string]string{
		"symbol": "AAPL", "side": "BUY", "type": "LIMIT", "quantity": "10", "limit_price": "140",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var order domain.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, domain.StatusSubmitted, order.Status)

	path := "/accounts/" + string(id) + "/orders/" + string(order.ID)
	w = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcessOrders(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "10000")
	base := "/accounts/" + string(id)

	w := api.do(t, http.MethodPost, base+"/orders", map[string]string{
		"symbol": "AAPL", "side": "BUY", "type": "LIMIT", "quantity": "10", "limit_price": "150",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = api.do(t, http.MethodPost, base+"/orders", map[string]string{
		"symbol": "MSFT", "side": "BUY", "type": "MARKET", "quantity": "1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodPost, base+"/process", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp processResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Errors, 1, "MSFT has no quote")
	require.NotNil(t, resp.Account)
	assert.Len(t, resp.Account.OpenOrders, 1)
	assert.True(t, resp.Account.CashBalance.Equal(decimal.NewFromInt(8500)))
}

func TestGetPerformance(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "10000")
	acc, err := api.manager.Account(id)
	require.NoError(t, err)

	ctx := context.Background()
	orderID, err := acc.SubmitOrder(ctx, domain.NewMarketOrder(aapl, domain.Buy, domain.MustQuantity("10")))
	require.NoError(t, err)
	require.NoError(t, acc.ExecuteOrderAtPrice(ctx, orderID, domain.MustPrice("150")))
	api.quotes.SetQuote(domain.NewQuote(aapl, domain.MustPrice("159"), domain.MustPrice("161"), domain.MustPrice("160")))

	w := api.do(t, http.MethodGet, "/accounts/"+string(id)+"/performance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var perf account.Performance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perf))
	assert.True(t, perf.Equity.Equal(decimal.NewFromInt(10100)))
	assert.True(t, perf.UnrealizedPnL.Equal(decimal.NewFromInt(100)))
	assert.True(t, perf.ROI.Equal(decimal.NewFromInt(1)))
}

func TestTransfer(t *testing.T) {
	api := setupAPI(t)
	from := api.createAccount(t, "1000")
	to := api.createAccount(t, "0")

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"ok", transferRequest{From: from, To: to, Amount: decimal.NewFromInt(400)}, http.StatusNoContent},
		{"insufficient", transferRequest{From: from, To: to, Amount: decimal.NewFromInt(1000)}, http.StatusConflict},
		{"self", transferRequest{From: from, To: from, Amount: decimal.NewFromInt(1)}, http.StatusUnprocessableEntity},
		{"non-positive", transferRequest{From: from, To: to, Amount: decimal.Zero}, http.StatusUnprocessableEntity},
		{"unknown account", transferRequest{From: from, To: "nope", Amount: decimal.NewFromInt(1)}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/transfers", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	src, _ := api.manager.Account(from)
	dst, _ := api.manager.Account(to)
	assert.True(t, src.CashBalance().Equal(decimal.NewFromInt(600)))
	assert.True(t, dst.CashBalance().Equal(decimal.NewFromInt(400)))
}

func TestDeleteAccount(t *testing.T) {
	api := setupAPI(t)
	id := api.createAccount(t, "1")

	w := api.do(t, http.MethodDelete, "/accounts/"+string(id), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, http.MethodDelete, "/accounts/"+string(id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuotes(t *testing.T) {
	api := setupAPI(t)

	w := api.do(t, http.MethodPut, "/quotes/msft", map[string]string{"price": "400"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var q domain.Quote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, domain.NewSymbol("MSFT"), q.Symbol)
	assert.True(t, q.Last.Equal(decimal.NewFromInt(400)))

	w = api.do(t, http.MethodPut, "/quotes/MSFT", map[string]string{"bid": "399", "ask": "401"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.True(t, q.Ask.Equal(decimal.NewFromInt(401)))
	assert.True(t, q.Last.Equal(decimal.NewFromInt(400)))

	w = api.do(t, http.MethodPut, "/quotes/MSFT", map[string]string{"bid": "402", "ask": "401"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = api.do(t, http.MethodPut, "/quotes/MSFT", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = api.do(t, http.MethodGet, "/quotes/AAPL", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/quotes/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetQuote_ReadOnlySource(t *testing.T) {
	m := account.NewManager(domain.DefaultTradingConfig(), nil)
	replay := market.NewReplayQuoteSource(nil, decimal.Zero)
	router := NewRouter(NewHandlers(m, replay, nil))

	req := httptest.NewRequest(http.MethodPut, "/quotes/AAPL", bytes.NewBufferString(`{"price":"1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
