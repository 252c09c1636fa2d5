package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"paperAccount/internal/account"
	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

var one = decimal.NewFromInt(1)

// Handlers exposes an account manager over HTTP.
type Handlers struct {
	manager *account.Manager
	quotes  ports.QuoteSource
	logger  ports.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(manager *account.Manager, quotes ports.QuoteSource, logger ports.Logger) *Handlers {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Handlers{manager: manager, quotes: quotes, logger: logger}
}

// NewRouter returns a router with the standard middleware and every route registered.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	h.RegisterRoutes(r)
	return r
}

type createAccountRequest struct {
	Name           string                `json:"name"`
	BaseCurrency   string                `json:"base_currency"`
	InitialDeposit decimal.Decimal       `json:"initial_deposit"`
	Config         *domain.TradingConfig `json:"config,omitempty"`
}

type submitOrderRequest struct {
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Type       string          `json:"type"`
	Quantity   domain.Quantity `json:"quantity"`
	LimitPrice *domain.Price   `json:"limit_price,omitempty"`
	StopPrice  *domain.Price   `json:"stop_price,omitempty"`
}

type transferRequest struct {
	From   domain.AccountID `json:"from"`
	To     domain.AccountID `json:"to"`
	Amount decimal.Decimal  `json:"amount"`
}

type processResponse struct {
	Account *account.State `json:"account"`
	Errors  []string       `json:"errors"`
}

// HandleListAccounts returns every account.
// GET /accounts
func (h *Handlers) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.manager.Accounts()
	states := make([]*account.State, 0, len(accounts))
	for _, acc := range accounts {
		states = append(states, acc.Snapshot())
	}
	h.writeJSON(w, http.StatusOK, states)
}

// HandleCreateAccount creates an account, optionally with its own trading config.
// POST /accounts
func (h *Handlers) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if req.BaseCurrency == "" {
		req.BaseCurrency = "USD"
	}

	var id domain.AccountID
	var err error
	if req.Config != nil {
		if msg := validateRates(*req.Config); msg != "" {
			h.writeError(w, http.StatusUnprocessableEntity, msg)
			return
		}
		id, err = h.manager.CreateAccountWithConfig(r.Context(), req.Name, req.BaseCurrency, req.InitialDeposit, *req.Config)
	} else {
		id, err = h.manager.CreateAccount(r.Context(), req.Name, req.BaseCurrency, req.InitialDeposit)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	acc, err := h.manager.Account(id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, acc.Snapshot())
}

// HandleGetAccount returns the full state of one account.
// GET /accounts/{id}
func (h *Handlers) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, acc.Snapshot())
}

// HandleDeleteAccount removes an account.
// DELETE /accounts/{id}
func (h *Handlers) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := domain.AccountID(chi.URLParam(r, "id"))
	if _, err := h.manager.RemoveAccount(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmitOrder validates and stores a new open order. With
// ?execute=true a market order is filled immediately at the current quote.
// POST /accounts/{id}/orders
func (h *Handlers) HandleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	order, err := req.toOrder()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	id, err := acc.SubmitOrder(r.Context(), order)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if execute, _ := strconv.ParseBool(r.URL.Query().Get("execute")); execute && order.Type == domain.Market {
		// An immediate execution is all or nothing: an unfilled order is canceled.
		if err := acc.ExecuteMarketOrder(r.Context(), id, h.quotes); err != nil {
			if cancelErr := acc.CancelOrder(r.Context(), id); cancelErr != nil {
				h.logger.Error(r.Context(), cancelErr, "Failed to cancel unfilled order", map[string]interface{}{"orderID": id})
			}
			h.writeDomainError(w, r, err)
			return
		}
	}

	stored, _ := acc.Order(id)
	h.writeJSON(w, http.StatusCreated, stored)
}

// HandleGetOrder returns an open or historical order.
// GET /accounts/{id}/orders/{orderID}
func (h *Handlers) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	orderID := domain.OrderID(chi.URLParam(r, "orderID"))
	order, found := acc.Order(orderID)
	if !found {
		h.writeDomainError(w, r, &ports.OrderNotFoundError{OrderID: orderID})
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HandleCancelOrder cancels an open order.
// DELETE /accounts/{id}/orders/{orderID}
func (h *Handlers) HandleCancelOrder(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	if err := acc.CancelOrder(r.Context(), domain.OrderID(chi.URLParam(r, "orderID"))); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleProcessOrders runs the open orders of one account against current quotes.
// Individual order failures are reported in the body, not as an HTTP error.
// POST /accounts/{id}/process
func (h *Handlers) HandleProcessOrders(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}

	resp := processResponse{Errors: []string{}}
	if err := acc.ProcessOpenOrders(r.Context(), h.quotes); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				resp.Errors = append(resp.Errors, e.Error())
			}
		} else {
			resp.Errors = append(resp.Errors, err.Error())
		}
	}
	resp.Account = acc.Snapshot()
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetPerformance returns equity, P&L and ROI at current quotes.
// GET /accounts/{id}/performance
func (h *Handlers) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	acc, ok := h.account(w, r)
	if !ok {
		return
	}
	perf, err := acc.Performance(r.Context(), h.quotes)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, perf)
}

// PriceSetter is implemented by quote sources that accept prices from outside.
type PriceSetter interface {
	SetPrice(symbol domain.Symbol, price domain.Price)
	SetQuote(q domain.Quote)
}

type setQuoteRequest struct {
	Price *domain.Price `json:"price,omitempty"` // Bid/ask synthesized with the default spread
	Bid   *domain.Price `json:"bid,omitempty"`
	Ask   *domain.Price `json:"ask,omitempty"`
	Last  *domain.Price `json:"last,omitempty"`
}

// HandleGetQuote returns the current quote for a symbol.
// GET /quotes/{symbol}
func (h *Handlers) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.quotes.GetQuote(r.Context(), domain.NewSymbol(chi.URLParam(r, "symbol")))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

// HandleSetQuote sets the price of a symbol on a settable quote source.
// PUT /quotes/{symbol}
func (h *Handlers) HandleSetQuote(w http.ResponseWriter, r *http.Request) {
	setter, ok := h.quotes.(PriceSetter)
	if !ok {
		h.writeError(w, http.StatusMethodNotAllowed, "quote source does not accept prices")
		return
	}

	var req setQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	symbol := domain.NewSymbol(chi.URLParam(r, "symbol"))

	switch {
	case req.Price != nil:
		if !req.Price.IsPositive() {
			h.writeError(w, http.StatusUnprocessableEntity, "price must be positive")
			return
		}
		setter.SetPrice(symbol, *req.Price)
	case req.Bid != nil && req.Ask != nil:
		if req.Bid.GreaterThan(req.Ask.Decimal) {
			h.writeError(w, http.StatusUnprocessableEntity, "bid must not exceed ask")
			return
		}
		q := domain.NewQuote(symbol, *req.Bid, *req.Ask, *req.Bid)
		if req.Last != nil {
			q.Last = *req.Last
		} else {
			q.Last = q.Mid()
		}
		setter.SetQuote(q)
	default:
		h.writeError(w, http.StatusUnprocessableEntity, "either price or bid and ask are required")
		return
	}

	q, err := h.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

// HandleTransfer moves cash between two accounts.
// POST /transfers
func (h *Handlers) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.manager.Transfer(r.Context(), req.From, req.To, req.Amount); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) account(w http.ResponseWriter, r *http.Request) (*account.Account, bool) {
	acc, err := h.manager.Account(domain.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	return acc, true
}

func (req submitOrderRequest) toOrder() (*domain.Order, error) {
	side, ok := domain.ParseOrderSide(req.Side)
	if !ok {
		return nil, &ports.InvalidOrderError{Reason: fmt.Sprintf("unknown side %q", req.Side)}
	}
	orderType, ok := domain.ParseOrderType(req.Type)
	if !ok {
		return nil, &ports.InvalidOrderError{Reason: fmt.Sprintf("unknown order type %q", req.Type)}
	}
	symbol := domain.NewSymbol(req.Symbol)
	if symbol == "" {
		return nil, &ports.InvalidOrderError{Reason: "symbol is required"}
	}

	switch orderType {
	case domain.Limit:
		if req.LimitPrice == nil {
			return nil, &ports.InvalidOrderError{Reason: "limit order requires a limit price"}
		}
		return domain.NewLimitOrder(symbol, side, req.Quantity, *req.LimitPrice), nil
	case domain.Stop:
		if req.StopPrice == nil {
			return nil, &ports.InvalidOrderError{Reason: "stop order requires a stop price"}
		}
		return domain.NewStopOrder(symbol, side, req.Quantity, *req.StopPrice), nil
	case domain.StopLimit:
		if req.StopPrice == nil || req.LimitPrice == nil {
			return nil, &ports.InvalidOrderError{Reason: "stop-limit order requires stop and limit prices"}
		}
		return domain.NewStopLimitOrder(symbol, side, req.Quantity, *req.StopPrice, *req.LimitPrice), nil
	default:
		return domain.NewMarketOrder(symbol, side, req.Quantity), nil
	}
}

func validateRates(cfg domain.TradingConfig) string {
	rates := []struct {
		name string
		rate decimal.Decimal
	}{
		{"default_slippage", cfg.DefaultSlippage},
		{"default_spread", cfg.DefaultSpread},
		{"commission_rate", cfg.CommissionRate},
	}
	for _, r := range rates {
		if r.rate.IsNegative() || r.rate.GreaterThanOrEqual(one) {
			return r.name + " must be in [0, 1)"
		}
	}
	return ""
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrAccountNotFound),
		errors.Is(err, ports.ErrOrderNotFound),
		errors.Is(err, ports.ErrSymbolNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrInsufficientFunds),
		errors.Is(err, ports.ErrInsufficientPosition):
		return http.StatusConflict
	case errors.Is(err, ports.ErrInvalidOrder),
		errors.Is(err, ports.ErrInvalidRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrMarketDataUnavailable),
		errors.Is(err, ports.ErrConnectionFailed),
		errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, ports.ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), err, "Request failed", map[string]interface{}{
			"method": r.Method, "path": r.URL.Path, "requestID": middleware.GetReqID(r.Context()),
		})
	}
	h.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error(context.Background(), err, "Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
