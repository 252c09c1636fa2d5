package account

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

// State is the serializable state of an account. It is what stores persist
// and what the API returns; it never aliases the live account.
type State struct {
	ID             domain.AccountID                   `json:"id"`
	Name           string                             `json:"name"`
	BaseCurrency   string                             `json:"base_currency"`
	CashBalance    decimal.Decimal                    `json:"cash_balance"`
	InitialDeposit decimal.Decimal                    `json:"initial_deposit"`
	Positions      map[domain.Symbol]*domain.Position `json:"positions"`
	OpenOrders     map[domain.OrderID]*domain.Order   `json:"open_orders"`
	OrderHistory   []*domain.Order                    `json:"order_history"`
	Config         *domain.TradingConfig              `json:"config,omitempty"` // Per-account override
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.Positions = make(map[domain.Symbol]*domain.Position, len(s.Positions))
	for sym, pos := range s.Positions {
		p := *pos
		c.Positions[sym] = &p
	}
	c.OpenOrders = make(map[domain.OrderID]*domain.Order, len(s.OpenOrders))
	for id, o := range s.OpenOrders {
		c.OpenOrders[id] = o.Clone()
	}
	c.OrderHistory = make([]*domain.Order, 0, len(s.OrderHistory))
	for _, o := range s.OrderHistory {
		c.OrderHistory = append(c.OrderHistory, o.Clone())
	}
	if s.Config != nil {
		cfg := *s.Config
		c.Config = &cfg
	}
	return &c
}

// Account is a paper trading account. All methods are safe for concurrent
// use; every mutation of cash or positions goes through executeOrderAtPrice.
type Account struct {
	mu       sync.Mutex
	state    State
	defaults domain.TradingConfig // Used when state.Config is nil, never persisted
	logger   ports.Logger
}

// New creates an account funded with initialDeposit.
// defaults is the configuration applied unless an override is set with WithConfig.
func New(name, baseCurrency string, initialDeposit decimal.Decimal, defaults domain.TradingConfig, logger ports.Logger) *Account {
	now := time.Now().UTC()
	return &Account{
		state: State{
			ID:             domain.NewAccountID(),
			Name:           name,
			BaseCurrency:   baseCurrency,
			CashBalance:    initialDeposit,
			InitialDeposit: initialDeposit,
			Positions:      make(map[domain.Symbol]*domain.Position),
			OpenOrders:     make(map[domain.OrderID]*domain.Order),
			OrderHistory:   make([]*domain.Order, 0),
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		defaults: defaults,
		logger:   orNop(logger),
	}
}

// FromState rebuilds an account from persisted state.
func FromState(st *State, defaults domain.TradingConfig, logger ports.Logger) *Account {
	c := st.Clone()
	if c.Positions == nil {
		c.Positions = make(map[domain.Symbol]*domain.Position)
	}
	if c.OpenOrders == nil {
		c.OpenOrders = make(map[domain.OrderID]*domain.Order)
	}
	return &Account{state: *c, defaults: defaults, logger: orNop(logger)}
}

// WithConfig sets a per-account configuration override.
func (a *Account) WithConfig(cfg domain.TradingConfig) *Account {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Config = &cfg
	return a
}

// ID is immutable and can be read without locking.
func (a *Account) ID() domain.AccountID {
	return a.state.ID
}

func (a *Account) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Name
}

func (a *Account) CashBalance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.CashBalance
}

func (a *Account) InitialDeposit() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.InitialDeposit
}

// Config returns the effective configuration: the override if any, else the defaults.
func (a *Account) Config() domain.TradingConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config()
}

func (a *Account) config() domain.TradingConfig {
	if a.state.Config != nil {
		return *a.state.Config
	}
	return a.defaults
}

// Snapshot returns a deep copy of the account state.
func (a *Account) Snapshot() *State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Position returns a copy of the position for symbol.
func (a *Account) Position(symbol domain.Symbol) (domain.Position, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.state.Positions[symbol]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// Positions returns copies of every position, including flat ones, sorted by symbol.
func (a *Account) Positions() []domain.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Position, 0, len(a.state.Positions))
	for _, pos := range a.state.Positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Order returns a copy of an order, open or historical.
func (a *Account) Order(id domain.OrderID) (*domain.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if o, ok := a.state.OpenOrders[id]; ok {
		return o.Clone(), true
	}
	for _, o := range a.state.OrderHistory {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return nil, false
}

// OpenOrders returns copies of the open orders, oldest first.
func (a *Account) OpenOrders() []*domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*domain.Order, 0, len(a.state.OpenOrders))
	for _, o := range a.state.OpenOrders {
		out = append(out, o.Clone())
	}
	SortOrders(out)
	return out
}

// OrderHistory returns copies of the completed orders in completion order.
func (a *Account) OrderHistory() []*domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*domain.Order, 0, len(a.state.OrderHistory))
	for _, o := range a.state.OrderHistory {
		out = append(out, o.Clone())
	}
	return out
}

// Trades returns every execution of the account in time order.
func (a *Account) Trades() []domain.Trade {
	a.mu.Lock()
	defer a.mu.Unlock()
	var trades []domain.Trade
	for _, o := range a.state.OrderHistory {
		trades = append(trades, o.Trades...)
	}
	for _, o := range a.state.OpenOrders {
		trades = append(trades, o.Trades...)
	}
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Timestamp.Before(trades[j].Timestamp) })
	return trades
}

// SubmitOrder validates order against the current balance and positions and,
// on success, stores a copy of it as open and returns its id. A failed
// validation leaves the account untouched.
func (a *Account) SubmitOrder(ctx context.Context, order *domain.Order) (domain.OrderID, error) {
	if order == nil {
		return "", &ports.InvalidOrderError{Reason: "order is nil"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.validateOrder(order); err != nil {
		a.logger.Warn(ctx, "Order rejected at submission", map[string]interface{}{
			"accountID": a.state.ID, "orderID": order.ID, "symbol": order.Symbol, "side": order.Side,
			"type": order.Type, "quantity": order.Quantity.String(), "reason": err.Error(),
		})
		return "", err
	}

	// The account keeps its own copy; the caller's order only mirrors the status change.
	order.Submit()
	a.state.OpenOrders[order.ID] = order.Clone()
	a.state.UpdatedAt = time.Now().UTC()

	a.logger.Info(ctx, "Order submitted", map[string]interface{}{
		"accountID": a.state.ID, "orderID": order.ID, "symbol": order.Symbol,
		"side": order.Side, "type": order.Type, "quantity": order.Quantity.String(),
	})
	return order.ID, nil
}

// CancelOrder cancels an open order and moves it to the history.
func (a *Account) CancelOrder(ctx context.Context, id domain.OrderID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	order, ok := a.state.OpenOrders[id]
	if !ok {
		return &ports.OrderNotFoundError{OrderID: id}
	}
	if order.Cancel() {
		a.closeOrder(order)
		a.state.UpdatedAt = time.Now().UTC()
		a.logger.Info(ctx, "Order canceled", map[string]interface{}{"accountID": a.state.ID, "orderID": id})
	}
	return nil
}

// validateOrder checks an order before submission. Market buys are not
// funds-checked here since their price is only known at execution.
func (a *Account) validateOrder(order *domain.Order) error {
	if !order.IsActive() {
		return &ports.InvalidOrderError{Reason: "order is already " + string(order.Status)}
	}
	if _, exists := a.state.OpenOrders[order.ID]; exists {
		return &ports.InvalidOrderError{Reason: "order " + string(order.ID) + " is already open"}
	}
	if !order.Quantity.IsPositive() {
		return &ports.InvalidOrderError{Reason: "quantity must be positive"}
	}
	if order.Side != domain.Buy && order.Side != domain.Sell {
		return &ports.InvalidOrderError{Reason: "unknown order side " + string(order.Side)}
	}

	var estimatedCost decimal.Decimal
	switch order.Type {
	case domain.Market:
	case domain.Limit:
		if order.LimitPrice == nil {
			return &ports.InvalidOrderError{Reason: "limit order without limit price"}
		}
		estimatedCost = order.Quantity.Mul(order.LimitPrice.Decimal)
	case domain.Stop:
		if order.StopPrice == nil {
			return &ports.InvalidOrderError{Reason: "stop order without stop price"}
		}
		estimatedCost = order.Quantity.Mul(order.StopPrice.Decimal)
	case domain.StopLimit:
		if order.StopPrice == nil {
			return &ports.InvalidOrderError{Reason: "stop-limit order without stop price"}
		}
		if order.LimitPrice == nil {
			return &ports.InvalidOrderError{Reason: "stop-limit order without limit price"}
		}
		estimatedCost = order.Quantity.Mul(order.LimitPrice.Decimal)
	default:
		return &ports.InvalidOrderError{Reason: "unknown order type " + string(order.Type)}
	}

	switch order.Side {
	case domain.Buy:
		if estimatedCost.GreaterThan(a.state.CashBalance) {
			return &ports.InsufficientFundsError{Required: estimatedCost, Available: a.state.CashBalance}
		}
	case domain.Sell:
		available := decimal.Zero
		if pos, ok := a.state.Positions[order.Symbol]; ok {
			available = pos.Quantity.Decimal
		}
		if available.LessThan(order.Quantity.Decimal) {
			return &ports.InsufficientPositionError{Symbol: order.Symbol, Required: order.Quantity.Decimal, Available: available}
		}
	}
	return nil
}

// ExecuteMarketOrder fills an open market order at the current ask (buy) or
// bid (sell), moved against the trader by the configured slippage.
// Non-market and inactive orders are ignored.
func (a *Account) ExecuteMarketOrder(ctx context.Context, id domain.OrderID, quotes ports.QuoteSource) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executeMarketOrder(ctx, id, quotes)
}

func (a *Account) executeMarketOrder(ctx context.Context, id domain.OrderID, quotes ports.QuoteSource) error {
	order, ok := a.state.OpenOrders[id]
	if !ok {
		return &ports.OrderNotFoundError{OrderID: id}
	}
	if order.Type != domain.Market || !order.IsActive() {
		return nil
	}

	quote, err := quotes.GetQuote(ctx, order.Symbol)
	if err != nil {
		return err
	}

	slippage := a.config().DefaultSlippage
	var price domain.Price
	switch order.Side {
	case domain.Buy:
		price = domain.NewPrice(quote.Ask.Add(quote.Ask.Mul(slippage)))
	case domain.Sell:
		price = domain.NewPrice(quote.Bid.Sub(quote.Bid.Mul(slippage)))
	}

	return a.executeOrderAtPrice(ctx, id, price)
}

// ProcessLimitOrder fills an open limit order at its limit price if the
// quote crosses it (ask <= limit for buys, bid >= limit for sells).
// It reports whether the order executed.
func (a *Account) ProcessLimitOrder(ctx context.Context, id domain.OrderID, quotes ports.QuoteSource) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.processLimitOrder(ctx, id, quotes)
}

func (a *Account) processLimitOrder(ctx context.Context, id domain.OrderID, quotes ports.QuoteSource) (bool, error) {
	order, ok := a.state.OpenOrders[id]
	if !ok {
		return false, &ports.OrderNotFoundError{OrderID: id}
	}
	if order.Type != domain.Limit || !order.IsActive() {
		return false, nil
	}

	quote, err := quotes.GetQuote(ctx, order.Symbol)
	if err != nil {
		return false, err
	}

	if order.LimitPrice == nil {
		return false, &ports.InvalidOrderError{Reason: "limit order without limit price"}
	}
	limitPrice := *order.LimitPrice

	var crossed bool
	switch order.Side {
	case domain.Buy:
		crossed = quote.Ask.LessThanOrEqual(limitPrice.Decimal)
	case domain.Sell:
		crossed = quote.Bid.GreaterThanOrEqual(limitPrice.Decimal)
	}
	if !crossed {
		return false, nil
	}

	// The fill happens at the limit, never at the (possibly better) quote.
	if err := a.executeOrderAtPrice(ctx, id, limitPrice); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessOpenOrders runs every open order against quotes, oldest first.
// A failing order does not stop the others; all failures are joined.
// Stop and stop-limit orders are never triggered and stay open.
func (a *Account) ProcessOpenOrders(ctx context.Context, quotes ports.QuoteSource) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending := make([]*domain.Order, 0, len(a.state.OpenOrders))
	for _, o := range a.state.OpenOrders {
		pending = append(pending, o)
	}
	SortOrders(pending)

	var errs []error
	for _, o := range pending {
		var err error
		switch o.Type {
		case domain.Market:
			err = a.executeMarketOrder(ctx, o.ID, quotes)
		case domain.Limit:
			_, err = a.processLimitOrder(ctx, o.ID, quotes)
		case domain.Stop, domain.StopLimit:
			a.logger.Debug(ctx, "Stop orders are not executed, leaving open", map[string]interface{}{
				"accountID": a.state.ID, "orderID": o.ID, "type": o.Type,
			})
		default:
			err = &ports.InvalidOrderError{Reason: "unknown order type " + string(o.Type)}
		}
		if err != nil {
			a.logger.Error(ctx, err, "Failed to process open order", map[string]interface{}{
				"accountID": a.state.ID, "orderID": o.ID, "symbol": o.Symbol,
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExecuteOrderAtPrice fills the remaining quantity of an open order at price.
func (a *Account) ExecuteOrderAtPrice(ctx context.Context, id domain.OrderID, price domain.Price) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executeOrderAtPrice(ctx, id, price)
}

// executeOrderAtPrice is the single place where cash and position quantities
// change as a result of trading. All checks run before any mutation.
func (a *Account) executeOrderAtPrice(ctx context.Context, id domain.OrderID, price domain.Price) error {
	order, ok := a.state.OpenOrders[id]
	if !ok {
		return &ports.OrderNotFoundError{OrderID: id}
	}
	if !order.IsActive() {
		return nil
	}
	quantity := order.RemainingQuantity()
	if !quantity.IsPositive() {
		return nil
	}

	value := price.Mul(quantity.Decimal)
	commission := value.Mul(a.config().CommissionRate)

	switch order.Side {
	case domain.Buy:
		total := value.Add(commission)
		if a.state.CashBalance.LessThan(total) {
			return &ports.InsufficientFundsError{Required: total, Available: a.state.CashBalance}
		}
		a.state.CashBalance = a.state.CashBalance.Sub(total)
		a.positionFor(order.Symbol).Add(quantity, price)
	case domain.Sell:
		pos, ok := a.state.Positions[order.Symbol]
		if !ok || pos.Quantity.LessThan(quantity.Decimal) {
			available := decimal.Zero
			if ok {
				available = pos.Quantity.Decimal
			}
			return &ports.InsufficientPositionError{Symbol: order.Symbol, Required: quantity.Decimal, Available: available}
		}
		pos.Remove(quantity, price)
		a.state.CashBalance = a.state.CashBalance.Add(value.Sub(commission))
	default:
		return &ports.InvalidOrderError{Reason: "unknown order side " + string(order.Side)}
	}

	trade := domain.NewTrade(order.ID, order.Symbol, order.Side, quantity, price, commission)
	order.AddTrade(trade)
	if order.IsComplete() {
		a.closeOrder(order)
	}
	a.state.UpdatedAt = time.Now().UTC()

	a.logger.Info(ctx, "Order executed", map[string]interface{}{
		"accountID": a.state.ID, "orderID": order.ID, "tradeID": trade.ID, "symbol": order.Symbol,
		"side": order.Side, "quantity": quantity.String(), "price": price.String(),
		"commission": commission.String(), "cashBalance": a.state.CashBalance.String(),
	})
	return nil
}

// positionFor returns the position for symbol, creating it if needed.
func (a *Account) positionFor(symbol domain.Symbol) *domain.Position {
	pos, ok := a.state.Positions[symbol]
	if !ok {
		pos = domain.NewPosition(symbol)
		a.state.Positions[symbol] = pos
	}
	return pos
}

// closeOrder moves an order from the open set to the history.
func (a *Account) closeOrder(order *domain.Order) {
	if _, ok := a.state.OpenOrders[order.ID]; !ok {
		return
	}
	delete(a.state.OpenOrders, order.ID)
	a.state.OrderHistory = append(a.state.OrderHistory, order)
}

// SortOrders sorts orders oldest first, breaking ties by id.
func SortOrders(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

func orNop(logger ports.Logger) ports.Logger {
	if logger == nil {
		return ports.NopLogger{}
	}
	return logger
}
