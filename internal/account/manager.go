package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

// Store persists the state of every account of a manager as one unit.
type Store interface {
	// Save replaces the persisted accounts with states.
	Save(ctx context.Context, states []*State) error
	// Load returns every persisted account. An empty store yields no error.
	Load(ctx context.Context) ([]*State, error)
	// Location describes where the store keeps its data (file path, DSN).
	Location() string
}

// Manager is a keyed collection of accounts.
type Manager struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]*Account
	defaults domain.TradingConfig
	store    Store // Environment supplied, never persisted
	logger   ports.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore attaches the store used by Save.
func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

// NewManager creates an empty manager. defaults is the configuration used by
// accounts that have no override of their own.
func NewManager(defaults domain.TradingConfig, logger ports.Logger, opts ...Option) *Manager {
	m := &Manager{
		accounts: make(map[domain.AccountID]*Account),
		defaults: defaults,
		logger:   orNop(logger),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadManager rebuilds a manager from store and re-attaches store and defaults.
func LoadManager(ctx context.Context, store Store, defaults domain.TradingConfig, logger ports.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required to load accounts: %w", ports.ErrConfigurationError)
	}
	states, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts from %s: %w", store.Location(), err)
	}

	m := NewManager(defaults, logger, WithStore(store))
	for _, st := range states {
		m.accounts[st.ID] = FromState(st, defaults, m.logger)
	}
	m.logger.Info(ctx, "Accounts loaded", map[string]interface{}{"count": len(m.accounts), "location": store.Location()})
	return m, nil
}

// StoragePath returns the location of the attached store, or "" when none is attached.
func (m *Manager) StoragePath() string {
	if m.store == nil {
		return ""
	}
	return m.store.Location()
}

// Defaults returns the configuration used by accounts without an override.
func (m *Manager) Defaults() domain.TradingConfig {
	return m.defaults
}

// CreateAccount creates and registers an account using the manager defaults.
func (m *Manager) CreateAccount(ctx context.Context, name, baseCurrency string, initialDeposit decimal.Decimal) (domain.AccountID, error) {
	return m.addAccount(ctx, name, baseCurrency, initialDeposit, nil)
}

// CreateAccountWithConfig creates and registers an account with its own configuration.
func (m *Manager) CreateAccountWithConfig(ctx context.Context, name, baseCurrency string, initialDeposit decimal.Decimal, cfg domain.TradingConfig) (domain.AccountID, error) {
	return m.addAccount(ctx, name, baseCurrency, initialDeposit, &cfg)
}

func (m *Manager) addAccount(ctx context.Context, name, baseCurrency string, initialDeposit decimal.Decimal, cfg *domain.TradingConfig) (domain.AccountID, error) {
	if initialDeposit.IsNegative() {
		return "", fmt.Errorf("initial deposit %s must not be negative: %w", initialDeposit, ports.ErrInvalidRequest)
	}

	acc := New(name, baseCurrency, initialDeposit, m.defaults, m.logger)
	if cfg != nil {
		acc.WithConfig(*cfg)
	}

	m.mu.Lock()
	m.accounts[acc.ID()] = acc
	m.mu.Unlock()

	m.logger.Info(ctx, "Account created", map[string]interface{}{
		"accountID": acc.ID(), "name": name, "currency": baseCurrency,
		"initialDeposit": initialDeposit.String(), "customConfig": cfg != nil,
	})
	return acc.ID(), nil
}

// Account returns the account with id.
func (m *Manager) Account(id domain.AccountID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, &ports.AccountNotFoundError{AccountID: id}
	}
	return acc, nil
}

// Accounts returns every account sorted by id.
func (m *Manager) Accounts() []*Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// RemoveAccount unregisters and returns the account with id.
func (m *Manager) RemoveAccount(ctx context.Context, id domain.AccountID) (*Account, error) {
	m.mu.Lock()
	acc, ok := m.accounts[id]
	delete(m.accounts, id)
	m.mu.Unlock()
	if !ok {
		return nil, &ports.AccountNotFoundError{AccountID: id}
	}
	m.logger.Info(ctx, "Account removed", map[string]interface{}{"accountID": id})
	return acc, nil
}

// Count returns the number of accounts.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// Transfer moves cash between two accounts. Both accounts are locked in id
// order so concurrent transfers in opposite directions cannot deadlock.
func (m *Manager) Transfer(ctx context.Context, fromID, toID domain.AccountID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer amount %s must be positive: %w", amount, ports.ErrInvalidRequest)
	}
	if fromID == toID {
		return fmt.Errorf("cannot transfer from account %s to itself: %w", fromID, ports.ErrInvalidRequest)
	}

	from, err := m.Account(fromID)
	if err != nil {
		return err
	}
	to, err := m.Account(toID)
	if err != nil {
		return err
	}

	first, second := from, to
	if second.ID() < first.ID() {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if from.state.CashBalance.LessThan(amount) {
		return &ports.InsufficientFundsError{Required: amount, Available: from.state.CashBalance}
	}

	now := time.Now().UTC()
	from.state.CashBalance = from.state.CashBalance.Sub(amount)
	from.state.UpdatedAt = now
	to.state.CashBalance = to.state.CashBalance.Add(amount)
	to.state.UpdatedAt = now

	m.logger.Info(ctx, "Funds transferred", map[string]interface{}{
		"from": fromID, "to": toID, "amount": amount.String(),
	})
	return nil
}

// Save persists every account through the attached store.
func (m *Manager) Save(ctx context.Context) error {
	if m.store == nil {
		return fmt.Errorf("no store attached to account manager: %w", ports.ErrConfigurationError)
	}

	accounts := m.Accounts()
	states := make([]*State, 0, len(accounts))
	for _, acc := range accounts {
		states = append(states, acc.Snapshot())
	}

	if err := m.store.Save(ctx, states); err != nil {
		m.logger.Error(ctx, err, "Failed to save accounts", map[string]interface{}{"location": m.store.Location()})
		return fmt.Errorf("failed to save accounts to %s: %w", m.store.Location(), err)
	}
	m.logger.Debug(ctx, "Accounts saved", map[string]interface{}{"count": len(states), "location": m.store.Location()})
	return nil
}
