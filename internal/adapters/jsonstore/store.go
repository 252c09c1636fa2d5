package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"paperAccount/internal/account"
	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

const (
	appDirName      = "paper-account"
	defaultFileName = "accounts.json"
)

// document is the on-disk shape: the whole manager as one JSON object.
type document struct {
	Accounts map[domain.AccountID]*account.State `json:"accounts"`
}

// Store implements account.Store with a single pretty-printed JSON file.
type Store struct {
	path   string
	logger ports.Logger
}

// Config holds configuration for the JSON store.
type Config struct {
	Path   string // Defaults to DefaultStoragePath()
	Logger ports.Logger
}

// New creates a JSON store. The file is created on the first Save.
func New(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for JSON store")
	}
	path := cfg.Path
	if path == "" {
		var err error
		path, err = DefaultStoragePath()
		if err != nil {
			return nil, err
		}
	}
	cfg.Logger.Info(context.Background(), "JSON account store configured", map[string]interface{}{"path": path})
	return &Store{path: path, logger: cfg.Logger}, nil
}

// DefaultStoragePath returns <user config dir>/paper-account/accounts.json.
func DefaultStoragePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w: %w", ports.ErrConfigurationError, err)
	}
	return filepath.Join(dir, appDirName, defaultFileName), nil
}

// Location implements account.Store.
func (s *Store) Location() string {
	return s.path
}

// Save implements account.Store. The file is replaced atomically.
func (s *Store) Save(ctx context.Context, states []*account.State) error {
	doc := document{Accounts: make(map[domain.AccountID]*account.State, len(states))}
	for _, st := range states {
		doc.Accounts[st.ID] = st
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding accounts: %w: %w", ports.ErrSerialization, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w: %w", filepath.Dir(s.path), ports.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w: %w", ports.ErrStorage, err)
	}
	defer os.Remove(tmp.Name()) // No-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write '%s': %w: %w", tmp.Name(), ports.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w: %w", tmp.Name(), ports.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace '%s': %w: %w", s.path, ports.ErrStorage, err)
	}

	s.logger.Debug(ctx, "Accounts written", map[string]interface{}{"path": s.path, "count": len(states), "bytes": len(data)})
	return nil
}

// Load implements account.Store. A missing file is an empty store.
func (s *Store) Load(ctx context.Context) ([]*account.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info(ctx, "No account file yet, starting empty", map[string]interface{}{"path": s.path})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read '%s': %w: %w", s.path, ports.ErrStorage, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding '%s': %w: %w", s.path, ports.ErrSerialization, err)
	}

	states := make([]*account.State, 0, len(doc.Accounts))
	for id, st := range doc.Accounts {
		if st == nil {
			continue
		}
		if st.ID == "" {
			st.ID = id
		}
		if err := checkState(st); err != nil {
			return nil, fmt.Errorf("decoding '%s': account %s: %w: %w", s.path, st.ID, ports.ErrSerialization, err)
		}
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states, nil
}

// checkState rejects null entries nested in a decoded account.
func checkState(st *account.State) error {
	for sym, pos := range st.Positions {
		if pos == nil {
			return fmt.Errorf("position %s is null", sym)
		}
	}
	for id, o := range st.OpenOrders {
		if o == nil {
			return fmt.Errorf("open order %s is null", id)
		}
	}
	for i, o := range st.OrderHistory {
		if o == nil {
			return fmt.Errorf("order history entry %d is null", i)
		}
	}
	return nil
}
