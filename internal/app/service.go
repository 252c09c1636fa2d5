package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperAccount/internal/account"
	"paperAccount/internal/ports"
)

// SimulationService periodically matches the open orders of every managed
// account against a quote source and persists the result.
type SimulationService struct {
	manager  *account.Manager
	quotes   ports.QuoteSource
	logger   ports.Logger
	interval time.Duration
}

// NewSimulationService creates a new simulation service instance.
func NewSimulationService(manager *account.Manager, quotes ports.QuoteSource, logger ports.Logger, interval time.Duration) (*SimulationService, error) {
	if manager == nil || quotes == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for SimulationService: %w", ports.ErrConfigurationError)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("process interval must be positive, got %s: %w", interval, ports.ErrConfigurationError)
	}
	return &SimulationService{
		manager:  manager,
		quotes:   quotes,
		logger:   logger,
		interval: interval,
	}, nil
}

// Start runs the processing loop until ctx is canceled or SIGINT/SIGTERM is
// received, then saves one last time.
func (s *SimulationService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Simulation Service...", map[string]interface{}{"interval": s.interval.String()})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
			// The loop context is gone; the final save gets a fresh one.
			saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer saveCancel()
			if err := s.save(saveCtx); err != nil {
				return fmt.Errorf("final save failed: %w", err)
			}
			s.logger.Info(ctx, "Simulation Service stopped.")
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error(ctx, err, "Simulation tick failed")
			}
		}
	}
}

// Tick processes the open orders of every account once and saves. A failing
// account is logged and does not stop the others; only a failed save is returned.
func (s *SimulationService) Tick(ctx context.Context) error {
	accounts := s.manager.Accounts()
	failed := 0
	for _, acc := range accounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := acc.ProcessOpenOrders(ctx, s.quotes); err != nil {
			failed++
			s.logger.Warn(ctx, "Some orders could not be processed", map[string]interface{}{
				"accountID": acc.ID(), "error": err.Error(),
			})
		}
	}
	s.logger.Debug(ctx, "Simulation tick complete", map[string]interface{}{"accounts": len(accounts), "failed": failed})
	return s.save(ctx)
}

func (s *SimulationService) save(ctx context.Context) error {
	if s.manager.StoragePath() == "" {
		return nil // Nothing to persist to
	}
	return s.manager.Save(ctx)
}
