package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"paperAccount/internal/account"
	"paperAccount/internal/domain"
	"paperAccount/internal/market"
	"paperAccount/internal/ports"
)

// Config holds configuration for a replay run.
type Config struct {
	Symbol   domain.Symbol
	Fast     MovingAverage
	Slow     MovingAverage
	Quantity domain.Quantity // Bought on every entry signal
	MaxSteps int             // 0 replays every bar
	LogSteps bool            // Log every step at debug level
}

// EquityPoint represents a point on the equity curve
type EquityPoint struct {
	Time     time.Time       `json:"time"`
	Equity   decimal.Decimal `json:"equity"`
	Drawdown decimal.Decimal `json:"drawdown"` // Fraction below the running peak
}

// Result holds the results of a replay run.
type Result struct {
	Steps           int                  `json:"steps"`
	OrdersSubmitted int                  `json:"orders_submitted"`
	OrdersRejected  int                  `json:"orders_rejected"` // Refused at submission or canceled unfilled
	Trades          int                  `json:"trades"` // Executions made during the run
	MaxDrawdown     decimal.Decimal      `json:"max_drawdown"`
	Performance     *account.Performance `json:"performance"`
	EquityCurve     []EquityPoint        `json:"equity_curve"`
}

// Run replays bars for one symbol through acc. On every step a long-only
// moving average crossover decides whether to buy cfg.Quantity or sell the
// whole position; orders go through the account like any other order and
// whatever is still unfilled at the end of the step is canceled, so acc
// should be dedicated to the run.
func Run(ctx context.Context, acc *account.Account, bars []*domain.Bar, cfg Config, logger ports.Logger) (*Result, error) {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	if cfg.Fast.Period >= cfg.Slow.Period {
		return nil, fmt.Errorf("fast period %d must be shorter than slow period %d: %w", cfg.Fast.Period, cfg.Slow.Period, ports.ErrInvalidRequest)
	}
	if !cfg.Quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive: %w", ports.ErrInvalidRequest)
	}
	if len(bars) < cfg.Slow.RequiredDataPoints() {
		return nil, fmt.Errorf("not enough bars (%d) for slow period %d: %w", len(bars), cfg.Slow.Period, ports.ErrInvalidRequest)
	}

	source := market.NewReplayQuoteSource(map[domain.Symbol][]*domain.Bar{cfg.Symbol: bars}, acc.Config().DefaultSpread)
	result := &Result{MaxDrawdown: decimal.Zero}
	tradesBefore := len(acc.Trades())
	peak := decimal.Zero

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := source.Position()
		history := bars[:step+1]

		if err := trade(ctx, acc, source, history, cfg, result, logger); err != nil {
			return nil, err
		}

		equity, err := acc.Equity(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("valuing account at step %d: %w", step, err)
		}
		if equity.GreaterThan(peak) {
			peak = equity
		}
		drawdown := decimal.Zero
		if peak.IsPositive() {
			drawdown = peak.Sub(equity).DivRound(peak, domain.DivisionPrecision)
		}
		if drawdown.GreaterThan(result.MaxDrawdown) {
			result.MaxDrawdown = drawdown
		}
		result.EquityCurve = append(result.EquityCurve, EquityPoint{Time: bars[step].CloseTime, Equity: equity, Drawdown: drawdown})
		result.Steps++

		if cfg.LogSteps {
			logger.Debug(ctx, "Replay step", map[string]interface{}{
				"step": step, "close": bars[step].Close.String(), "equity": equity.String(),
			})
		}
		if cfg.MaxSteps > 0 && result.Steps >= cfg.MaxSteps {
			break
		}
		if !source.Next() {
			break
		}
	}

	perf, err := acc.Performance(ctx, source)
	if err != nil {
		return nil, err
	}
	result.Performance = perf
	result.Trades = len(acc.Trades()) - tradesBefore

	logger.Info(ctx, "Replay finished", map[string]interface{}{
		"symbol": cfg.Symbol, "steps": result.Steps, "trades": result.Trades,
		"roi": perf.ROI.StringFixed(4), "maxDrawdown": result.MaxDrawdown.StringFixed(4),
	})
	return result, nil
}

// trade evaluates the crossover on history and executes at most one order.
func trade(ctx context.Context, acc *account.Account, source ports.QuoteSource, history []*domain.Bar, cfg Config, result *Result, logger ports.Logger) error {
	if len(history) < cfg.Slow.RequiredDataPoints() {
		return nil
	}
	fast, err := cfg.Fast.Calculate(history)
	if err != nil {
		return err
	}
	slow, err := cfg.Slow.Calculate(history)
	if err != nil {
		return err
	}

	pos, _ := acc.Position(cfg.Symbol)
	var order *domain.Order
	switch {
	case fast.GreaterThan(slow) && !pos.IsLong():
		order = domain.NewMarketOrder(cfg.Symbol, domain.Buy, cfg.Quantity)
	case fast.LessThan(slow) && pos.IsLong():
		order = domain.NewMarketOrder(cfg.Symbol, domain.Sell, pos.Quantity)
	default:
		return nil
	}

	result.OrdersSubmitted++
	if _, err := acc.SubmitOrder(ctx, order); err != nil {
		result.OrdersRejected++
		logger.Debug(ctx, "Replay order refused", map[string]interface{}{"side": order.Side, "reason": err.Error()})
		return nil
	}

	if err := acc.ProcessOpenOrders(ctx, source); err != nil {
		logger.Debug(ctx, "Replay order not filled", map[string]interface{}{"side": order.Side, "reason": err.Error()})
	}
	for _, open := range acc.OpenOrders() {
		if err := acc.CancelOrder(ctx, open.ID); err != nil {
			return err
		}
		result.OrdersRejected++
	}
	return nil
}
