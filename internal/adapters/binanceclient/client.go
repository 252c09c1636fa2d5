package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"paperAccount/internal/domain"
	"paperAccount/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	maxKlinesPerRequest = 1500
	statusTrading       = "TRADING"
)

// Client implements ports.QuoteSource and ports.HistoricalDataSource on top of
// the public Binance futures market data endpoints.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger

	mu        sync.Mutex
	symbols   map[domain.Symbol]bool // Tradable symbols from exchange info
	symbolsAt time.Time
	symbolTTL time.Duration
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	SymbolTTL  time.Duration // How long exchange info is cached (default 1h)
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty, using public endpoints only")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	ttl := cfg.SymbolTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		symbolTTL:     ttl,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1121: // Invalid symbol
			mappedErr = ports.ErrSymbolNotFound
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrMarketDataUnavailable
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "no such host") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrMarketDataUnavailable, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetQuote builds a quote from the best bid/ask of the book ticker and the
// last traded price.
func (c *Client) GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	op := "GetQuote"
	tickers, err := c.futuresClient.NewListBookTickersService().Symbol(symbol.String()).Do(ctx)
	if err != nil {
		return domain.Quote{}, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return domain.Quote{}, &ports.SymbolNotFoundError{Symbol: symbol}
	}

	prices, err := c.futuresClient.NewListPricesService().Symbol(symbol.String()).Do(ctx)
	if err != nil {
		return domain.Quote{}, c.handleError(ctx, err, op)
	}
	last := ""
	if len(prices) > 0 {
		last = prices[0].Price
	}

	quote, err := translateBookTicker(symbol, tickers[0], last)
	if err != nil {
		return domain.Quote{}, c.handleError(ctx, err, op)
	}
	return quote, nil
}

// IsSymbolSupported reports whether symbol is currently trading. Exchange info
// is cached; a failed refresh reports the symbol as unsupported.
func (c *Client) IsSymbolSupported(ctx context.Context, symbol domain.Symbol) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.symbols == nil || time.Since(c.symbolsAt) > c.symbolTTL {
		info, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
		if err != nil {
			c.handleError(ctx, err, "IsSymbolSupported")
			return false
		}
		symbols := make(map[domain.Symbol]bool, len(info.Symbols))
		for _, s := range info.Symbols {
			symbols[domain.NewSymbol(s.Symbol)] = s.Status == statusTrading
		}
		c.symbols = symbols
		c.symbolsAt = time.Now()
		c.logger.Debug(ctx, "Exchange info refreshed", map[string]interface{}{"symbols": len(symbols)})
	}
	return c.symbols[symbol]
}

// GetHistoricalData fetches every bar for symbol/interval opening between start and end.
func (c *Client) GetHistoricalData(ctx context.Context, symbol domain.Symbol, start, end time.Time, interval string) ([]*domain.Bar, error) {
	op := "GetHistoricalData"
	var bars []*domain.Bar
	from := start

	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol.String()).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxKlinesPerRequest).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			bar, err := translateBinanceKline(bk, symbol, interval)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
			}
			bars = append(bars, bar)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxKlinesPerRequest {
			break
		}
	}

	c.logger.Debug(ctx, "Historical data fetched", map[string]interface{}{
		"symbol": symbol, "interval": interval, "bars": len(bars),
	})
	return bars, nil
}

func translateBookTicker(symbol domain.Symbol, t *futures.BookTicker, lastPrice string) (domain.Quote, error) {
	if t == nil {
		return domain.Quote{}, errors.New("received nil book ticker")
	}
	bid, err := domain.PriceFromString(t.BidPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parsing bid price '%s': %w", t.BidPrice, err)
	}
	ask, err := domain.PriceFromString(t.AskPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parsing ask price '%s': %w", t.AskPrice, err)
	}

	quote := domain.NewQuote(symbol, bid, ask, bid)
	if lastPrice == "" {
		quote.Last = quote.Mid()
		return quote, nil
	}
	last, err := domain.PriceFromString(lastPrice)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parsing last price '%s': %w", lastPrice, err)
	}
	quote.Last = last
	return quote, nil
}

func translateBinanceKline(bk *futures.Kline, symbol domain.Symbol, interval string) (*domain.Bar, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := domain.PriceFromString(bk.Open)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := domain.PriceFromString(bk.High)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := domain.PriceFromString(bk.Low)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := domain.PriceFromString(bk.Close)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := decimal.NewFromString(bk.Volume)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Bar{
		Symbol:    symbol, // Not part of futures.Kline
		Interval:  interval,
		OpenTime:  time.UnixMilli(bk.OpenTime).UTC(),
		CloseTime: time.UnixMilli(bk.CloseTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}
