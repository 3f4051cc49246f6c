package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"launchpad/internal/domain"
)

// FeedConfig configures the websocket price feed client.
type FeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// StalePriceAfter invalidates a cached price not refreshed in time.
	// Zero disables staleness checks.
	StalePriceAfter time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		StalePriceAfter:   5 * time.Minute,
	}
}

type cachedPrice struct {
	price     decimal.Decimal
	updatedAt time.Time
}

// Feed is a websocket client that maintains a cache of decimals-aware USD
// prices pushed by an external oracle. Price reads never block on the
// network; a missing or stale entry fails with ErrPriceNotFound.
type Feed struct {
	endpoint string
	config   FeedConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	prices   map[domain.AssetID]cachedPrice
	pricesMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewFeed connects to the oracle endpoint and starts the read/ping loops.
func NewFeed(ctx context.Context, endpoint string, config *FeedConfig) (*Feed, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &Feed{
		endpoint: endpoint,
		config:   cfg,
		prices:   make(map[domain.AssetID]cachedPrice),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// connect establishes the websocket connection.
func (f *Feed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// Price implements PriceProvider from the cache.
func (f *Feed) Price(asset domain.AssetID) (decimal.Decimal, error) {
	f.pricesMu.RLock()
	entry, ok := f.prices[asset]
	f.pricesMu.RUnlock()

	if !ok {
		return decimal.Zero, fmt.Errorf("asset %d: %w", asset, domain.ErrPriceNotFound)
	}
	if f.config.StalePriceAfter > 0 && time.Since(entry.updatedAt) > f.config.StalePriceAfter {
		return decimal.Zero, fmt.Errorf("asset %d: stale quote: %w", asset, domain.ErrPriceNotFound)
	}
	return entry.price, nil
}

// Close shuts down the feed connection and loops.
func (f *Feed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	return nil
}

// readLoop reads price updates and refreshes the cache.
func (f *Feed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect attempts to re-establish the connection after a read failure.
func (f *Feed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Failure here is retried on the next read error.
	f.connect(ctx)
}

// priceUpdate is the oracle's wire format: whole-unit USD price plus the
// asset's own decimals.
type priceUpdate struct {
	Asset         uint32 `json:"asset"`
	Price         string `json:"price"`
	AssetDecimals int32  `json:"decimals"`
}

// handleMessage parses one price update and stores the decimals-aware price.
func (f *Feed) handleMessage(message []byte) {
	var upd priceUpdate
	if err := json.Unmarshal(message, &upd); err != nil {
		return
	}

	price, err := decimal.NewFromString(upd.Price)
	if err != nil || price.IsNegative() {
		return
	}

	aware := price.Shift(domain.USDDecimals - upd.AssetDecimals)

	f.pricesMu.Lock()
	f.prices[domain.AssetID(upd.Asset)] = cachedPrice{price: aware, updatedAt: time.Now()}
	f.pricesMu.Unlock()
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				// A failed ping surfaces as a read error and reconnect.
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

var _ PriceProvider = (*Feed)(nil)
