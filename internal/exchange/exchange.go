package exchange

import (
	"context"

	"jats/internal/models"
)

// Client описывает биржу так, как её видит ядро. Реализации: upbit, kis.
type Client interface {
	Name() string
	Venue() models.Venue
	// AssetOf: код актива в балансах для рынка ("KRW-BTC" -> "BTC").
	AssetOf(market string) string

	CurrentPrice(ctx context.Context, market string) (float64, error)
	Candles(ctx context.Context, market string, tf models.Timeframe, count int) ([]models.PriceBar, error)
	Balances(ctx context.Context) ([]models.Balance, error)
	PlaceMarketBuy(ctx context.Context, market string, notional float64) (string, error)
	PlaceMarketSell(ctx context.Context, market string, quantity float64) (string, error)
	OrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	Instruments(ctx context.Context) ([]models.Instrument, error)
}

// Streamer: адаптер с фоновым потоком цен.
type Streamer interface {
	StartStream(ctx context.Context, markets []string)
	StopStream()
}
