package upbit

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"jats/internal/models"
)

const maxCandles = 200

func (c *Client) CurrentPrice(ctx context.Context, market string) (float64, error) {
	if c.stream != nil {
		if px, ok := c.stream.Last(market, 2*time.Second); ok {
			return px, nil
		}
	}

	var resp []tickerResponse
	err := c.do(ctx, "upbit.ticker", http.MethodGet, "/ticker", url.Values{"markets": {market}}, false, &resp)
	if err != nil {
		return 0, err
	}
	for _, t := range resp {
		if t.Market == market && t.TradePrice > 0 {
			return t.TradePrice, nil
		}
	}
	return 0, models.DataUnavailable("upbit.ticker", "no ticker for "+market)
}

// Candles: свечи по возрастанию времени (Upbit отдаёт от новых к старым).
func (c *Client) Candles(ctx context.Context, market string, tf models.Timeframe, count int) ([]models.PriceBar, error) {
	if count <= 0 || count > maxCandles {
		count = maxCandles
	}
	path := "/candles/days"
	if !tf.Daily {
		path = "/candles/minutes/" + strconv.Itoa(tf.Minutes)
	}
	params := url.Values{
		"market": {market},
		"count":  {strconv.Itoa(count)},
	}

	var resp []candleResponse
	if err := c.do(ctx, "upbit.candles", http.MethodGet, path, params, false, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, models.DataUnavailable("upbit.candles", "empty candles for "+market)
	}

	bars := make([]models.PriceBar, 0, len(resp))
	for _, r := range resp {
		ts, err := time.ParseInLocation("2006-01-02T15:04:05", r.CandleTimeUTC, time.UTC)
		if err != nil {
			ts = time.UnixMilli(r.Timestamp).UTC()
		}
		bars = append(bars, models.PriceBar{
			Time:   ts,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (c *Client) Instruments(ctx context.Context) ([]models.Instrument, error) {
	var resp []marketResponse
	params := url.Values{"isDetails": {"false"}}
	if err := c.do(ctx, "upbit.markets", http.MethodGet, "/market/all", params, false, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Instrument, 0, len(resp))
	for _, m := range resp {
		out = append(out, models.Instrument{Market: m.Market, Name: m.KoreanName})
	}
	return out, nil
}
