package kis

import (
	"context"
	"net/http"
	"sort"
	"time"

	"jats/internal/models"
)

const (
	pathPrice      = "/uapi/domestic-stock/v1/quotations/inquire-price"
	pathDailyChart = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"
	chartPageSize  = 100
	maxChartPages  = 3
)

func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var resp priceResponse
	params := map[string]string{
		"FID_COND_MRKT_DIV_CODE": "J",
		"FID_INPUT_ISCD":         symbol,
	}
	if err := c.do(ctx, "kis.price", http.MethodGet, pathPrice, "FHKST01010100", params, &resp); err != nil {
		return 0, err
	}
	px := parseFloat(resp.Output.Price)
	if px <= 0 {
		return 0, models.DataUnavailable("kis.price", "no price for "+symbol)
	}
	return px, nil
}

// Candles отдаёт только дневки. Страница API до 100 дней, листаем назад.
func (c *Client) Candles(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.PriceBar, error) {
	if !tf.Daily {
		return nil, models.DataUnavailable("kis.candles", "only daily candles are supported, got "+tf.String())
	}
	loc := seoul()
	end := c.now().In(loc)

	seen := make(map[string]bool)
	var bars []models.PriceBar
	for page := 0; page < maxChartPages && len(bars) < count; page++ {
		start := end.AddDate(0, 0, -chartPageSize*7/5)
		var resp dailyChartResponse
		params := map[string]string{
			"FID_COND_MRKT_DIV_CODE": "J",
			"FID_INPUT_ISCD":         symbol,
			"FID_INPUT_DATE_1":       start.Format("20060102"),
			"FID_INPUT_DATE_2":       end.Format("20060102"),
			"FID_PERIOD_DIV_CODE":    "D",
			"FID_ORG_ADJ_PRC":        "0",
		}
		if err := c.do(ctx, "kis.candles", http.MethodGet, pathDailyChart, "FHKST03010100", params, &resp); err != nil {
			return nil, err
		}
		added := 0
		for _, r := range resp.Output2 {
			if r.Date == "" || seen[r.Date] {
				continue
			}
			ts, err := time.ParseInLocation("20060102", r.Date, loc)
			if err != nil {
				continue
			}
			seen[r.Date] = true
			added++
			bars = append(bars, models.PriceBar{
				Time:   ts,
				Open:   parseFloat(r.Open),
				High:   parseFloat(r.High),
				Low:    parseFloat(r.Low),
				Close:  parseFloat(r.Close),
				Volume: parseFloat(r.Volume),
			})
		}
		if added == 0 {
			break
		}
		end = start.AddDate(0, 0, -1)
	}
	if len(bars) == 0 {
		return nil, models.DataUnavailable("kis.candles", "empty candles for "+symbol)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > count && count > 0 {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

// Instruments: у KIS нет листинга через этот API, рынки задаются в конфиге.
func (c *Client) Instruments(context.Context) ([]models.Instrument, error) {
	return nil, models.DataUnavailable("kis.instruments", "instrument listing is not supported, set trading.markets")
}

func seoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*3600)
	}
	return loc
}
