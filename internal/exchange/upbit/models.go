package upbit

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

type tickerResponse struct {
	Market     string  `json:"market"`
	TradePrice float64 `json:"trade_price"`
	Timestamp  int64   `json:"timestamp"`
}

type candleResponse struct {
	Market        string  `json:"market"`
	CandleTimeUTC string  `json:"candle_date_time_utc"`
	Open          float64 `json:"opening_price"`
	High          float64 `json:"high_price"`
	Low           float64 `json:"low_price"`
	Close         float64 `json:"trade_price"`
	Timestamp     int64   `json:"timestamp"`
	Volume        float64 `json:"candle_acc_trade_volume"`
}

type marketResponse struct {
	Market      string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

type accountResponse struct {
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Locked       string `json:"locked"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	UnitCurrency string `json:"unit_currency"`
}

type orderResponse struct {
	UUID            string          `json:"uuid"`
	Side            string          `json:"side"`
	OrdType         string          `json:"ord_type"`
	State           string          `json:"state"`
	Market          string          `json:"market"`
	Volume          string          `json:"volume"`
	RemainingVolume string          `json:"remaining_volume"`
	ExecutedVolume  string          `json:"executed_volume"`
	Trades          []tradeResponse `json:"trades"`
}

type tradeResponse struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
	Funds  string `json:"funds"`
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// formatAmount: десятичная запись без экспоненты.
func formatAmount(v float64, places int32) string {
	return decimal.NewFromFloat(v).Truncate(places).String()
}
