package upbit

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"jats/internal/models"
)

var errEmptyOrderID = errors.New("empty order uuid in response")

func (c *Client) Balances(ctx context.Context) ([]models.Balance, error) {
	var resp []accountResponse
	if err := c.do(ctx, "upbit.accounts", http.MethodGet, "/accounts", nil, true, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Balance, 0, len(resp))
	for _, a := range resp {
		out = append(out, models.Balance{
			Currency: a.Currency,
			Quantity: parseFloat(a.Balance) + parseFloat(a.Locked),
			AvgCost:  parseFloat(a.AvgBuyPrice),
		})
	}
	return out, nil
}

// PlaceMarketBuy: рыночная покупка на сумму notional в KRW (ord_type=price).
func (c *Client) PlaceMarketBuy(ctx context.Context, market string, notional float64) (string, error) {
	params := url.Values{
		"market":   {market},
		"side":     {"bid"},
		"price":    {formatAmount(notional, 0)},
		"ord_type": {"price"},
	}
	return c.placeOrder(ctx, "upbit.buy", params)
}

// PlaceMarketSell: рыночная продажа количества (ord_type=market).
func (c *Client) PlaceMarketSell(ctx context.Context, market string, quantity float64) (string, error) {
	params := url.Values{
		"market":   {market},
		"side":     {"ask"},
		"volume":   {formatAmount(quantity, 8)},
		"ord_type": {"market"},
	}
	return c.placeOrder(ctx, "upbit.sell", params)
}

func (c *Client) placeOrder(ctx context.Context, op string, params url.Values) (string, error) {
	var resp orderResponse
	if err := c.do(ctx, op, http.MethodPost, "/orders", params, true, &resp); err != nil {
		return "", err
	}
	if resp.UUID == "" {
		return "", models.Transient(op, errEmptyOrderID)
	}
	c.log.Info("ордер отправлен",
		zap.String("market", params.Get("market")),
		zap.String("side", params.Get("side")),
		zap.String("uuid", resp.UUID))
	return resp.UUID, nil
}

func (c *Client) OrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	var resp orderResponse
	if err := c.do(ctx, "upbit.order", http.MethodGet, "/order", url.Values{"uuid": {orderID}}, true, &resp); err != nil {
		return models.OrderStatus{}, err
	}
	return toOrderStatus(resp), nil
}

func toOrderStatus(r orderResponse) models.OrderStatus {
	var funds, vol float64
	for _, t := range r.Trades {
		funds += parseFloat(t.Funds)
		vol += parseFloat(t.Volume)
	}
	executed := parseFloat(r.ExecutedVolume)
	if executed == 0 {
		executed = vol
	}
	st := models.OrderStatus{ID: r.UUID, FilledQty: executed}
	if vol > 0 {
		st.AvgFillPrice = funds / vol
	}

	switch r.State {
	case "done":
		st.State = models.OrderFilled
	case "cancel":
		// рыночная покупка по сумме закрывается как cancel с исполненным объёмом
		if executed > 0 {
			st.State = models.OrderFilled
		} else {
			st.State = models.OrderCancelled
		}
	default:
		st.State = models.OrderPending
	}
	return st
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	var resp orderResponse
	if err := c.do(ctx, "upbit.cancel", http.MethodDelete, "/order", url.Values{"uuid": {orderID}}, true, &resp); err != nil {
		return false, err
	}
	return true, nil
}
