package kis

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"jats/internal/models"
)

const (
	pathBalance    = "/uapi/domestic-stock/v1/trading/inquire-balance"
	pathOrderCash  = "/uapi/domestic-stock/v1/trading/order-cash"
	pathExecutions = "/uapi/domestic-stock/v1/trading/inquire-daily-ccld"
	pathCancel     = "/uapi/domestic-stock/v1/trading/order-rvsecncl"
)

func (c *Client) account() map[string]string {
	return map[string]string{
		"CANO":         c.cfg.AccountNumber,
		"ACNT_PRDT_CD": c.cfg.AccountCode,
	}
}

func (c *Client) Balances(ctx context.Context) ([]models.Balance, error) {
	params := c.account()
	for k, v := range map[string]string{
		"AFHR_FLPR_YN":          "N",
		"OFL_YN":                "",
		"INQR_DVSN":             "02",
		"UNPR_DVSN":             "01",
		"FUND_STTL_ICLD_YN":     "N",
		"FNCG_AMT_AUTO_RDPT_YN": "N",
		"PRCS_DVSN":             "01",
		"CTX_AREA_FK100":        "",
		"CTX_AREA_NK100":        "",
	} {
		params[k] = v
	}

	var resp balanceResponse
	if err := c.do(ctx, "kis.balance", http.MethodGet, pathBalance, c.trID("TTTC8434R"), params, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Balance, 0, len(resp.Output1)+1)
	if len(resp.Output2) > 0 {
		cash := parseFloat(resp.Output2[0].Available)
		if cash == 0 {
			cash = parseFloat(resp.Output2[0].Deposit)
		}
		out = append(out, models.Balance{Currency: quoteCurrency, Quantity: cash})
	}
	for _, h := range resp.Output1 {
		qty := parseFloat(h.Quantity)
		if qty <= 0 {
			continue
		}
		out = append(out, models.Balance{
			Currency: h.Symbol,
			Quantity: qty,
			AvgCost:  parseFloat(h.AvgPrice),
		})
	}
	return out, nil
}

// PlaceMarketBuy переводит сумму в целое число акций по текущей цене.
func (c *Client) PlaceMarketBuy(ctx context.Context, symbol string, notional float64) (string, error) {
	px, err := c.CurrentPrice(ctx, symbol)
	if err != nil {
		return "", err
	}
	qty := math.Floor(notional / px)
	if qty < 1 {
		return "", models.Transient("kis.buy", errors.Errorf("notional %.0f below one share at %.0f", notional, px))
	}
	return c.placeOrder(ctx, "kis.buy", "TTTC0802U", symbol, qty)
}

func (c *Client) PlaceMarketSell(ctx context.Context, symbol string, quantity float64) (string, error) {
	qty := math.Floor(quantity)
	if qty < 1 {
		return "", models.Transient("kis.sell", errors.Errorf("quantity %v below one share", quantity))
	}
	return c.placeOrder(ctx, "kis.sell", "TTTC0801U", symbol, qty)
}

func (c *Client) placeOrder(ctx context.Context, op, trID, symbol string, qty float64) (string, error) {
	params := c.account()
	params["PDNO"] = symbol
	params["ORD_DVSN"] = "01" // рыночный
	params["ORD_QTY"] = strconv.FormatInt(int64(qty), 10)
	params["ORD_UNPR"] = "0"

	var resp orderResponse
	if err := c.do(ctx, op, http.MethodPost, pathOrderCash, c.trID(trID), params, &resp); err != nil {
		return "", err
	}
	if resp.Output.OrderNo == "" {
		return "", models.Transient(op, errors.New("empty order number in response"))
	}
	id := resp.Output.OrgNo + "-" + resp.Output.OrderNo
	c.log.Info("ордер отправлен", zap.String("symbol", symbol), zap.String("op", op), zap.String("id", id))
	return id, nil
}

func splitOrderID(id string) (orgNo, orderNo string) {
	if i := strings.IndexByte(id, '-'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

func (c *Client) OrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	_, orderNo := splitOrderID(orderID)
	today := c.now().In(seoul()).Format("20060102")
	params := c.account()
	for k, v := range map[string]string{
		"INQR_STRT_DT":    today,
		"INQR_END_DT":     today,
		"SLL_BUY_DVSN_CD": "00",
		"INQR_DVSN":       "00",
		"PDNO":            "",
		"CCLD_DVSN":       "00",
		"ORD_GNO_BRNO":    "",
		"ODNO":            orderNo,
		"INQR_DVSN_3":     "00",
		"INQR_DVSN_1":     "",
		"CTX_AREA_FK100":  "",
		"CTX_AREA_NK100":  "",
	} {
		params[k] = v
	}

	var resp executionsResponse
	if err := c.do(ctx, "kis.order", http.MethodGet, pathExecutions, c.trID("TTTC8001R"), params, &resp); err != nil {
		return models.OrderStatus{}, err
	}
	for _, o := range resp.Output1 {
		if strings.TrimLeft(o.OrderNo, "0") != strings.TrimLeft(orderNo, "0") {
			continue
		}
		st := models.OrderStatus{
			ID:           orderID,
			FilledQty:    parseFloat(o.FilledQty),
			AvgFillPrice: parseFloat(o.AvgPrice),
		}
		ordered := parseFloat(o.OrderQty)
		switch {
		case ordered > 0 && st.FilledQty >= ordered:
			st.State = models.OrderFilled
		case o.Cancelled == "Y" && st.FilledQty > 0:
			st.State = models.OrderFilled
		case o.Cancelled == "Y":
			st.State = models.OrderCancelled
		default:
			st.State = models.OrderPending
		}
		return st, nil
	}
	return models.OrderStatus{ID: orderID, State: models.OrderPending}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	orgNo, orderNo := splitOrderID(orderID)
	params := c.account()
	params["KRX_FWDG_ORD_ORGNO"] = orgNo
	params["ORGN_ODNO"] = orderNo
	params["ORD_DVSN"] = "00"
	params["RVSE_CNCL_DVSN_CD"] = "02"
	params["ORD_QTY"] = "0"
	params["ORD_UNPR"] = "0"
	params["QTY_ALL_ORD_YN"] = "Y"

	if err := c.do(ctx, "kis.cancel", http.MethodPost, pathCancel, c.trID("TTTC0803U"), params, nil); err != nil {
		return false, err
	}
	return true, nil
}
