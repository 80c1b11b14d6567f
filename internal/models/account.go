package models

// Balance: остаток по одной валюте/активу. Quantity включает заблокированное в ордерах.
type Balance struct {
	Currency string
	Quantity float64
	AvgCost  float64
}

type OrderState string

const (
	OrderPending   OrderState = "pending"
	OrderFilled    OrderState = "filled"
	OrderCancelled OrderState = "cancelled"
)

type OrderStatus struct {
	ID           string
	State        OrderState
	FilledQty    float64
	AvgFillPrice float64
}

// Venue: статические параметры площадки.
type Venue struct {
	Name             string
	QuoteCurrency    string
	MinOrderNotional float64
	QuantityStep     float64
}

type Instrument struct {
	Market string
	Name   string
}
