package broker

// Side denotes order side using the venue's numeric convention.
type Side int

const (
	SideBuy  Side = 1
	SideSell Side = -1
)

// OrderType denotes basic order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Product types supported by the venue.
const (
	ProductIntraday = "INTRADAY"
	ProductMargin   = "MARGIN"
	ProductCNC      = "CNC"
)

// StatusOK is the success marker in venue response envelopes.
const StatusOK = "ok"

// OrderRequest captures an order intent to be sent to the broker.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Qty         int
	Type        OrderType
	LimitPrice  float64 // required for LIMIT
	StopLoss    float64 // optional bracket stop
	TakeProfit  float64 // optional bracket target
	ProductType string  // INTRADAY, MARGIN, CNC; defaults to INTRADAY
}

// OrderResult is the broker ack for an order placement.
type OrderResult struct {
	Status  string `json:"s"`
	Message string `json:"message"`
	OrderID string `json:"id"`
}

// OK reports whether the envelope carries a success status.
func (r OrderResult) OK() bool { return r.Status == StatusOK }

// Position is one net position as reported by the broker.
type Position struct {
	Symbol   string  `json:"symbol"`
	NetQty   int     `json:"netQty"`
	AvgPrice float64 `json:"netAvg"`
	PnL      float64 `json:"pl"`
}

// PositionsResult is the broker's position-book envelope.
type PositionsResult struct {
	Status       string     `json:"s"`
	Message      string     `json:"message"`
	NetPositions []Position `json:"netPositions"`
}

func (r PositionsResult) OK() bool { return r.Status == StatusOK }

// Order is one order as reported by the broker's order book.
type Order struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Qty      int     `json:"qty"`
	Price    float64 `json:"limitPrice"`
	Status   int     `json:"status"`
	Filled   int     `json:"filledQty"`
	OrderTag string  `json:"orderTag"`
}

// OrdersResult is the broker's order-book envelope.
type OrdersResult struct {
	Status    string  `json:"s"`
	Message   string  `json:"message"`
	OrderBook []Order `json:"orderBook"`
}

func (r OrdersResult) OK() bool { return r.Status == StatusOK }
