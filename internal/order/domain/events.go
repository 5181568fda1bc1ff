package domain

type OrderCreated struct {
	OrderID    string `json:"order_id"`
	BuyerID    string `json:"buyer_id"`
	TotalPaise int64  `json:"total_paise"`
	Lines      []Line `json:"lines"`
}

type OrderConfirmed struct {
	OrderID    string `json:"order_id"`
	BuyerID    string `json:"buyer_id"`
	TotalPaise int64  `json:"total_paise"`
}

type OrderCancelled struct {
	OrderID  string `json:"order_id"`
	BuyerID  string `json:"buyer_id"`
	Reason   string `json:"reason"`
	Refunded bool   `json:"refunded"`
}

type OrderFailed struct {
	OrderID string `json:"order_id"`
	BuyerID string `json:"buyer_id"`
	Reason  string `json:"reason"`
}
