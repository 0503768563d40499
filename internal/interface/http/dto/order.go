package dto

import "time"

// OrderItemDTO 订单行项目
type OrderItemDTO struct {
	ProductRef string `json:"productRef" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=255"`
}

// CreateOrderRequest 下单请求
// 说明：
// 1. 嵌套路由（POST /accounts/:id/orders）时accountRef从路径取，可省略
// 2. 卡信息只用于支付授权，不落库、不回显
type CreateOrderRequest struct {
	AccountRef        string         `json:"accountRef"`
	Items             []OrderItemDTO `json:"items" binding:"required,min=1,dive"`
	CreditCardNumber  string         `json:"creditCardNumber" binding:"required"`
	CreditCardExpDate string         `json:"creditCardExpDate" binding:"required"` // "20YY-MM"
}

// UpdateOrderRequest 改单请求（PUT语义：完整表述）
// 说明：accountRef、placedOn、paymentTransactionId原样回传即可——
// 服务端会强制以库中原值为准，不可能借此改写
type UpdateOrderRequest struct {
	AccountRef           string         `json:"accountRef" binding:"required"`
	PlacedOn             time.Time      `json:"placedOn" binding:"required"`
	Status               string         `json:"status" binding:"required"`
	PaymentTransactionID string         `json:"paymentTransactionId"`
	Items                []OrderItemDTO `json:"items" binding:"required,min=1,dive"`
}

// OrderResponse 订单响应
type OrderResponse struct {
	ID                   uint           `json:"id"`
	AccountRef           string         `json:"accountRef"`
	PlacedOn             time.Time      `json:"placedOn"`
	Status               string         `json:"status"`
	PaymentTransactionID string         `json:"paymentTransactionId,omitempty"`
	Items                []OrderItemDTO `json:"items"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}
