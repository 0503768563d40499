package dto

import "time"

// ProductRequest 商品创建/更新请求（价格单位：分）
type ProductRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description"`
	Price       int64  `json:"price" binding:"min=0,max=99999"`
	Available   bool   `json:"available"`
}

// ProductResponse 商品响应
type ProductResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
