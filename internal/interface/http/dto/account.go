package dto

import "time"

// CreateAccountRequest HTTP层开户请求
// 说明：HTTP层的DTO只做格式级验证（binding tag），
// 业务规则（邮箱唯一性等）在写管道的钩子里
type CreateAccountRequest struct {
	Email     string `json:"email" binding:"required,email,max=60"`
	FirstName string `json:"firstName" binding:"required,max=30"`
	LastName  string `json:"lastName" binding:"required,max=30"`
	Password  string `json:"password" binding:"required,min=8,max=64"`
}

// UpdateAccountRequest 账户更新请求（口令可选：不传则保持不变）
type UpdateAccountRequest struct {
	Email     string `json:"email" binding:"required,email,max=60"`
	FirstName string `json:"firstName" binding:"required,max=30"`
	LastName  string `json:"lastName" binding:"required,max=30"`
	Password  string `json:"password" binding:"omitempty,min=8,max=64"`
}

// AccountResponse 账户响应（永远不包含口令相关字段）
type AccountResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
