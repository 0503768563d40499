package dto

// LoginRequest HTTP层登录请求
// 说明：handle是账户邮箱，管理员登录时为"admin"
type LoginRequest struct {
	Handle   string `json:"handle" binding:"required,max=60"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Handle      string `json:"handle"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // Access Token有效期（秒）
}
