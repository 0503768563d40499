package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/webshop/pkg/errors"
)

// Manager JWT管理器
// 设计说明：
// 1. 签名密钥从配置传入构造函数，不读环境变量、不放包级变量
// 2. Token的sub是认证句柄（账户邮箱，admin登录时为"admin"），
//    请求进入时由Actor注册表把句柄解析为Actor——Token本身不带角色，
//    角色判断永远以注册表当下的结论为准
type Manager struct {
	secret            string        // JWT签名密钥
	accessTokenExpire time.Duration // Access Token有效期
}

// NewManager 创建JWT管理器
func NewManager(secret string, accessTokenExpire time.Duration) *Manager {
	return &Manager{
		secret:            secret,
		accessTokenExpire: accessTokenExpire,
	}
}

// Claims 自定义JWT Claims
// 学习要点：
// 1. 嵌入jwt.RegisteredClaims获取标准字段（exp、iat、nbf等）
// 2. Handle冗余一份sub，方便中间件直接取用
type Claims struct {
	Handle string `json:"handle"` // 认证句柄（邮箱或"admin"）
	jwt.RegisteredClaims
}

// GenerateToken 为认证句柄签发Token
func (m *Manager) GenerateToken(handle string) (string, error) {
	now := time.Now()
	claims := Claims{
		Handle: handle,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "webshop",
			Audience:  jwt.ClaimStrings{"client"},
			Subject:   handle,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(m.secret))
	if err != nil {
		return "", apperrors.Wrap(err, "签发Token失败")
	}
	return tokenString, nil
}

// ExpiresIn Access Token有效期（秒），登录响应用
func (m *Manager) ExpiresIn() int64 {
	return int64(m.accessTokenExpire.Seconds())
}

// ParseToken 解析并验证Token
// 学习要点：
// 1. 验证签名（防止伪造）
// 2. 验证过期时间（exp）与生效时间（nbf）
// 3. 只接受HMAC族算法，防算法替换攻击
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, apperrors.ErrInvalidToken
}
