package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/xiebiao/webshop/internal/auth"
	"github.com/xiebiao/webshop/internal/infrastructure/config"
	"github.com/xiebiao/webshop/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/webshop/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
	"github.com/xiebiao/webshop/pkg/jwt"
)

// LoginUseCase 登录用例
// 设计说明：
// 1. "admin"是配置级账号：口令在配置里，不查库
// 2. 普通账户按邮箱查库，bcrypt比对口令摘要
// 3. 两种登录失败返回同一个错误——不泄露"账号是否存在"
// 4. Token的sub是认证句柄（邮箱或"admin"），角色每次请求时重新解析
type LoginUseCase struct {
	db           *gorm.DB
	adminCfg     config.AdminConfig
	jwtManager   *jwt.Manager
	sessionStore *redis.SessionStore
}

// NewLoginUseCase 创建登录用例
func NewLoginUseCase(
	db *gorm.DB,
	adminCfg config.AdminConfig,
	jwtManager *jwt.Manager,
	sessionStore *redis.SessionStore,
) *LoginUseCase {
	return &LoginUseCase{
		db:           db,
		adminCfg:     adminCfg,
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Handle   string // 账户邮箱或"admin"
	Password string
}

// LoginResponse 登录响应
type LoginResponse struct {
	Handle      string `json:"handle"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // Access Token有效期（秒）
}

// Execute 执行登录
func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := uc.verify(ctx, req); err != nil {
		return nil, err
	}

	token, err := uc.jwtManager.GenerateToken(req.Handle)
	if err != nil {
		return nil, err
	}

	sessionData := map[string]interface{}{
		"handle":   req.Handle,
		"login_at": time.Now().Unix(),
	}
	ttl := time.Duration(uc.jwtManager.ExpiresIn()) * time.Second
	if err := uc.sessionStore.SaveSession(ctx, req.Handle, sessionData, ttl); err != nil {
		// 会话保存失败不影响登录，只记录
		log.Printf("保存登录会话失败: %v", err)
	}

	return &LoginResponse{
		Handle:      req.Handle,
		AccessToken: token,
		ExpiresIn:   uc.jwtManager.ExpiresIn(),
	}, nil
}

// verify 校验凭证
func (uc *LoginUseCase) verify(ctx context.Context, req LoginRequest) error {
	if req.Handle == auth.AdminHandle {
		if uc.adminCfg.Password == "" ||
			subtle.ConstantTimeCompare([]byte(req.Password), []byte(uc.adminCfg.Password)) != 1 {
			return apperrors.ErrInvalidLogin
		}
		return nil
	}

	var m mysql.AccountModel
	err := uc.db.WithContext(ctx).Where("email = ?", req.Handle).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 账号不存在与口令错误不做区分
			return apperrors.ErrInvalidLogin
		}
		return apperrors.Wrap(err, "查询账户失败")
	}

	if bcrypt.CompareHashAndPassword([]byte(m.PasswordDigest), []byte(req.Password)) != nil {
		return apperrors.ErrInvalidLogin
	}
	return nil
}

// LogoutUseCase 登出用例
type LogoutUseCase struct {
	sessionStore *redis.SessionStore
	jwtManager   *jwt.Manager
}

// NewLogoutUseCase 创建登出用例
func NewLogoutUseCase(sessionStore *redis.SessionStore, jwtManager *jwt.Manager) *LogoutUseCase {
	return &LogoutUseCase{sessionStore: sessionStore, jwtManager: jwtManager}
}

// Execute 执行登出：删会话 + Token进黑名单
func (uc *LogoutUseCase) Execute(ctx context.Context, handle, accessToken string) error {
	if err := uc.sessionStore.DeleteSession(ctx, handle); err != nil {
		return err
	}

	// 黑名单TTL与Token有效期一致：Token自然过期后黑名单项随之清理
	ttl := time.Duration(uc.jwtManager.ExpiresIn()) * time.Second
	return uc.sessionStore.AddToBlacklist(ctx, accessToken, ttl)
}
