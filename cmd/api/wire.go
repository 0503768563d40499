//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明：
// 1. Wire是Google开发的编译期依赖注入工具
// 2. 与运行时反射注入不同，Wire在编译期生成代码
// 3. 优势：零运行时开销、类型安全、编译期检测循环依赖
//
// 工作流程：
// Step 1: 编写wire.go（本文件），定义Providers和Injector
// Step 2: 运行 `wire gen ./cmd/api`
// Step 3: Wire生成wire_gen.go，包含完整的依赖创建代码
// Step 4: main.go调用wire_gen.go中的InitializeApp()

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appauth "github.com/xiebiao/webshop/internal/application/auth"
	"github.com/xiebiao/webshop/internal/auth"
	"github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/domain/order"
	"github.com/xiebiao/webshop/internal/domain/payment"
	"github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/infrastructure/actors"
	"github.com/xiebiao/webshop/internal/infrastructure/config"
	infrapayment "github.com/xiebiao/webshop/internal/infrastructure/payment"
	"github.com/xiebiao/webshop/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/webshop/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/webshop/internal/interface/http/handler"
	"github.com/xiebiao/webshop/internal/interface/http/middleware"
	"github.com/xiebiao/webshop/internal/pipeline"
	resaccount "github.com/xiebiao/webshop/internal/resource/account"
	resorder "github.com/xiebiao/webshop/internal/resource/order"
	resproduct "github.com/xiebiao/webshop/internal/resource/product"
	"github.com/xiebiao/webshop/pkg/jwt"
	"github.com/xiebiao/webshop/pkg/metrics"
)

// ========================================
// Wire Provider Sets (依赖分组)
// ========================================

// infrastructureSet 基础设施层依赖
var infrastructureSet = wire.NewSet(
	config.Load,     // 加载配置文件
	mysql.NewDB,     // 创建MySQL连接
	redis.NewClient, // 创建Redis连接
	provideJWTManager,
	provideSessionStore,
	provideGateway,
	actors.NewRegistry,
	wire.Bind(new(auth.Registry), new(*actors.Registry)),
)

// pipelineSet 写管道依赖
var pipelineSet = wire.NewSet(
	providePipelineEngine,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	provideLoginUseCase,
	appauth.NewLogoutUseCase,
)

// interfaceSet 接口层依赖
var interfaceSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewAccountHandler,
	handler.NewProductHandler,
	handler.NewOrderHandler,
	middleware.NewAuthMiddleware,
)

// ========================================
// Custom Providers (自定义Provider)
// ========================================

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
}

// provideSessionStore 从Redis客户端创建会话存储
func provideSessionStore(client *goredis.Client) *redis.SessionStore {
	return redis.NewSessionStore(client)
}

// provideGateway 沙箱网关 + 熔断保护
func provideGateway(cfg *config.Config) payment.Gateway {
	return infrapayment.NewBreakerGateway(infrapayment.NewSandbox(), cfg.Payment)
}

// provideLoginUseCase 登录用例需要从Config提取admin配置
func provideLoginUseCase(
	db *gorm.DB,
	cfg *config.Config,
	jwtManager *jwt.Manager,
	sessionStore *redis.SessionStore,
) *appauth.LoginUseCase {
	return appauth.NewLoginUseCase(db, cfg.Admin, jwtManager, sessionStore)
}

// providePipelineEngine 组装写管道并注册全部资源处理器
func providePipelineEngine(db *gorm.DB, gateway payment.Gateway) *pipeline.Engine {
	engine := pipeline.New(mysql.NewTxPool(db), mysql.NewSessionFactory())
	engine.Register(account.EntityType, resaccount.NewHooks())
	engine.Register(product.EntityType, resproduct.NewHooks())
	engine.Register(order.EntityType, resorder.NewHooks(gateway))
	return engine
}

// provideGinEngine 创建Gin引擎并注册路由
func provideGinEngine(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(metrics.GinMiddleware())

	// /ping、/metrics、/swagger与业务路由统一在registerRoutes注册
	registerRoutes(r, authHandler, accountHandler, productHandler, orderHandler, authMiddleware)
	return r
}

// ========================================
// Wire Injector (依赖注入器)
// ========================================

// InitializeApp 初始化整个应用
// 返回配置好的Gin引擎；任何依赖创建失败时返回error
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		infrastructureSet,
		pipelineSet,
		applicationSet,
		interfaceSet,
		provideGinEngine,
	)
	return nil, nil
}
