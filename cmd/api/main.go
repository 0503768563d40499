package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	appauth "github.com/xiebiao/webshop/internal/application/auth"
	"github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/domain/order"
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
	"github.com/xiebiao/webshop/pkg/mq"
	"github.com/xiebiao/webshop/pkg/response"
	"github.com/xiebiao/webshop/pkg/tracing"
)

// main 主程序入口
// 说明：手动依赖注入（wire.go提供等价的Wire注入器）
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	fmt.Printf("✓ 配置加载成功\n")
	fmt.Printf("  - 服务端口: %d\n", cfg.Server.Port)
	fmt.Printf("  - 运行模式: %s\n", cfg.Server.Mode)
	fmt.Printf("  - 数据库: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())

	// 2. 链路追踪（可选）
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init("webshop", cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatalf("初始化链路追踪失败: %v", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("关闭链路追踪失败: %v", err)
			}
		}()
	}

	// 3. 初始化数据库与Redis
	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	// 4. 依赖注入（手动组装）
	// 基础设施层
	sessionStore := redis.NewSessionStore(redisClient)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpire)
	registry := actors.NewRegistry(db)
	gateway := infrapayment.NewBreakerGateway(infrapayment.NewSandbox(), cfg.Payment)

	// 写管道：池 + 会话工厂 + 资源处理器
	pool := mysql.NewTxPool(db)
	sessions := mysql.NewSessionFactory()

	var engineOpts []pipeline.Option
	if cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			log.Fatalf("初始化RabbitMQ失败: %v", err)
		}
		defer publisher.Close()
		engineOpts = append(engineOpts, pipeline.WithEventPublisher(publisher))
	}

	engine := pipeline.New(pool, sessions, engineOpts...)
	engine.Register(account.EntityType, resaccount.NewHooks())
	engine.Register(product.EntityType, resproduct.NewHooks())
	engine.Register(order.EntityType, resorder.NewHooks(gateway))

	// 应用层
	loginUseCase := appauth.NewLoginUseCase(db, cfg.Admin, jwtManager, sessionStore)
	logoutUseCase := appauth.NewLogoutUseCase(sessionStore, jwtManager)

	// 接口层
	authHandler := handler.NewAuthHandler(loginUseCase, logoutUseCase)
	accountHandler := handler.NewAccountHandler(engine)
	productHandler := handler.NewProductHandler(engine)
	orderHandler := handler.NewOrderHandler(engine)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, sessionStore, registry)

	// 5. 初始化Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(metrics.GinMiddleware())
	if cfg.Tracing.Enabled {
		r.Use(tracing.GinMiddleware("webshop"))
	}

	// 6. 注册路由
	registerRoutes(r, authHandler, accountHandler, productHandler, orderHandler, authMiddleware)

	// 7. 启动服务
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	fmt.Printf("\n🚀 服务启动成功！\n")
	fmt.Printf("   访问地址: http://localhost%s\n", addr)
	fmt.Printf("   健康检查: http://localhost%s/ping\n", addr)
	fmt.Printf("   API文档:  http://localhost%s/swagger/index.html\n", addr)
	fmt.Printf("   指标采集: http://localhost%s/metrics\n", addr)
	fmt.Printf("\n按Ctrl+C停止服务\n\n")

	if err := r.Run(addr); err != nil {
		log.Fatalf("启动服务失败: %v", err)
	}
}

// registerRoutes 注册路由
func registerRoutes(
	r *gin.Engine,
	authHandler *handler.AuthHandler,
	accountHandler *handler.AccountHandler,
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", metrics.Handler())

	// Swagger文档（生产环境建议禁用或加访问控制）
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API路由组
	v1 := r.Group("/api/v1")
	{
		// 认证（公开接口）
		v1.POST("/login", authHandler.Login)
		v1.POST("/logout", authMiddleware.RequireAuth(), authHandler.Logout)

		// 账户模块
		accounts := v1.Group("/accounts")
		{
			// 开户公开（自助注册）
			accounts.POST("", accountHandler.Create)

			// 其余需要登录
			accounts.GET("/:id", authMiddleware.RequireAuth(), accountHandler.Get)
			accounts.PUT("/:id", authMiddleware.RequireAuth(), accountHandler.Update)
			accounts.DELETE("/:id", authMiddleware.RequireAuth(), accountHandler.Delete)

			// 嵌套订单集合
			accounts.GET("/:id/orders", authMiddleware.RequireAuth(), orderHandler.ListByAccount)
			accounts.POST("/:id/orders", authMiddleware.RequireAuth(), orderHandler.CreateNested)
		}

		// 商品模块
		products := v1.Group("/products")
		{
			// 目录公开
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)

			// 管理动作需要登录（admin校验在写管道里）
			products.POST("", authMiddleware.RequireAuth(), productHandler.Create)
			products.PUT("/:id", authMiddleware.RequireAuth(), productHandler.Update)
			products.DELETE("/:id", authMiddleware.RequireAuth(), productHandler.Delete)
		}

		// 订单模块（全部需要登录；订单没有DELETE路由——资源级禁用）
		orders := v1.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			orders.POST("", orderHandler.Create)
			orders.GET("/:id", orderHandler.Get)
			orders.PUT("/:id", orderHandler.Update)
		}
	}
}
