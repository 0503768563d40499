// Package metrics 提供基于Prometheus的指标收集
//
// 指标设计（写管道视角）：
// 1. webshop_mutations_total —— 变更计数，按实体/操作/结果（success|rejected|error）
// 2. webshop_pool_connections_in_use —— 正在被管道占用的池化连接数
//    教学要点：这是验证"每次Acquire恰好一次Release"的运行时信号，
//    泄漏时该Gauge只升不降
// 3. webshop_gateway_calls_total —— 支付网关调用计数，按操作/结果
// 4. webshop_entity_events_total —— 实体事件发布计数
// 5. webshop_http_* —— HTTP层通用指标（Gin中间件）
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webshop_mutations_total",
		Help: "写管道处理的变更总数",
	}, []string{"entity", "action", "outcome"})

	poolInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webshop_pool_connections_in_use",
		Help: "写管道当前占用的池化连接数",
	})

	gatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webshop_gateway_calls_total",
		Help: "支付网关调用总数",
	}, []string{"op", "outcome"})

	entityEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webshop_entity_events_total",
		Help: "实体事件发布总数",
	}, []string{"entity", "outcome"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webshop_http_requests_total",
		Help: "HTTP请求总数",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webshop_http_request_duration_seconds",
		Help:    "HTTP请求耗时分布",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// ObserveMutation 记录一次变更结果
func ObserveMutation(entity, action, outcome string) {
	mutationsTotal.WithLabelValues(entity, action, outcome).Inc()
}

// PoolAcquired 连接被占用
func PoolAcquired() {
	poolInUse.Inc()
}

// PoolReleased 连接被释放
func PoolReleased() {
	poolInUse.Dec()
}

// ObserveGatewayCall 记录一次支付网关调用
func ObserveGatewayCall(op, outcome string) {
	gatewayCallsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveEventPublish 记录一次实体事件发布
func ObserveEventPublish(entity, outcome string) {
	entityEventsTotal.WithLabelValues(entity, outcome).Inc()
}

// Handler 返回/metrics端点的HTTP处理器（Prometheus抓取用）
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware HTTP层指标中间件
// 教学要点：path用路由模板（c.FullPath）而非原始URL，避免标签基数爆炸
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched" // 404等未命中路由的请求归为一类
		}
		httpRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
