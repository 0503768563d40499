package payment

import (
	"context"
	"errors"
	"log"

	"github.com/xiebiao/webshop/internal/domain/payment"
	"github.com/xiebiao/webshop/internal/infrastructure/config"
	"github.com/xiebiao/webshop/pkg/circuitbreaker"
	"github.com/xiebiao/webshop/pkg/metrics"
)

// BreakerGateway 带熔断保护的网关装饰器
// 设计说明：
// 1. 包在任意payment.Gateway实现外面，调用方无感知
// 2. 支付拒绝是业务结果，不计入熔断统计——只有网关本身的
//    故障（超时、网络错误）才应该触发熔断
// 3. 每次调用打点（op与结果标签），便于观测网关健康度
type BreakerGateway struct {
	inner payment.Gateway
	cb    *circuitbreaker.CircuitBreaker
}

// NewBreakerGateway 创建熔断网关
func NewBreakerGateway(inner payment.Gateway, cfg config.PaymentConfig) *BreakerGateway {
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := circuitbreaker.NewCircuitBreaker("payment-gateway", circuitbreaker.Config{
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Printf("熔断器[%s]状态变化: %s -> %s", name, from, to)
	})

	return &BreakerGateway{inner: inner, cb: cb}
}

// Authorize 实现payment.Gateway
func (g *BreakerGateway) Authorize(ctx context.Context, cardNumber, expDate string, amountCents int64) (string, error) {
	var txID string
	err := g.call("authorize", func() error {
		var err error
		txID, err = g.inner.Authorize(ctx, cardNumber, expDate, amountCents)
		return err
	})
	return txID, err
}

// Capture 实现payment.Gateway
func (g *BreakerGateway) Capture(ctx context.Context, txID string) error {
	return g.call("capture", func() error {
		return g.inner.Capture(ctx, txID)
	})
}

// Void 实现payment.Gateway
func (g *BreakerGateway) Void(ctx context.Context, txID string) error {
	return g.call("void", func() error {
		return g.inner.Void(ctx, txID)
	})
}

// call 熔断执行+打点
func (g *BreakerGateway) call(op string, fn func() error) error {
	var declined error

	err := g.cb.Execute(func() error {
		err := fn()
		if payment.IsDeclined(err) {
			// 拒绝是正常业务结果，对熔断器而言这次调用是成功的
			declined = err
			return nil
		}
		return err
	})

	switch {
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.ObserveGatewayCall(op, "open")
		return err
	case err != nil:
		metrics.ObserveGatewayCall(op, "error")
		return err
	case declined != nil:
		metrics.ObserveGatewayCall(op, "declined")
		return declined
	default:
		metrics.ObserveGatewayCall(op, "ok")
		return nil
	}
}
