package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/webshop/internal/domain/payment"
	"github.com/xiebiao/webshop/internal/infrastructure/config"
	"github.com/xiebiao/webshop/pkg/circuitbreaker"
)

// flakyGateway 可编程的内层网关：按次序返回预设错误
type flakyGateway struct {
	errs  []error
	calls int
}

func (g *flakyGateway) next() error {
	var err error
	if g.calls < len(g.errs) {
		err = g.errs[g.calls]
	}
	g.calls++
	return err
}

func (g *flakyGateway) Authorize(context.Context, string, string, int64) (string, error) {
	return "tx", g.next()
}
func (g *flakyGateway) Capture(context.Context, string) error { return g.next() }
func (g *flakyGateway) Void(context.Context, string) error    { return g.next() }

func breakerConfig(threshold uint32) config.PaymentConfig {
	return config.PaymentConfig{
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerTimeout:          time.Minute,
		BreakerFailureThreshold: threshold,
	}
}

func repeat(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

func TestBreakerGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("成功调用透传事务号", func(t *testing.T) {
		g := NewBreakerGateway(&flakyGateway{}, breakerConfig(3))

		txID, err := g.Authorize(ctx, "4012888888881881", "2030-12", 1000)
		require.NoError(t, err)
		assert.Equal(t, "tx", txID)
	})

	t.Run("支付拒绝原样返回且不触发熔断", func(t *testing.T) {
		declined := payment.Declined("卡已过期")
		inner := &flakyGateway{errs: repeat(declined, 10)}
		g := NewBreakerGateway(inner, breakerConfig(3))

		// 连续拒绝远超阈值，熔断器仍然放行
		for i := 0; i < 10; i++ {
			_, err := g.Authorize(ctx, "4012888888881881", "2020-01", 1000)
			require.True(t, payment.IsDeclined(err), "应返回拒绝错误: %v", err)
		}
		assert.Equal(t, 10, inner.calls, "拒绝不应触发熔断，每次都应打到内层网关")
	})

	t.Run("连续故障达到阈值后熔断", func(t *testing.T) {
		boom := errors.New("connection refused")
		inner := &flakyGateway{errs: repeat(boom, 3)}
		g := NewBreakerGateway(inner, breakerConfig(3))

		for i := 0; i < 3; i++ {
			err := g.Capture(ctx, "tx")
			require.ErrorIs(t, err, boom)
		}

		// 熔断后短路：内层网关不再被调用
		err := g.Capture(ctx, "tx")
		assert.ErrorIs(t, err, circuitbreaker.ErrOpenState)
		assert.Equal(t, 3, inner.calls, "熔断打开后不应再调用内层网关")
	})

	t.Run("故障后成功会清零连续失败计数", func(t *testing.T) {
		boom := errors.New("timeout")
		inner := &flakyGateway{errs: []error{boom, boom, nil, boom, boom}}
		g := NewBreakerGateway(inner, breakerConfig(3))

		for i := 0; i < 5; i++ {
			_ = g.Void(ctx, "tx")
		}
		assert.Equal(t, 5, inner.calls, "连续失败未达阈值，熔断不应打开")
	})
}
