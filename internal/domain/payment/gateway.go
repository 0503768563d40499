package payment

import (
	"context"
	"errors"
)

// ExpDateLayout 信用卡有效期格式（如"2027-06"）
const ExpDateLayout = "2006-01"

// Gateway 支付网关
// 设计说明：授权/扣款/撤销三段式：
// 1. Authorize：下单时冻结额度，返回流水号（订单进入NEW）
// 2. Capture：发货时真正扣款（NEW→SHIPPED）
// 3. Void：取消时释放冻结额度（NEW→CANCELED）
type Gateway interface {
	// Authorize 授权冻结，成功返回支付流水号
	Authorize(ctx context.Context, cardNumber, expDate string, amountCents int64) (string, error)

	// Capture 按流水号扣款
	Capture(ctx context.Context, txID string) error

	// Void 按流水号撤销授权
	Void(ctx context.Context, txID string) error
}

// DeclinedError 支付被拒绝（业务失败，区别于网关不可用等基础设施错误）
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return "支付被拒绝: " + e.Reason
}

// Declined 构造支付拒绝错误
func Declined(reason string) error {
	return &DeclinedError{Reason: reason}
}

// IsDeclined 判断错误是否为支付拒绝
func IsDeclined(err error) bool {
	var de *DeclinedError
	return errors.As(err, &de)
}
