package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xiebiao/webshop/internal/domain/payment"
)

// Sandbox 沙箱支付网关
// 设计说明：
// 1. 不对接真实支付渠道：授权只校验卡有效期，流水号本地随机生成
// 2. 有效期晚于（含）当前月即通过，早于当前月拒绝——
//    拒绝是业务结果（DeclinedError），不是基础设施错误
// 3. 接口形状与真实网关一致，接真实渠道时替换实现即可
type Sandbox struct{}

// NewSandbox 创建沙箱网关
func NewSandbox() *Sandbox {
	return &Sandbox{}
}

// Authorize 实现payment.Gateway：校验有效期并签发流水号
func (s *Sandbox) Authorize(ctx context.Context, cardNumber, expDate string, amountCents int64) (string, error) {
	if cardNumber == "" {
		return "", payment.Declined("缺少卡号")
	}

	exp, err := time.Parse(payment.ExpDateLayout, expDate)
	if err != nil {
		return "", payment.Declined("有效期格式不正确")
	}

	// 按月比较：本月到期的卡仍然可用
	now := time.Now()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if exp.Before(thisMonth) {
		return "", payment.Declined("卡已过期")
	}

	return newTransactionID()
}

// Capture 实现payment.Gateway：沙箱扣款总是成功
func (s *Sandbox) Capture(ctx context.Context, txID string) error {
	if txID == "" {
		return fmt.Errorf("缺少支付流水号")
	}
	return nil
}

// Void 实现payment.Gateway：沙箱撤销总是成功
func (s *Sandbox) Void(ctx context.Context, txID string) error {
	if txID == "" {
		return fmt.Errorf("缺少支付流水号")
	}
	return nil
}

// newTransactionID 生成40位十六进制流水号
func newTransactionID() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成流水号失败: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
