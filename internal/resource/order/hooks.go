package order

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xiebiao/webshop/internal/domain/account"
	domain "github.com/xiebiao/webshop/internal/domain/order"
	"github.com/xiebiao/webshop/internal/domain/payment"
	"github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/pipeline"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
)

// Hooks 订单资源的生命周期处理器
// 业务规则（核心）：
// 1. 下单：归并重复行项目 → 账户存在 → 所有商品存在且可售（共享锁）
//    → 计算金额 → 支付授权 → 留下流水号（卡信息不落库）
// 2. 改单：不可修改字段恢复原值；新增商品重新校验；状态转换走状态机，
//    发货触发扣款、取消触发撤销授权——网关调用成功才允许写行
// 3. 订单不允许删除（历史要可回放），取消即终态
type Hooks struct {
	pipeline.BaseHooks
	gateway payment.Gateway
}

// NewHooks 创建订单处理器
func NewHooks(gateway payment.Gateway) *Hooks {
	return &Hooks{gateway: gateway}
}

// Configure 禁用DELETE：订单只能取消，不能抹掉
func (h *Hooks) Configure(opts *pipeline.ResourceOptions) {
	opts.DisableDelete = true
}

// PrepareCreate 重塑新建模板
// 1. 嵌套路由（/accounts/:id/orders）时账户引用取自路径
// 2. 状态、下单时间由服务端定，不信任客户端
// 3. 重复商品的行项目归并为一条（数量求和，保持首次出现的顺序）
// 4. 卡号与有效期是授权的必要入参，缺失直接以校验错误短路
func (h *Hooks) PrepareCreate(mc *pipeline.Context, rec pipeline.Record) error {
	o := rec.(*domain.Order)

	if len(mc.URIParams) > 0 {
		accountID, err := strconv.ParseUint(mc.URIParams[0], 10, 32)
		if err != nil {
			return mc.Reject(404, "账户不存在")
		}
		o.AccountRef = pipeline.RefOf(account.EntityType, uint(accountID))
	}

	o.Status = domain.StatusNew
	o.PlacedOn = time.Now()
	o.PaymentTransactionID = ""
	o.Items = consolidate(o.Items)

	ve := pipeline.NewValidationError("订单数据无效")
	if o.CreditCardNumber == "" {
		ve.Add("creditCardNumber", "卡号不能为空")
	}
	if o.CreditCardExpDate == "" {
		ve.Add("creditCardExpDate", "卡有效期不能为空")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// BeforeCreate 下单闸门：授权 → 账户存在 → 商品可售 → 支付授权
func (h *Hooks) BeforeCreate(mc *pipeline.Context, rec pipeline.Record) error {
	o := rec.(*domain.Order)
	accountID := o.AccountID()

	// 只能为自己的账户下单（admin可以代客下单）
	if !mc.Actor.Owns(accountID) && !mc.Actor.IsAdmin() {
		return mc.Reject(403, "只能为自己的账户下单")
	}

	// 账户存在性
	if err := mc.RejectIfNotExists(account.EntityType, pipeline.Filter{
		{Path: "id", Op: pipeline.OpIs, Value: accountID},
	}, 400, "指定账户不存在"); err != nil {
		return err
	}

	// 商品存在且可售，带共享锁读出价格——
	// 锁住的行在本事务提交前不会被下架或改价
	ids := o.ProductIDs()
	recs, err := mc.Fetch(product.EntityType, pipeline.Query{
		Props: []string{"price"},
		Filter: pipeline.Filter{
			{Path: "id", Op: pipeline.OpIn, Value: ids},
			{Path: "available", Op: pipeline.OpIs, Value: true},
		},
		LockShared: true,
	})
	if err != nil {
		return err
	}
	if len(recs) != len(ids) {
		return mc.Reject(400, "部分商品不存在或已下架")
	}

	// 金额 = Σ 单价×数量（分）
	prices := make(map[uint]int64, len(recs))
	for _, r := range recs {
		p := r.(*product.Product)
		prices[p.ID] = p.Price
	}
	var amount int64
	for _, item := range o.Items {
		pid, _ := pipeline.ParseRef(product.EntityType, item.ProductRef)
		amount += prices[pid] * int64(item.Quantity)
	}

	// 支付授权：拒绝是业务结果（400），网关故障是基础设施错误（5xx）
	txID, err := h.gateway.Authorize(mc.Context(), o.CreditCardNumber, o.CreditCardExpDate, amount)
	if err != nil {
		if payment.IsDeclined(err) {
			return mc.Reject(400, "无法完成支付: "+err.Error())
		}
		return &apperrors.AppError{Code: apperrors.ErrCodeGatewayError, Message: "支付网关调用失败", Err: err}
	}

	o.PaymentTransactionID = txID
	o.CreditCardNumber = "" // 卡信息不落库
	o.CreditCardExpDate = ""
	return nil
}

// PrepareUpdateSpec 恢复不可修改字段：
// 账户引用、下单时间、支付流水号一律以库中原值为准
func (h *Hooks) PrepareUpdateSpec(mc *pipeline.Context, existing, incoming pipeline.Record) error {
	ex := existing.(*domain.Order)
	in := incoming.(*domain.Order)
	in.AccountRef = ex.AccountRef
	in.PlacedOn = ex.PlacedOn
	in.PaymentTransactionID = ex.PaymentTransactionID
	return nil
}

// BeforeUpdate 改单闸门：只允许订单归属人或admin
func (h *Hooks) BeforeUpdate(mc *pipeline.Context, existing pipeline.Record) error {
	o := existing.(*domain.Order)
	if !mc.Actor.Owns(o.AccountID()) && !mc.Actor.IsAdmin() {
		return mc.Reject(403, "无权修改他人订单")
	}
	return nil
}

// BeforeUpdateSave 最终形态检查+状态机副作用
// 教学要点：网关调用（扣款/撤销）放在最后一个钩子里——
// 它成功之后管道才会执行写语句，网关失败时订单行原封不动
func (h *Hooks) BeforeUpdateSave(mc *pipeline.Context, merged pipeline.Record) error {
	o := merged.(*domain.Order)

	// 行项目不允许重复引用同一商品（创建时归并，更新时从严拒绝）
	seen := make(map[uint]bool, len(o.Items))
	for _, item := range o.Items {
		pid, _ := pipeline.ParseRef(product.EntityType, item.ProductRef)
		if seen[pid] {
			return mc.Reject(422, "订单行项目引用了重复的商品")
		}
		seen[pid] = true
	}

	// 新增的商品引用重新校验存在性与可售性（原有的不再重查）
	var added []uint
	for _, id := range o.ProductIDs() {
		if !mc.OriginalProductIDs[id] {
			added = append(added, id)
		}
	}
	if len(added) > 0 {
		if err := mc.RejectIfNotExactNum(product.EntityType, pipeline.Filter{
			{Path: "id", Op: pipeline.OpIn, Value: added},
			{Path: "available", Op: pipeline.OpIs, Value: true},
		}, int64(len(added)), 422, "部分商品不存在或已下架"); err != nil {
			return err
		}
	}

	return h.guardTransition(mc, o)
}

// guardTransition 状态转换守卫
// 状态机：NEW → {ACCEPTED, SHIPPED, CANCELED}，其余状态都是终态
func (h *Hooks) guardTransition(mc *pipeline.Context, o *domain.Order) error {
	from := mc.OriginalStatus
	to := o.Status
	if from == to {
		return nil
	}

	if !domain.CanTransitionTo(from, to) {
		return mc.Reject(409, fmt.Sprintf("订单状态%s不允许转换到%s", from, to))
	}

	switch to {
	case domain.StatusShipped:
		// 发货是运营动作，且触发真正扣款
		if !mc.Actor.IsAdmin() {
			return mc.Reject(403, "只有管理员可以发货")
		}
		if err := h.gateway.Capture(mc.Context(), o.PaymentTransactionID); err != nil {
			return &apperrors.AppError{Code: apperrors.ErrCodeGatewayError, Message: "支付扣款失败", Err: err}
		}
	case domain.StatusCanceled:
		// 取消释放授权冻结的额度
		if err := h.gateway.Void(mc.Context(), o.PaymentTransactionID); err != nil {
			return &apperrors.AppError{Code: apperrors.ErrCodeGatewayError, Message: "撤销支付授权失败", Err: err}
		}
	}
	return nil
}

// consolidate 归并重复商品的行项目：数量求和，保持首次出现的顺序
func consolidate(items []domain.OrderItem) []domain.OrderItem {
	index := make(map[string]int, len(items))
	out := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductRef]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductRef] = len(out)
		out = append(out, item)
	}
	return out
}
