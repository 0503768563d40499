package order

import (
	"fmt"
	"time"

	"github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/pipeline"
)

// EntityType 订单实体类型名
const EntityType = "Order"

// =============================================================================
// 订单状态机
// =============================================================================

// 订单状态常量
// 状态机规则：NEW可以转到ACCEPTED/SHIPPED/CANCELED，其余状态都是终态
const (
	StatusNew      = "NEW"      // 新建（已授权未扣款）
	StatusAccepted = "ACCEPTED" // 已接单
	StatusShipped  = "SHIPPED"  // 已发货（扣款完成）
	StatusCanceled = "CANCELED" // 已取消（授权已撤销）
)

// AllowedTransitions 状态转换表
// 教学要点：用map显式声明合法转换，新增状态时一目了然，
// 比散落在各处的if判断更容易维护
var AllowedTransitions = map[string][]string{
	StatusNew:      {StatusAccepted, StatusShipped, StatusCanceled},
	StatusAccepted: {},
	StatusShipped:  {},
	StatusCanceled: {},
}

// CanTransitionTo 判断状态转换是否合法
func CanTransitionTo(from, to string) bool {
	for _, allowed := range AllowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus 判断是否为已知状态值
func ValidStatus(s string) bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// =============================================================================
// 订单实体
// =============================================================================

// OrderItem 订单行项目
type OrderItem struct {
	ID         uint   `json:"id"`
	ProductRef string `json:"productRef"` // 形如"Product#1"
	Quantity   int    `json:"quantity"`   // 1..255
}

// Order 订单实体
// 设计说明：
// 1. AccountRef、PlacedOn创建后不可变（prepare update spec阶段会恢复原值）
// 2. CreditCardNumber/CreditCardExpDate是创建时的瞬态入参，
//    授权完成后只留下PaymentTransactionID，卡信息不落库
type Order struct {
	ID                   uint        `json:"id"`
	AccountRef           string      `json:"accountRef"` // 形如"Account#1"，不可变
	PlacedOn             time.Time   `json:"placedOn"`   // 下单时间，不可变
	Status               string      `json:"status"`
	PaymentTransactionID string      `json:"paymentTransactionId,omitempty"`
	Items                []OrderItem `json:"items"`
	CreditCardNumber     string      `json:"creditCardNumber,omitempty"`  // 仅入参
	CreditCardExpDate    string      `json:"creditCardExpDate,omitempty"` // 仅入参，"20YY-MM"
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// EntityType 实现pipeline.Record
func (o *Order) EntityType() string { return EntityType }

// RecordID 实现pipeline.Record
func (o *Order) RecordID() uint { return o.ID }

// SetRecordID 实现pipeline.Record
func (o *Order) SetRecordID(id uint) { o.ID = id }

// Validate 模式校验
// 约束：accountRef必填且格式合法、status必须是已知状态、
// 行项目至少一条且数量1..255、非NEW状态必须已有支付流水号
func (o *Order) Validate() error {
	ve := pipeline.NewValidationError("订单数据无效")

	if _, ok := pipeline.ParseRef(account.EntityType, o.AccountRef); !ok {
		ve.Add("accountRef", "账户引用缺失或格式不正确")
	}
	if o.PlacedOn.IsZero() {
		ve.Add("placedOn", "下单时间不能为空")
	}
	if !ValidStatus(o.Status) {
		ve.Add("status", "未知的订单状态")
	}
	if o.Status != StatusNew && o.PaymentTransactionID == "" {
		ve.Add("paymentTransactionId", "非NEW状态的订单必须携带支付流水号")
	}

	if len(o.Items) == 0 {
		ve.Add("items", "订单至少要有一条行项目")
	}
	for i, item := range o.Items {
		if _, ok := pipeline.ParseRef(product.EntityType, item.ProductRef); !ok {
			ve.Add(fmt.Sprintf("items[%d].productRef", i), "商品引用缺失或格式不正确")
		}
		if item.Quantity < 1 || item.Quantity > 255 {
			ve.Add(fmt.Sprintf("items[%d].quantity", i), "数量必须在1到255之间")
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// MergeFrom 实现pipeline.Merger
// 可修改：状态、行项目；accountRef与placedOn在prepare update spec
// 阶段已恢复为库中原值，这里直接覆盖是安全的
func (o *Order) MergeFrom(incoming pipeline.Record) {
	in, ok := incoming.(*Order)
	if !ok {
		return
	}
	o.AccountRef = in.AccountRef
	o.PlacedOn = in.PlacedOn
	o.Status = in.Status
	o.Items = in.Items
	if in.PaymentTransactionID != "" {
		o.PaymentTransactionID = in.PaymentTransactionID
	}
}

// Snapshot 实现pipeline.Snapshotter：stage 3入口留存原状态与原商品集合
// （状态转换守卫与行项目增量校验依赖这份快照）
func (o *Order) Snapshot(mc *pipeline.Context) {
	mc.OriginalStatus = o.Status
	mc.OriginalProductIDs = make(map[uint]bool, len(o.Items))
	for _, item := range o.Items {
		if id, ok := pipeline.ParseRef(product.EntityType, item.ProductRef); ok {
			mc.OriginalProductIDs[id] = true
		}
	}
}

// ProductIDs 提取行项目引用的全部商品ID（保持出现顺序，去重）
func (o *Order) ProductIDs() []uint {
	seen := make(map[uint]bool, len(o.Items))
	ids := make([]uint, 0, len(o.Items))
	for _, item := range o.Items {
		id, ok := pipeline.ParseRef(product.EntityType, item.ProductRef)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// AccountID 解析accountRef中的账户ID（格式非法返回0）
func (o *Order) AccountID() uint {
	id, _ := pipeline.ParseRef(account.EntityType, o.AccountRef)
	return id
}
