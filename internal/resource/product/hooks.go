package product

import (
	"github.com/xiebiao/webshop/internal/domain/order"
	domain "github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/pipeline"
)

// Hooks 商品资源的生命周期处理器
// 业务规则：
// 1. 商品目录的增删改是运营动作，一律只允许admin
// 2. 被任何订单行项目引用的商品不允许删除（订单历史要能回放）
type Hooks struct {
	pipeline.BaseHooks
}

// NewHooks 创建商品处理器
func NewHooks() *Hooks {
	return &Hooks{}
}

// BeforeCreate 创建闸门：仅admin
func (h *Hooks) BeforeCreate(mc *pipeline.Context, rec pipeline.Record) error {
	if !mc.Actor.IsAdmin() {
		return mc.Reject(403, "只有管理员可以管理商品")
	}
	return nil
}

// BeforeUpdate 更新闸门：仅admin
func (h *Hooks) BeforeUpdate(mc *pipeline.Context, existing pipeline.Record) error {
	if !mc.Actor.IsAdmin() {
		return mc.Reject(403, "只有管理员可以管理商品")
	}
	return nil
}

// BeforeDelete 删除闸门：仅admin，且不能被订单引用
func (h *Hooks) BeforeDelete(mc *pipeline.Context, existing pipeline.Record) error {
	if !mc.Actor.IsAdmin() {
		return mc.Reject(403, "只有管理员可以管理商品")
	}

	p := existing.(*domain.Product)
	// 存在任一订单的行项目引用本商品即拒绝（EXISTS子查询）
	return mc.RejectIfExists(order.EntityType, pipeline.Filter{
		{Path: "items", Op: pipeline.OpNotEmpty, Nested: pipeline.Filter{
			{Path: "productRef", Op: pipeline.OpIs, Value: p.ID},
		}},
	}, 400, "商品已被订单引用，不能删除")
}
