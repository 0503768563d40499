package pipeline

// ResourceOptions 资源级开关
// 设计说明：Configure阶段不是按请求执行的——资源注册时执行一次，
// 允许处理器整体禁用某个HTTP方法（如订单禁止DELETE）
type ResourceOptions struct {
	DisableCreate bool
	DisableUpdate bool
	DisableDelete bool
}

// Hooks 生命周期钩子（闭集）
// 设计说明：
// 1. 每个识别的阶段对应一个方法，管道驱动器按固定顺序调用
// 2. 处理器内嵌BaseHooks获得全部no-op默认实现，只覆盖自己关心的阶段
// 3. 任一阶段返回错误即短路：后续阶段与持久化一律不再执行
//
// 阶段顺序：
//
//	创建: PrepareCreate → Validate → BeforeCreate → BeforeCreateSave → Insert → Commit
//	更新: PrepareUpdate → Validate → (取原记录+快照) → PrepareUpdateSpec
//	      → BeforeUpdate → 合并 → Validate → BeforeUpdateSave → Update → Commit
//	删除: (取原记录) → BeforeDelete → Delete → Commit
type Hooks interface {
	// Configure 资源注册时执行一次，可禁用整类操作
	Configure(opts *ResourceOptions)

	// PrepareCreate 纯数据重塑：在模式校验之前整理新建模板
	// （合并重复行项目、把明文口令换成摘要等），也可直接返回校验错误
	PrepareCreate(mc *Context, rec Record) error

	// PrepareUpdate 同PrepareCreate，作用于更新的传入载荷
	PrepareUpdate(mc *Context, rec Record) error

	// PrepareUpdateSpec 在合并之前调整更新内容
	// （典型用法：把不可修改字段从传入载荷强制恢复为原值）
	PrepareUpdateSpec(mc *Context, existing, incoming Record) error

	// BeforeCreate 业务规则闸门：唯一性、引用存在性、授权、支付授权
	BeforeCreate(mc *Context, rec Record) error

	// BeforeUpdate 在合并之前执行，收到的是修改前的原记录，
	// 可配合Context里的快照字段留存"原值"供下一阶段比较
	BeforeUpdate(mc *Context, existing Record) error

	// BeforeDelete 删除闸门：检查依赖实体是否存在
	BeforeDelete(mc *Context, existing Record) error

	// BeforeCreateSave 对最终形态的检查（落库前最后一道）
	BeforeCreateSave(mc *Context, rec Record) error

	// BeforeUpdateSave 合并完成后、写库之前执行：
	// 依赖记录最终形态的检查（行项目去重）、状态机与支付副作用都在这里
	BeforeUpdateSave(mc *Context, merged Record) error
}

// BaseHooks 全no-op默认实现，资源处理器内嵌后按需覆盖
type BaseHooks struct{}

func (BaseHooks) Configure(*ResourceOptions)                         {}
func (BaseHooks) PrepareCreate(*Context, Record) error               { return nil }
func (BaseHooks) PrepareUpdate(*Context, Record) error               { return nil }
func (BaseHooks) PrepareUpdateSpec(*Context, Record, Record) error   { return nil }
func (BaseHooks) BeforeCreate(*Context, Record) error                { return nil }
func (BaseHooks) BeforeUpdate(*Context, Record) error                { return nil }
func (BaseHooks) BeforeDelete(*Context, Record) error                { return nil }
func (BaseHooks) BeforeCreateSave(*Context, Record) error            { return nil }
func (BaseHooks) BeforeUpdateSave(*Context, Record) error            { return nil }
