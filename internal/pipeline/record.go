package pipeline

// Record 实体记录
// 设计说明：
// 1. Account/Product/Order等领域实体都实现这个接口，作为管道的统一载体
// 2. Validate在prepare阶段之后执行（prepare可能还在重塑数据），
//    失败时返回*ValidationError
type Record interface {
	// EntityType 实体类型名（"Account" / "Product" / "Order"）
	EntityType() string
	// RecordID 主键（未持久化时为0）
	RecordID() uint
	// SetRecordID 回填主键（Insert后由Session调用）
	SetRecordID(id uint)
	// Validate 模式校验，失败返回*ValidationError
	Validate() error
}

// Merger 可合并记录
// 更新管道在BeforeUpdate之后把传入记录合并到已有记录上：
// 只覆盖可修改字段，不可修改字段（如订单的accountRef、placedOn）保持原值
type Merger interface {
	MergeFrom(incoming Record)
}

// Snapshotter 跨阶段快照
// 设计说明：
// 1. 更新管道在stage 3（BeforeUpdate）入口、合并之前调用已有记录的Snapshot，
//    把"修改前的原值"写入MutationContext的具名字段
// 2. 取代钩子往上下文里塞私有key的做法：管道自己需要的跨阶段状态
//    （原状态、原邮箱、原商品引用集合）都是显式的、有类型的
type Snapshotter interface {
	Snapshot(mc *Context)
}
