package pipeline

import "context"

// Conn 池化连接句柄（对管道不透明，由Pool/SessionFactory的实现解释）
type Conn any

// Pool 连接池
// 设计说明：
// 1. 每个写请求恰好占用一个连接，贯穿整条管道
// 2. Acquire失败（池耗尽、数据库不可达）按基础设施错误处理
// 3. Release必须且只能对每次成功的Acquire调用一次——引擎用单处defer保证，
//    不靠各阶段自觉清理。这是整个组件最安全攸关的性质
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Release(conn Conn)
}

// Session 单连接上的读写会话（约束查询与最终写共享同一事务快照）
// 设计说明：
// 1. 由SessionFactory基于Acquire到的连接创建
// 2. Count/Fetch服务于约束检查；Insert/Update/Delete是管道的持久化阶段
// 3. Commit提交事务；未Commit的会话在Release时整体回滚
type Session interface {
	// Count 统计满足过滤条件的记录数
	Count(ctx context.Context, entity string, filter Filter) (int64, error)
	// Fetch 通用读查询（钩子需要具体字段值时使用，如商品价格）
	Fetch(ctx context.Context, entity string, q Query) ([]Record, error)
	// Get 按主键取单条记录，未命中返回ErrNotFound
	Get(ctx context.Context, entity string, id uint) (Record, error)
	// Insert 插入记录并回填主键
	Insert(ctx context.Context, rec Record) error
	// Update 按主键整体更新记录
	Update(ctx context.Context, rec Record) error
	// Delete 按主键删除记录
	Delete(ctx context.Context, entity string, id uint) error
	// Commit 提交本会话的事务
	Commit() error
}

// SessionFactory 把池化连接包装成会话
type SessionFactory interface {
	Session(conn Conn) Session
}
