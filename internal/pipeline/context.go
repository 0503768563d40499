package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xiebiao/webshop/internal/auth"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
)

// Context 变更上下文（每次变更请求一个，生命周期=一次请求）
// 设计说明：
// 1. 持有本次变更占用的会话：钩子发起的所有约束查询都走同一个连接，
//    与最终写观察同一事务快照
// 2. 跨阶段状态是具名的、有类型的字段（由驱动器在stage 3入口填充），
//    而不是钩子私有key的杂物袋
// 3. 请求结束即丢弃，绝不跨请求存活
type Context struct {
	ctx   context.Context
	sess  Session
	Actor *auth.Actor // 已解析的操作者，匿名时为nil

	// URIParams 路径参数（嵌套资源时首个为父账户ID）
	URIParams []string

	// ===== stage 3入口填充的跨阶段快照（更新管道）=====

	// OriginalStatus 修改前的订单状态
	OriginalStatus string
	// OriginalEmail 修改前的账户邮箱
	OriginalEmail string
	// OriginalProductIDs 修改前订单行项目引用的商品ID集合
	OriginalProductIDs map[uint]bool
}

// NewContext 创建变更上下文（由引擎调用；测试中也可直接构造）
func NewContext(ctx context.Context, sess Session, actor *auth.Actor, uriParams []string) *Context {
	return &Context{ctx: ctx, sess: sess, Actor: actor, URIParams: uriParams}
}

// Context 返回底层context.Context（超时、追踪信息随它传播）
func (mc *Context) Context() context.Context {
	return mc.ctx
}

// Session 返回本次变更占用的会话
func (mc *Context) Session() Session {
	return mc.sess
}

// Reject 构造业务拒绝（便捷方法）
func (mc *Context) Reject(statusCode int, message string) *Rejection {
	return NewRejection(statusCode, message)
}

// =========================================
// 约束检查原语（全部在当前连接上执行）
// =========================================

// RejectIfExists 存在即拒绝：匹配数≥1时返回Rejection，否则通过
// 典型用法：邮箱唯一性检查、删除前的依赖检查
func (mc *Context) RejectIfExists(entity string, filter Filter, statusCode int, message string) error {
	n, err := mc.sess.Count(mc.ctx, entity, filter)
	if err != nil {
		return apperrors.Wrap(err, "约束查询失败")
	}
	if n >= 1 {
		return NewRejection(statusCode, message)
	}
	return nil
}

// RejectIfNotExists 不存在即拒绝：匹配数为0时返回Rejection
// 典型用法：下单前检查账户是否存在
func (mc *Context) RejectIfNotExists(entity string, filter Filter, statusCode int, message string) error {
	n, err := mc.sess.Count(mc.ctx, entity, filter)
	if err != nil {
		return apperrors.Wrap(err, "约束查询失败")
	}
	if n == 0 {
		return NewRejection(statusCode, message)
	}
	return nil
}

// RejectIfNotExactNum 匹配数不等于期望值即拒绝
// 典型用法：一次往返断言"每个被引用的商品都存在且可售"——
// 用匹配ID数与请求的去重ID数比较
func (mc *Context) RejectIfNotExactNum(entity string, filter Filter, expected int64, statusCode int, message string) error {
	n, err := mc.sess.Count(mc.ctx, entity, filter)
	if err != nil {
		return apperrors.Wrap(err, "约束查询失败")
	}
	if n != expected {
		return NewRejection(statusCode, message)
	}
	return nil
}

// Fetch 通用读：钩子需要字段值（而非是否/计数）时使用
func (mc *Context) Fetch(entity string, q Query) ([]Record, error) {
	recs, err := mc.sess.Fetch(mc.ctx, entity, q)
	if err != nil {
		return nil, apperrors.Wrap(err, "读取记录失败")
	}
	return recs, nil
}

// =========================================
// 引用与ID的互转（纯函数，无I/O）
// =========================================

// RefToID 把不透明的外部实体引用（"Product#12"）解析为主键
// 引用格式应已由Validate保证，畸形引用返回0
func (mc *Context) RefToID(entity, ref string) uint {
	id, _ := ParseRef(entity, ref)
	return id
}

// ParseRef 解析"Entity#id"形式的引用
func ParseRef(entity, ref string) (uint, bool) {
	prefix := entity + "#"
	if !strings.HasPrefix(ref, prefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(ref[len(prefix):], 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// RefOf 由实体类型与主键构造引用
func RefOf(entity string, id uint) string {
	return fmt.Sprintf("%s#%d", entity, id)
}
