package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiebiao/webshop/internal/auth"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
	"github.com/xiebiao/webshop/pkg/metrics"
	"github.com/xiebiao/webshop/pkg/tracing"
)

// EventPublisher 实体事件发布者（可选协作者）
// 成功提交后引擎发布实体事件（创建/更新/删除），供下游异步消费
// 发布失败不影响已提交的变更，只记录指标
type EventPublisher interface {
	PublishEntityEvent(ctx context.Context, entity, action string, id uint) error
}

// resource 已注册的资源：钩子 + 注册时求值的资源级开关
type resource struct {
	hooks Hooks
	opts  ResourceOptions
}

// Engine 写管道引擎
// 设计说明：
// 1. 每次变更：取连接 → prepare → 校验 → before → before-save → 写 → 提交，
//    任一阶段失败即短路，之后的阶段与持久化不再执行
// 2. 连接释放收敛在唯一一处defer：成功、业务拒绝、基础设施错误，
//    所有退出路径都恰好释放一次
// 3. 阶段间严格串行：stage N对Context的写入在stage N+1开始前完全可见
type Engine struct {
	pool      Pool
	sessions  SessionFactory
	events    EventPublisher // 可为nil
	resources map[string]*resource
}

// Option 引擎可选配置
type Option func(*Engine)

// WithEventPublisher 挂接实体事件发布者
func WithEventPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// New 创建写管道引擎
func New(pool Pool, sessions SessionFactory, opts ...Option) *Engine {
	e := &Engine{
		pool:      pool,
		sessions:  sessions,
		resources: make(map[string]*resource),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register 注册资源处理器
// Configure阶段在这里执行且只执行一次（非按请求）
func (e *Engine) Register(entity string, h Hooks) {
	res := &resource{hooks: h}
	h.Configure(&res.opts)
	e.resources[entity] = res
}

func (e *Engine) resource(entity string) (*resource, error) {
	res, ok := e.resources[entity]
	if !ok {
		return nil, apperrors.Wrapf(nil, "未注册的实体类型: %s", entity)
	}
	return res, nil
}

// =========================================
// 创建管道
// =========================================

// Create 执行创建变更
// 阶段：PrepareCreate → Validate → BeforeCreate → BeforeCreateSave → Insert → Commit
func (e *Engine) Create(ctx context.Context, entity string, rec Record, actor *auth.Actor, uriParams ...string) (Record, error) {
	res, err := e.resource(entity)
	if err != nil {
		return nil, err
	}
	if res.opts.DisableCreate {
		return nil, NewRejection(405, "该资源不允许创建")
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.create."+entity)
	defer span.End()

	err = e.withConn(ctx, func(mc *Context) error {
		// 1. prepare阶段：纯数据重塑（在模式校验之前）
		if err := res.hooks.PrepareCreate(mc, rec); err != nil {
			return err
		}

		// 2. 模式校验
		if err := rec.Validate(); err != nil {
			return err
		}

		// 3. before阶段：业务规则闸门（唯一性、引用、授权、支付授权）
		if err := res.hooks.BeforeCreate(mc, rec); err != nil {
			return err
		}

		// 4. before-save阶段：对最终形态的检查
		if err := res.hooks.BeforeCreateSave(mc, rec); err != nil {
			return err
		}

		// 5. 持久化+提交（所有检查通过之后才允许第一条写语句）
		if err := mc.sess.Insert(mc.ctx, rec); err != nil {
			return apperrors.Wrap(err, "插入记录失败")
		}
		if err := mc.sess.Commit(); err != nil {
			return apperrors.Wrap(err, "提交事务失败")
		}
		return nil
	}, actor, uriParams)

	metrics.ObserveMutation(entity, "create", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	e.publish(ctx, entity, "created", rec.RecordID())
	return rec, nil
}

// =========================================
// 更新管道
// =========================================

// Update 执行更新变更
// 阶段：PrepareUpdate → Validate → 取原记录+快照 → PrepareUpdateSpec
// → BeforeUpdate → 合并 → Validate → BeforeUpdateSave → Update → Commit
func (e *Engine) Update(ctx context.Context, entity string, id uint, incoming Record, actor *auth.Actor, uriParams ...string) (Record, error) {
	res, err := e.resource(entity)
	if err != nil {
		return nil, err
	}
	if res.opts.DisableUpdate {
		return nil, NewRejection(405, "该资源不允许更新")
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.update."+entity)
	defer span.End()

	var merged Record
	err = e.withConn(ctx, func(mc *Context) error {
		// 1. prepare阶段：重塑传入载荷
		if err := res.hooks.PrepareUpdate(mc, incoming); err != nil {
			return err
		}

		// 2. 模式校验（传入形态）
		if err := incoming.Validate(); err != nil {
			return err
		}

		// 3. 持久层身份解析：取修改前的原记录
		existing, err := mc.sess.Get(mc.ctx, entity, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return NewRejection(404, fmt.Sprintf("%s不存在", entity))
			}
			return apperrors.Wrap(err, "读取原记录失败")
		}

		// 4. stage 3入口：驱动器填充跨阶段快照（原状态、原邮箱、原商品集合）
		if s, ok := existing.(Snapshotter); ok {
			s.Snapshot(mc)
		}

		// 5. 调整更新内容（恢复不可修改字段等）
		if err := res.hooks.PrepareUpdateSpec(mc, existing, incoming); err != nil {
			return err
		}

		// 6. before阶段：收到的是修改前的原记录
		if err := res.hooks.BeforeUpdate(mc, existing); err != nil {
			return err
		}

		// 7. 合并：只覆盖可修改字段
		m, ok := existing.(Merger)
		if !ok {
			return apperrors.Wrapf(nil, "实体%s不支持更新合并", entity)
		}
		m.MergeFrom(incoming)
		merged = existing

		// 8. 合并后的最终形态再次校验
		if err := merged.Validate(); err != nil {
			return err
		}

		// 9. before-save阶段：最终形态检查+状态机副作用
		// 网关调用在这里发生——调用成功才允许写行（见State Transition Guard）
		if err := res.hooks.BeforeUpdateSave(mc, merged); err != nil {
			return err
		}

		// 10. 持久化+提交
		if err := mc.sess.Update(mc.ctx, merged); err != nil {
			return apperrors.Wrap(err, "更新记录失败")
		}
		if err := mc.sess.Commit(); err != nil {
			return apperrors.Wrap(err, "提交事务失败")
		}
		return nil
	}, actor, uriParams)

	metrics.ObserveMutation(entity, "update", outcomeOf(err))
	if err != nil {
		return nil, err
	}
	e.publish(ctx, entity, "updated", merged.RecordID())
	return merged, nil
}

// =========================================
// 删除管道
// =========================================

// Delete 执行删除变更
// 阶段：取原记录 → BeforeDelete → Delete → Commit
func (e *Engine) Delete(ctx context.Context, entity string, id uint, actor *auth.Actor, uriParams ...string) error {
	res, err := e.resource(entity)
	if err != nil {
		return err
	}
	if res.opts.DisableDelete {
		return NewRejection(405, "该资源不允许删除")
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.delete."+entity)
	defer span.End()

	err = e.withConn(ctx, func(mc *Context) error {
		existing, err := mc.sess.Get(mc.ctx, entity, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return NewRejection(404, fmt.Sprintf("%s不存在", entity))
			}
			return apperrors.Wrap(err, "读取原记录失败")
		}

		if err := res.hooks.BeforeDelete(mc, existing); err != nil {
			return err
		}

		if err := mc.sess.Delete(mc.ctx, entity, id); err != nil {
			return apperrors.Wrap(err, "删除记录失败")
		}
		if err := mc.sess.Commit(); err != nil {
			return apperrors.Wrap(err, "提交事务失败")
		}
		return nil
	}, actor, uriParams)

	metrics.ObserveMutation(entity, "delete", outcomeOf(err))
	if err != nil {
		return err
	}
	e.publish(ctx, entity, "deleted", id)
	return nil
}

// =========================================
// 读路径（薄封装，供HTTP层取记录用）
// =========================================

// FetchOne 按主键读单条记录（占用并释放一个连接）
func (e *Engine) FetchOne(ctx context.Context, entity string, id uint) (Record, error) {
	var rec Record
	err := e.withConn(ctx, func(mc *Context) error {
		r, err := mc.sess.Get(mc.ctx, entity, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return NewRejection(404, fmt.Sprintf("%s不存在", entity))
			}
			return apperrors.Wrap(err, "读取记录失败")
		}
		rec = r
		return nil
	}, nil, nil)
	return rec, err
}

// FetchList 条件读多条记录（占用并释放一个连接）
func (e *Engine) FetchList(ctx context.Context, entity string, q Query) ([]Record, error) {
	var recs []Record
	err := e.withConn(ctx, func(mc *Context) error {
		rs, err := mc.sess.Fetch(mc.ctx, entity, q)
		if err != nil {
			return apperrors.Wrap(err, "读取记录失败")
		}
		recs = rs
		return nil
	}, nil, nil)
	return recs, err
}

// =========================================
// 作用域与收尾
// =========================================

// withConn 作用域化的连接占用：整条管道包在acquire/release之间
// 释放只在这里的defer发生一处，所有退出路径（正常返回、业务拒绝、
// 基础设施错误）都恰好释放一次
func (e *Engine) withConn(ctx context.Context, fn func(mc *Context) error, actor *auth.Actor, uriParams []string) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return apperrors.Wrap(err, "获取数据库连接失败")
	}
	metrics.PoolAcquired()
	defer func() {
		e.pool.Release(conn)
		metrics.PoolReleased()
	}()

	mc := NewContext(ctx, e.sessions.Session(conn), actor, uriParams)
	return fn(mc)
}

// publish 提交成功后发布实体事件（发布者未挂接时为no-op）
func (e *Engine) publish(ctx context.Context, entity, action string, id uint) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishEntityEvent(ctx, entity, action, id); err != nil {
		metrics.ObserveEventPublish(entity, "error")
		return
	}
	metrics.ObserveEventPublish(entity, "ok")
}

// outcomeOf 指标的结果标签：success / rejected / error
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsBusinessError(err):
		return "rejected"
	default:
		return "error"
	}
}
