package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// 测试桩
// =============================================================================

// countingPool 记录取还次数的池桩
type countingPool struct {
	acquires   int
	releases   int
	acquireErr error
}

func (p *countingPool) Acquire(ctx context.Context) (Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquires++
	return struct{}{}, nil
}

func (p *countingPool) Release(conn Conn) {
	p.releases++
}

// stubSession 可编程的会话桩
type stubSession struct {
	getRec     Record
	getErr     error
	insertErr  error
	updateErr  error
	count      int64
	countCalls int
	commits    int
	inserted   []Record
	updated    []Record
	deleted    []uint
}

func (s *stubSession) Count(context.Context, string, Filter) (int64, error) {
	s.countCalls++
	return s.count, nil
}
func (s *stubSession) Fetch(context.Context, string, Query) ([]Record, error) {
	return nil, nil
}
func (s *stubSession) Get(context.Context, string, uint) (Record, error) {
	return s.getRec, s.getErr
}
func (s *stubSession) Insert(_ context.Context, rec Record) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	rec.SetRecordID(42)
	s.inserted = append(s.inserted, rec)
	return nil
}
func (s *stubSession) Update(_ context.Context, rec Record) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, rec)
	return nil
}
func (s *stubSession) Delete(_ context.Context, _ string, id uint) error {
	s.deleted = append(s.deleted, id)
	return nil
}
func (s *stubSession) Commit() error {
	s.commits++
	return nil
}

type stubFactory struct {
	sess *stubSession
}

func (f *stubFactory) Session(conn Conn) Session { return f.sess }

// widget 最小可用的测试实体
type widget struct {
	ID   uint
	Name string
}

func (w *widget) EntityType() string  { return "Widget" }
func (w *widget) RecordID() uint      { return w.ID }
func (w *widget) SetRecordID(id uint) { w.ID = id }
func (w *widget) Validate() error {
	if w.Name == "" {
		return NewValidationError("无效", FieldError{Field: "name", Message: "必填"})
	}
	return nil
}
func (w *widget) MergeFrom(incoming Record) {
	w.Name = incoming.(*widget).Name
}
func (w *widget) Snapshot(mc *Context) {
	mc.OriginalEmail = w.Name // 复用具名快照字段做断言
}

// traceHooks 记录阶段调用顺序的处理器
type traceHooks struct {
	BaseHooks
	calls []string
	fail  map[string]error
	opts  ResourceOptions
}

func (h *traceHooks) stage(name string) error {
	h.calls = append(h.calls, name)
	return h.fail[name]
}

func (h *traceHooks) Configure(opts *ResourceOptions)      { *opts = h.opts }
func (h *traceHooks) PrepareCreate(*Context, Record) error { return h.stage("prepare-create") }
func (h *traceHooks) PrepareUpdate(*Context, Record) error { return h.stage("prepare-update") }
func (h *traceHooks) PrepareUpdateSpec(*Context, Record, Record) error {
	return h.stage("prepare-update-spec")
}
func (h *traceHooks) BeforeCreate(*Context, Record) error     { return h.stage("before-create") }
func (h *traceHooks) BeforeUpdate(*Context, Record) error     { return h.stage("before-update") }
func (h *traceHooks) BeforeDelete(*Context, Record) error     { return h.stage("before-delete") }
func (h *traceHooks) BeforeCreateSave(*Context, Record) error { return h.stage("before-create-save") }
func (h *traceHooks) BeforeUpdateSave(*Context, Record) error { return h.stage("before-update-save") }

func newEngine(hooks Hooks) (*Engine, *countingPool, *stubSession) {
	pool := &countingPool{}
	sess := &stubSession{}
	e := New(pool, &stubFactory{sess: sess})
	e.Register("Widget", hooks)
	return e, pool, sess
}

// =============================================================================
// 连接守恒：所有退出路径取还次数相等
// =============================================================================

func TestConnAcquireReleaseBalance(t *testing.T) {
	t.Run("成功路径取还各一次", func(t *testing.T) {
		e, pool, _ := newEngine(&traceHooks{})
		_, err := e.Create(context.Background(), "Widget", &widget{Name: "w"}, nil)
		assert.NoError(t, err)
		assert.Equal(t, 1, pool.acquires)
		assert.Equal(t, 1, pool.releases)
	})

	t.Run("业务拒绝路径照常释放", func(t *testing.T) {
		h := &traceHooks{fail: map[string]error{"before-create": NewRejection(400, "拒绝")}}
		e, pool, _ := newEngine(h)
		_, err := e.Create(context.Background(), "Widget", &widget{Name: "w"}, nil)
		assert.True(t, IsRejection(err))
		assert.Equal(t, 1, pool.acquires)
		assert.Equal(t, 1, pool.releases)
	})

	t.Run("基础设施错误路径照常释放", func(t *testing.T) {
		e, pool, sess := newEngine(&traceHooks{})
		sess.insertErr = errors.New("db down")
		_, err := e.Create(context.Background(), "Widget", &widget{Name: "w"}, nil)
		assert.Error(t, err)
		assert.Equal(t, 1, pool.acquires)
		assert.Equal(t, 1, pool.releases)
	})

	t.Run("取连接失败不产生释放", func(t *testing.T) {
		pool := &countingPool{acquireErr: errors.New("pool exhausted")}
		e := New(pool, &stubFactory{sess: &stubSession{}})
		e.Register("Widget", &traceHooks{})
		_, err := e.Create(context.Background(), "Widget", &widget{Name: "w"}, nil)
		assert.Error(t, err)
		assert.Zero(t, pool.releases)
	})

	t.Run("多次变更后总取还平衡", func(t *testing.T) {
		h := &traceHooks{fail: map[string]error{"before-update": NewRejection(403, "无权")}}
		e, pool, sess := newEngine(h)
		sess.getRec = &widget{ID: 1, Name: "old"}

		_, _ = e.Create(context.Background(), "Widget", &widget{Name: "a"}, nil)
		_, _ = e.Update(context.Background(), "Widget", 1, &widget{Name: "b"}, nil)
		_ = e.Delete(context.Background(), "Widget", 1, nil)

		assert.Equal(t, pool.acquires, pool.releases, "任意结果组合下取还必须守恒")
	})
}

// =============================================================================
// 阶段顺序与短路
// =============================================================================

func TestCreateStageOrder(t *testing.T) {
	t.Run("创建阶段按固定顺序执行", func(t *testing.T) {
		h := &traceHooks{}
		e, _, sess := newEngine(h)
		rec, err := e.Create(context.Background(), "Widget", &widget{Name: "w"}, nil)
		assert.NoError(t, err)
		assert.Equal(t, []string{"prepare-create", "before-create", "before-create-save"}, h.calls)
		assert.Equal(t, 1, sess.commits)
		assert.Equal(t, uint(42), rec.RecordID(), "插入后回填主键")
	})

	t.Run("校验失败短路后续阶段", func(t *testing.T) {
		h := &traceHooks{}
		e, _, sess := newEngine(h)
		_, err := e.Create(context.Background(), "Widget", &widget{}, nil)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"prepare-create"}, h.calls, "校验在prepare之后、before之前")
		assert.Empty(t, sess.inserted)
		assert.Zero(t, sess.commits)
	})

	t.Run("before阶段失败不执行写", func(t *testing.T) {
		h := &traceHooks{fail: map[string]error{"before-create": NewRejection(400, "占用")}}
		e, _, sess := newEngine(h)
		_, _ = e.Create(context.Background(), "Widget", &widget{Name: "w"}, nil)
		assert.Empty(t, sess.inserted, "拒绝之后不允许任何写")
		assert.Zero(t, sess.commits)
	})
}

func TestUpdateStageOrder(t *testing.T) {
	t.Run("更新阶段按固定顺序执行", func(t *testing.T) {
		h := &traceHooks{}
		e, _, sess := newEngine(h)
		sess.getRec = &widget{ID: 1, Name: "old"}

		rec, err := e.Update(context.Background(), "Widget", 1, &widget{Name: "new"}, nil)
		assert.NoError(t, err)
		assert.Equal(t, []string{
			"prepare-update", "prepare-update-spec", "before-update", "before-update-save",
		}, h.calls)
		assert.Equal(t, "new", rec.(*widget).Name, "合并后返回最终形态")
		assert.Equal(t, 1, sess.commits)
	})

	t.Run("快照在before阶段之前填充", func(t *testing.T) {
		e, _, sess := newEngine(&traceHooks{})
		sess.getRec = &widget{ID: 1, Name: "old"}

		var snapshotAtBefore string
		h := &snapshotProbe{probe: func(mc *Context) { snapshotAtBefore = mc.OriginalEmail }}
		e.Register("Widget", h)

		_, err := e.Update(context.Background(), "Widget", 1, &widget{Name: "new"}, nil)
		assert.NoError(t, err)
		assert.Equal(t, "old", snapshotAtBefore, "before钩子应能看到修改前的原值")
	})

	t.Run("记录不存在返回404拒绝", func(t *testing.T) {
		e, _, sess := newEngine(&traceHooks{})
		sess.getErr = ErrNotFound
		_, err := e.Update(context.Background(), "Widget", 99, &widget{Name: "x"}, nil)
		var rej *Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 404, rej.StatusCode)
	})
}

// snapshotProbe 在BeforeUpdate里探测快照字段
type snapshotProbe struct {
	BaseHooks
	probe func(mc *Context)
}

func (h *snapshotProbe) BeforeUpdate(mc *Context, existing Record) error {
	h.probe(mc)
	return nil
}

func TestDelete(t *testing.T) {
	t.Run("删除先过before-delete再写", func(t *testing.T) {
		h := &traceHooks{}
		e, _, sess := newEngine(h)
		sess.getRec = &widget{ID: 1, Name: "w"}
		assert.NoError(t, e.Delete(context.Background(), "Widget", 1, nil))
		assert.Equal(t, []string{"before-delete"}, h.calls)
		assert.Equal(t, []uint{1}, sess.deleted)
	})

	t.Run("before-delete拒绝时不删除", func(t *testing.T) {
		h := &traceHooks{fail: map[string]error{"before-delete": NewRejection(400, "有依赖")}}
		e, _, sess := newEngine(h)
		sess.getRec = &widget{ID: 1, Name: "w"}
		assert.Error(t, e.Delete(context.Background(), "Widget", 1, nil))
		assert.Empty(t, sess.deleted)
	})
}

// =============================================================================
// 资源级开关
// =============================================================================

func TestResourceOptions(t *testing.T) {
	t.Run("禁用的操作直接405且不取连接", func(t *testing.T) {
		h := &traceHooks{opts: ResourceOptions{DisableDelete: true}}
		e, pool, _ := newEngine(h)
		err := e.Delete(context.Background(), "Widget", 1, nil)
		var rej *Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 405, rej.StatusCode)
		assert.Zero(t, pool.acquires, "被禁用的操作不应占用连接")
	})

	t.Run("未注册的实体报错", func(t *testing.T) {
		e, _, _ := newEngine(&traceHooks{})
		_, err := e.Create(context.Background(), "Gadget", &widget{Name: "w"}, nil)
		assert.Error(t, err)
	})
}

// =============================================================================
// 事件发布
// =============================================================================

type recordingPublisher struct {
	events []string
	err    error
}

func (p *recordingPublisher) PublishEntityEvent(_ context.Context, entity, action string, id uint) error {
	p.events = append(p.events, entity+"."+action)
	return p.err
}

func TestEventPublish(t *testing.T) {
	t.Run("提交成功后发布实体事件", func(t *testing.T) {
		pub := &recordingPublisher{}
		pool := &countingPool{}
		sess := &stubSession{getRec: &widget{ID: 1, Name: "old"}}
		e := New(pool, &stubFactory{sess: sess}, WithEventPublisher(pub))
		e.Register("Widget", &traceHooks{})

		_, _ = e.Create(context.Background(), "Widget", &widget{Name: "a"}, nil)
		_, _ = e.Update(context.Background(), "Widget", 1, &widget{Name: "b"}, nil)

		assert.Equal(t, []string{"Widget.created", "Widget.updated"}, pub.events)
	})

	t.Run("管道失败时不发布事件", func(t *testing.T) {
		pub := &recordingPublisher{}
		pool := &countingPool{}
		sess := &stubSession{insertErr: errors.New("db down")}
		e := New(pool, &stubFactory{sess: sess}, WithEventPublisher(pub))
		e.Register("Widget", &traceHooks{})

		_, err := e.Create(context.Background(), "Widget", &widget{Name: "a"}, nil)
		assert.Error(t, err)
		assert.Empty(t, pub.events)
	})

	t.Run("发布失败不影响变更结果", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		pool := &countingPool{}
		e := New(pool, &stubFactory{sess: &stubSession{}}, WithEventPublisher(pub))
		e.Register("Widget", &traceHooks{})

		rec, err := e.Create(context.Background(), "Widget", &widget{Name: "a"}, nil)
		assert.NoError(t, err, "事件是尽力而为的通知，不是事务的一部分")
		assert.NotNil(t, rec)
	})
}

// =============================================================================
// 约束检查原语
// =============================================================================

func TestRejectIfNotExactNum(t *testing.T) {
	filter := Filter{{Path: "id", Op: OpIn, Value: []uint{1, 2}}}

	t.Run("匹配数一致时重复检查结论不变", func(t *testing.T) {
		sess := &stubSession{count: 2}
		mc := NewContext(context.Background(), sess, nil, nil)

		// 数据未变化时，相同参数的两次检查必须给出相同结论
		assert.NoError(t, mc.RejectIfNotExactNum("Product", filter, 2, 422, "部分商品不存在"))
		assert.NoError(t, mc.RejectIfNotExactNum("Product", filter, 2, 422, "部分商品不存在"))
		assert.Equal(t, 2, sess.countCalls, "每次检查都应真正执行计数查询")
	})

	t.Run("匹配数不一致时重复检查同样拒绝", func(t *testing.T) {
		sess := &stubSession{count: 1}
		mc := NewContext(context.Background(), sess, nil, nil)

		for i := 0; i < 2; i++ {
			err := mc.RejectIfNotExactNum("Product", filter, 2, 422, "部分商品不存在")
			var rej *Rejection
			assert.ErrorAs(t, err, &rej)
			assert.Equal(t, 422, rej.StatusCode)
			assert.Equal(t, "部分商品不存在", rej.Message)
		}
		assert.Empty(t, sess.inserted, "检查是只读的，不应产生任何写入")
		assert.Empty(t, sess.updated)
	})
}
