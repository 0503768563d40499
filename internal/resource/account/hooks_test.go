package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/xiebiao/webshop/internal/auth"
	domain "github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/pipeline"
)

// fakeSession 只实现约束查询的会话桩
type fakeSession struct {
	countFn func(entity string, f pipeline.Filter) (int64, error)
	counts  int
}

func (s *fakeSession) Count(_ context.Context, entity string, f pipeline.Filter) (int64, error) {
	s.counts++
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(entity, f)
}

func (s *fakeSession) Fetch(context.Context, string, pipeline.Query) ([]pipeline.Record, error) {
	return nil, nil
}
func (s *fakeSession) Get(context.Context, string, uint) (pipeline.Record, error) {
	return nil, pipeline.ErrNotFound
}
func (s *fakeSession) Insert(context.Context, pipeline.Record) error { return nil }
func (s *fakeSession) Update(context.Context, pipeline.Record) error { return nil }
func (s *fakeSession) Delete(context.Context, string, uint) error    { return nil }
func (s *fakeSession) Commit() error                                 { return nil }

func newTestContext(sess pipeline.Session, actor *auth.Actor) *pipeline.Context {
	return pipeline.NewContext(context.Background(), sess, actor, nil)
}

func TestPrepareCreate(t *testing.T) {
	h := NewHooks()

	t.Run("明文口令换算成bcrypt摘要并清空", func(t *testing.T) {
		a := &domain.Account{Email: "Jane.Doe@Example.COM", Password: "secret123"}
		err := h.PrepareCreate(newTestContext(&fakeSession{}, nil), a)
		assert.NoError(t, err)
		assert.Equal(t, "jane.doe@example.com", a.Email, "邮箱应统一为小写")
		assert.Empty(t, a.Password, "明文口令不应出prepare阶段")
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordDigest), []byte("secret123")))
	})

	t.Run("缺少口令返回校验错误", func(t *testing.T) {
		a := &domain.Account{Email: "jane@example.com"}
		err := h.PrepareCreate(newTestContext(&fakeSession{}, nil), a)
		var ve *pipeline.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestBeforeCreate(t *testing.T) {
	h := NewHooks()

	t.Run("邮箱已被注册时拒绝400", func(t *testing.T) {
		sess := &fakeSession{countFn: func(entity string, f pipeline.Filter) (int64, error) {
			assert.Equal(t, domain.EntityType, entity)
			return 1, nil
		}}
		err := h.BeforeCreate(newTestContext(sess, nil), &domain.Account{Email: "jane@example.com"})
		var rej *pipeline.Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 400, rej.StatusCode)
	})

	t.Run("邮箱未被占用时放行", func(t *testing.T) {
		err := h.BeforeCreate(newTestContext(&fakeSession{}, nil), &domain.Account{Email: "jane@example.com"})
		assert.NoError(t, err)
	})
}

func TestBeforeUpdateAuthorization(t *testing.T) {
	h := NewHooks()
	existing := &domain.Account{ID: 5, Email: "jane@example.com"}

	t.Run("本人可以修改", func(t *testing.T) {
		actor := auth.NewActor(5, "jane@example.com")
		assert.NoError(t, h.BeforeUpdate(newTestContext(&fakeSession{}, actor), existing))
	})

	t.Run("admin可以修改", func(t *testing.T) {
		actor := auth.NewActor(0, auth.AdminHandle, auth.RoleAdmin)
		assert.NoError(t, h.BeforeUpdate(newTestContext(&fakeSession{}, actor), existing))
	})

	t.Run("他人修改被拒403", func(t *testing.T) {
		actor := auth.NewActor(9, "bob@example.com")
		err := h.BeforeUpdate(newTestContext(&fakeSession{}, actor), existing)
		var rej *pipeline.Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 403, rej.StatusCode)
	})

	t.Run("匿名修改被拒403", func(t *testing.T) {
		err := h.BeforeUpdate(newTestContext(&fakeSession{}, nil), existing)
		assert.Error(t, err)
	})
}

func TestBeforeUpdateSave(t *testing.T) {
	h := NewHooks()

	t.Run("邮箱未变化时不查重", func(t *testing.T) {
		sess := &fakeSession{}
		mc := newTestContext(sess, nil)
		mc.OriginalEmail = "jane@example.com"
		err := h.BeforeUpdateSave(mc, &domain.Account{ID: 5, Email: "jane@example.com"})
		assert.NoError(t, err)
		assert.Zero(t, sess.counts, "邮箱没变不应发起约束查询")
	})

	t.Run("新邮箱被他人占用时拒绝422", func(t *testing.T) {
		sess := &fakeSession{countFn: func(entity string, f pipeline.Filter) (int64, error) {
			return 1, nil
		}}
		mc := newTestContext(sess, nil)
		mc.OriginalEmail = "jane@example.com"
		err := h.BeforeUpdateSave(mc, &domain.Account{ID: 5, Email: "new@example.com"})
		var rej *pipeline.Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 422, rej.StatusCode)
	})
}

func TestBeforeDelete(t *testing.T) {
	h := NewHooks()
	existing := &domain.Account{ID: 5, Email: "jane@example.com"}
	owner := auth.NewActor(5, "jane@example.com")

	t.Run("名下存在订单时拒绝400", func(t *testing.T) {
		sess := &fakeSession{countFn: func(entity string, f pipeline.Filter) (int64, error) {
			assert.Equal(t, "Order", entity)
			return 2, nil
		}}
		err := h.BeforeDelete(newTestContext(sess, owner), existing)
		var rej *pipeline.Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 400, rej.StatusCode)
	})

	t.Run("没有订单时放行", func(t *testing.T) {
		assert.NoError(t, h.BeforeDelete(newTestContext(&fakeSession{}, owner), existing))
	})

	t.Run("他人删除被拒403", func(t *testing.T) {
		actor := auth.NewActor(9, "bob@example.com")
		err := h.BeforeDelete(newTestContext(&fakeSession{}, actor), existing)
		var rej *pipeline.Rejection
		assert.ErrorAs(t, err, &rej)
		assert.Equal(t, 403, rej.StatusCode)
	})
}
