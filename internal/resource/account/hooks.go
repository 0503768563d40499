package account

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/domain/order"
	"github.com/xiebiao/webshop/internal/pipeline"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
)

// bcryptCost 口令摘要强度
// 学习要点：cost每+1计算量翻倍，12在安全性与登录延迟之间取平衡
const bcryptCost = 12

// Hooks 账户资源的生命周期处理器
// 业务规则：
// 1. 创建开放（自助注册），邮箱全库唯一
// 2. 修改/删除只允许本人或admin
// 3. 名下存在订单的账户不允许删除
type Hooks struct {
	pipeline.BaseHooks
}

// NewHooks 创建账户处理器
func NewHooks() *Hooks {
	return &Hooks{}
}

// PrepareCreate 重塑新建模板：邮箱统一小写，明文口令换算成bcrypt摘要
func (h *Hooks) PrepareCreate(mc *pipeline.Context, rec pipeline.Record) error {
	a := rec.(*domain.Account)
	a.Email = strings.ToLower(a.Email)

	if a.Password == "" {
		return pipeline.NewValidationError("账户数据无效",
			pipeline.FieldError{Field: "password", Message: "口令不能为空"})
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcryptCost)
	if err != nil {
		return apperrors.Wrap(err, "生成口令摘要失败")
	}
	a.PasswordDigest = string(digest)
	a.Password = "" // 明文口令不出prepare阶段

	return nil
}

// PrepareUpdate 重塑更新载荷：携带新口令时换算摘要，否则摘要留空
// （合并阶段会保留原摘要）
func (h *Hooks) PrepareUpdate(mc *pipeline.Context, rec pipeline.Record) error {
	a := rec.(*domain.Account)
	a.Email = strings.ToLower(a.Email)

	if a.Password != "" {
		digest, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcryptCost)
		if err != nil {
			return apperrors.Wrap(err, "生成口令摘要失败")
		}
		a.PasswordDigest = string(digest)
		a.Password = ""
	}

	return nil
}

// BeforeCreate 创建闸门：邮箱唯一性
func (h *Hooks) BeforeCreate(mc *pipeline.Context, rec pipeline.Record) error {
	a := rec.(*domain.Account)
	return mc.RejectIfExists(domain.EntityType, pipeline.Filter{
		{Path: "email", Op: pipeline.OpIs, Value: a.Email},
	}, 400, "该邮箱已被注册")
}

// BeforeUpdate 更新闸门：只允许本人或admin
func (h *Hooks) BeforeUpdate(mc *pipeline.Context, existing pipeline.Record) error {
	a := existing.(*domain.Account)
	if !mc.Actor.Owns(a.ID) && !mc.Actor.IsAdmin() {
		return mc.Reject(403, "无权修改他人账户")
	}
	return nil
}

// BeforeUpdateSave 最终形态检查：邮箱变化时重新查重（排除自身）
func (h *Hooks) BeforeUpdateSave(mc *pipeline.Context, merged pipeline.Record) error {
	a := merged.(*domain.Account)
	if a.Email == mc.OriginalEmail {
		return nil
	}
	return mc.RejectIfExists(domain.EntityType, pipeline.Filter{
		{Path: "email", Op: pipeline.OpIs, Value: a.Email},
		{Path: "id", Op: pipeline.OpNot, Value: a.ID},
	}, 422, "该邮箱已被其他账户使用")
}

// BeforeDelete 删除闸门：本人或admin，且名下不能有订单
func (h *Hooks) BeforeDelete(mc *pipeline.Context, existing pipeline.Record) error {
	a := existing.(*domain.Account)
	if !mc.Actor.Owns(a.ID) && !mc.Actor.IsAdmin() {
		return mc.Reject(403, "无权删除他人账户")
	}
	return mc.RejectIfExists(order.EntityType, pipeline.Filter{
		{Path: "accountRef", Op: pipeline.OpIs, Value: a.ID},
	}, 400, "账户名下存在订单，不能删除")
}
