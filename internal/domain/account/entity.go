package account

import (
	"regexp"
	"strings"
	"time"

	"github.com/xiebiao/webshop/internal/pipeline"
)

// EntityType 账户实体类型名（写管道注册与约束查询用）
const EntityType = "Account"

// Account 账户实体
// 设计说明：
// 1. PasswordDigest是bcrypt摘要，永远不对外序列化
// 2. Password是创建/改密时的明文输入字段，prepare阶段换算成摘要后立即清空，
//    不落库、不序列化
type Account struct {
	ID             uint      `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	PasswordDigest string    `json:"-"`
	Password       string    `json:"password,omitempty"` // 仅入参，prepare后清空
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EntityType 实现pipeline.Record
func (a *Account) EntityType() string { return EntityType }

// RecordID 实现pipeline.Record
func (a *Account) RecordID() uint { return a.ID }

// SetRecordID 实现pipeline.Record
func (a *Account) SetRecordID(id uint) { a.ID = id }

// Validate 模式校验（prepare阶段之后执行）
// 约束来自声明式模式：email必填≤60且小写、姓名必填≤30
// （口令摘要的有无由prepare阶段保证：创建必须携带明文口令，
// 更新不带口令时保留原摘要）
func (a *Account) Validate() error {
	ve := pipeline.NewValidationError("账户数据无效")

	switch {
	case a.Email == "":
		ve.Add("email", "邮箱不能为空")
	case len(a.Email) > 60:
		ve.Add("email", "邮箱长度不能超过60")
	case !emailRegex.MatchString(a.Email):
		ve.Add("email", "邮箱格式不正确")
	case a.Email != strings.ToLower(a.Email):
		ve.Add("email", "邮箱必须为小写")
	}

	if a.FirstName == "" || len(a.FirstName) > 30 {
		ve.Add("firstName", "名字必填且长度不能超过30")
	}
	if a.LastName == "" || len(a.LastName) > 30 {
		ve.Add("lastName", "姓氏必填且长度不能超过30")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// MergeFrom 实现pipeline.Merger：把传入记录的可修改字段合并到本记录
// 可修改：邮箱、姓名；口令摘要只在传入方携带新摘要（改密）时覆盖
func (a *Account) MergeFrom(incoming pipeline.Record) {
	in, ok := incoming.(*Account)
	if !ok {
		return
	}
	a.Email = in.Email
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	if in.PasswordDigest != "" {
		a.PasswordDigest = in.PasswordDigest
	}
}

// Snapshot 实现pipeline.Snapshotter：stage 3入口留存原邮箱
// （BeforeUpdateSave据此判断邮箱是否变化、是否需要查重）
func (a *Account) Snapshot(mc *pipeline.Context) {
	mc.OriginalEmail = a.Email
}
