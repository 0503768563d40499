package auth

import "context"

// 角色常量
// 设计说明：角色是能力判断的最小单位，目前只有admin一种提升角色
// （发货、商品管理等敏感操作需要admin）
const RoleAdmin = "admin"

// AdminHandle 管理员的认证句柄（配置级账号，不落库）
const AdminHandle = "admin"

// Actor 认证主体（已解析的操作者）
// 设计说明：
// 1. 写管道不做任何凭证校验，只接收已解析好的Actor（或nil表示匿名）
// 2. Stamp是操作者的稳定标识（邮箱），用于审计字段
// 3. 角色能力通过HasRole谓词暴露，不暴露内部结构
type Actor struct {
	ID    uint   // 账户ID（admin为0）
	Stamp string // 操作者标识（邮箱或"admin"）
	roles map[string]bool
}

// NewActor 创建Actor
func NewActor(id uint, stamp string, roles ...string) *Actor {
	rs := make(map[string]bool, len(roles))
	for _, r := range roles {
		rs[r] = true
	}
	return &Actor{ID: id, Stamp: stamp, roles: rs}
}

// HasRole 判断是否持有指定角色（nil Actor安全）
func (a *Actor) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return a.roles[role]
}

// IsAdmin 是否为管理员
func (a *Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// Owns 是否为指定账户本人（admin不在此判断范围内）
func (a *Actor) Owns(accountID uint) bool {
	return a != nil && a.ID != 0 && a.ID == accountID
}

// Registry 认证主体注册表
// 设计说明：
// 1. 外部协作者：把认证句柄（JWT的sub）映射为Actor记录
// 2. admin是特殊句柄，不查库；普通句柄按账户邮箱查库
// 3. 查无此人返回(nil, nil)，由调用方决定如何处理
type Registry interface {
	LookupActor(ctx context.Context, handle string) (*Actor, error)
}
