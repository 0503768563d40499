package actors

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/webshop/internal/auth"
	"github.com/xiebiao/webshop/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
)

// Registry 基于MySQL的操作者注册表
// 设计说明：
// 1. Token只存认证句柄（邮箱或"admin"），每个请求进入时
//    按句柄重新解析Actor——账户被删后旧Token立即失去主体
// 2. "admin"是配置级账号，不落库，直接换算成admin角色的Actor
// 3. 注册表查询不占用写管道的连接（独立短查询）
type Registry struct {
	db *gorm.DB
}

// NewRegistry 创建操作者注册表
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// LookupActor 实现auth.Registry：按认证句柄解析操作者
// 句柄不存在时返回(nil, nil)，由调用方决定按未认证处理
func (r *Registry) LookupActor(ctx context.Context, handle string) (*auth.Actor, error) {
	if handle == auth.AdminHandle {
		return auth.NewActor(0, handle, auth.RoleAdmin), nil
	}

	var m mysql.AccountModel
	err := r.db.WithContext(ctx).Where("email = ?", handle).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "查询操作者失败")
	}

	// 普通账户没有附加角色：只能动自己名下的资源
	return auth.NewActor(m.ID, m.Email), nil
}
