package mysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/webshop/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	// 开发环境打印SQL
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 配置连接池
	// 学习要点：MaxOpenConns是写管道"取连接"的硬上限——
	// 并发变更数超过它时Acquire会排队等待
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Println("✓ 数据库连接成功")

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
// 学习要点：
// 1. AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
// 2. 生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&ProductModel{},
		&OrderModel{},
		&OrderItemModel{},
	)
}

// AccountModel GORM账户模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/account/entity.go是领域实体，不依赖GORM
// 3. Session负责两者之间的转换
type AccountModel struct {
	ID             uint      `gorm:"primaryKey"`
	Email          string    `gorm:"uniqueIndex;size:60;not null;comment:邮箱（小写）"`
	FirstName      string    `gorm:"size:30;not null;comment:名字"`
	LastName       string    `gorm:"size:30;not null;comment:姓氏"`
	PasswordDigest string    `gorm:"size:255;not null;comment:口令摘要（bcrypt）"`
	CreatedAt      time.Time `gorm:"comment:创建时间"`
	UpdatedAt      time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (AccountModel) TableName() string {
	return "accounts"
}

// ProductModel GORM商品模型
// 设计说明：价格使用int64存储"分"为单位（避免浮点数精度问题）
type ProductModel struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:50;not null;comment:商品名"`
	Description string    `gorm:"type:text;comment:商品描述"`
	Price       int64     `gorm:"not null;comment:价格(分)"`
	IsAvailable bool      `gorm:"index;default:true;comment:是否可售"`
	CreatedAt   time.Time `gorm:"comment:创建时间"`
	UpdatedAt   time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (ProductModel) TableName() string {
	return "products"
}

// OrderModel GORM订单模型
// 教学要点:
// 1. 与OrderItemModel是一对多关系
// 2. AccountID、PlacedOn创建后不再变化（不可修改字段）
// 3. Status存字符串枚举（NEW/ACCEPTED/SHIPPED/CANCELED），带索引
type OrderModel struct {
	ID          uint             `gorm:"primaryKey"`
	AccountID   uint             `gorm:"index;not null;comment:下单账户ID"`
	PlacedOn    time.Time        `gorm:"not null;comment:下单时间"`
	Status      string           `gorm:"index;size:16;not null;comment:订单状态"`
	PaymentTxID string           `gorm:"size:64;comment:支付流水号"`
	Items       []OrderItemModel `gorm:"foreignKey:OrderID"` // 一对多关联
	CreatedAt   time.Time        `gorm:"comment:创建时间"`
	UpdatedAt   time.Time        `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel GORM订单明细模型
type OrderItemModel struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null;comment:订单ID"`
	ProductID uint `gorm:"index;not null;comment:商品ID"`
	Quantity  int  `gorm:"not null;comment:购买数量"`
}

// TableName 指定表名
func (OrderItemModel) TableName() string {
	return "order_items"
}
