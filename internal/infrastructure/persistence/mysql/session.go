package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/domain/order"
	"github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/pipeline"
)

// Factory 会话工厂：把池里取出的事务句柄包装成会话
type Factory struct{}

// NewSessionFactory 创建会话工厂
func NewSessionFactory() *Factory {
	return &Factory{}
}

// Session 实现pipeline.SessionFactory
func (f *Factory) Session(conn pipeline.Conn) pipeline.Session {
	tx, _ := conn.(*gorm.DB)
	return &Session{tx: tx}
}

// Session 单事务上的读写会话
// 设计说明：
// 1. 所有操作都走同一个*gorm.DB事务句柄——约束查询与最终写
//    观察同一快照
// 2. 实体↔模型的转换收敛在本文件：domain层不认识GORM，
//    GORM模型不外泄
type Session struct {
	tx *gorm.DB
}

// Count 实现pipeline.Session：统计满足过滤条件的记录数
func (s *Session) Count(ctx context.Context, entity string, filter pipeline.Filter) (int64, error) {
	model, err := modelFor(entity)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(entity, filter)
	if err != nil {
		return 0, err
	}

	q := s.tx.WithContext(ctx).Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Fetch 实现pipeline.Session：通用读查询
// LockShared时带FOR SHARE——读到的行在本事务提交前不会被他人改写
func (s *Session) Fetch(ctx context.Context, entity string, q pipeline.Query) ([]pipeline.Record, error) {
	where, args, err := buildWhere(entity, q.Filter)
	if err != nil {
		return nil, err
	}

	db := s.tx.WithContext(ctx)
	if where != "" {
		db = db.Where(where, args...)
	}
	if cols, err := selectColumns(entity, q.Props); err != nil {
		return nil, err
	} else if cols != nil {
		db = db.Select(cols)
	}
	if q.LockShared {
		db = db.Clauses(clause.Locking{Strength: "SHARE"})
	}

	switch entity {
	case account.EntityType:
		var models []AccountModel
		if err := db.Find(&models).Error; err != nil {
			return nil, err
		}
		recs := make([]pipeline.Record, len(models))
		for i := range models {
			recs[i] = fromAccountModel(&models[i])
		}
		return recs, nil

	case product.EntityType:
		var models []ProductModel
		if err := db.Find(&models).Error; err != nil {
			return nil, err
		}
		recs := make([]pipeline.Record, len(models))
		for i := range models {
			recs[i] = fromProductModel(&models[i])
		}
		return recs, nil

	case order.EntityType:
		var models []OrderModel
		if err := db.Preload("Items").Find(&models).Error; err != nil {
			return nil, err
		}
		recs := make([]pipeline.Record, len(models))
		for i := range models {
			recs[i] = fromOrderModel(&models[i])
		}
		return recs, nil

	default:
		return nil, fmt.Errorf("未知的实体类型: %s", entity)
	}
}

// Get 实现pipeline.Session：按主键取单条记录
func (s *Session) Get(ctx context.Context, entity string, id uint) (pipeline.Record, error) {
	db := s.tx.WithContext(ctx)

	switch entity {
	case account.EntityType:
		var m AccountModel
		if err := db.First(&m, id).Error; err != nil {
			return nil, notFoundOr(err)
		}
		return fromAccountModel(&m), nil

	case product.EntityType:
		var m ProductModel
		if err := db.First(&m, id).Error; err != nil {
			return nil, notFoundOr(err)
		}
		return fromProductModel(&m), nil

	case order.EntityType:
		var m OrderModel
		if err := db.Preload("Items").First(&m, id).Error; err != nil {
			return nil, notFoundOr(err)
		}
		return fromOrderModel(&m), nil

	default:
		return nil, fmt.Errorf("未知的实体类型: %s", entity)
	}
}

// Insert 实现pipeline.Session：插入记录并回填主键
func (s *Session) Insert(ctx context.Context, rec pipeline.Record) error {
	db := s.tx.WithContext(ctx)

	switch r := rec.(type) {
	case *account.Account:
		m := toAccountModel(r)
		if err := db.Create(m).Error; err != nil {
			return err
		}
		rec.SetRecordID(m.ID)
		return nil

	case *product.Product:
		m := toProductModel(r)
		if err := db.Create(m).Error; err != nil {
			return err
		}
		rec.SetRecordID(m.ID)
		return nil

	case *order.Order:
		m := toOrderModel(r)
		// 行项目随订单一起插入（foreignKey:OrderID由GORM回填）
		if err := db.Create(m).Error; err != nil {
			return err
		}
		rec.SetRecordID(m.ID)
		return nil

	default:
		return fmt.Errorf("未知的记录类型: %T", rec)
	}
}

// Update 实现pipeline.Session：按主键整体更新
// 教学要点：用显式列映射更新而不是Save——Save会把零值的CreatedAt
// 也写回去，显式Updates只碰业务字段
func (s *Session) Update(ctx context.Context, rec pipeline.Record) error {
	db := s.tx.WithContext(ctx)

	switch r := rec.(type) {
	case *account.Account:
		return db.Model(&AccountModel{}).Where("id = ?", r.ID).Updates(map[string]any{
			"email":           r.Email,
			"first_name":      r.FirstName,
			"last_name":       r.LastName,
			"password_digest": r.PasswordDigest,
		}).Error

	case *product.Product:
		return db.Model(&ProductModel{}).Where("id = ?", r.ID).Updates(map[string]any{
			"name":         r.Name,
			"description":  r.Description,
			"price":        r.Price,
			"is_available": r.Available,
		}).Error

	case *order.Order:
		if err := db.Model(&OrderModel{}).Where("id = ?", r.ID).Updates(map[string]any{
			"status":        r.Status,
			"payment_tx_id": r.PaymentTransactionID,
		}).Error; err != nil {
			return err
		}
		// 行项目整体替换：删旧插新（行数很小，简单正确优先）
		if err := db.Where("order_id = ?", r.ID).Delete(&OrderItemModel{}).Error; err != nil {
			return err
		}
		items := toOrderItemModels(r.ID, r.Items)
		if len(items) == 0 {
			return nil
		}
		return db.Create(&items).Error

	default:
		return fmt.Errorf("未知的记录类型: %T", rec)
	}
}

// Delete 实现pipeline.Session：按主键删除
func (s *Session) Delete(ctx context.Context, entity string, id uint) error {
	db := s.tx.WithContext(ctx)

	switch entity {
	case account.EntityType:
		return db.Delete(&AccountModel{}, id).Error
	case product.EntityType:
		return db.Delete(&ProductModel{}, id).Error
	case order.EntityType:
		if err := db.Where("order_id = ?", id).Delete(&OrderItemModel{}).Error; err != nil {
			return err
		}
		return db.Delete(&OrderModel{}, id).Error
	default:
		return fmt.Errorf("未知的实体类型: %s", entity)
	}
}

// Commit 实现pipeline.Session：提交事务
func (s *Session) Commit() error {
	return s.tx.Commit().Error
}

// =============================================================================
// 辅助
// =============================================================================

func modelFor(entity string) (any, error) {
	switch entity {
	case account.EntityType:
		return &AccountModel{}, nil
	case product.EntityType:
		return &ProductModel{}, nil
	case order.EntityType:
		return &OrderModel{}, nil
	default:
		return nil, fmt.Errorf("未知的实体类型: %s", entity)
	}
}

// selectColumns 把属性投影换算成SELECT列，主键始终带上
func selectColumns(entity string, props []string) ([]string, error) {
	if len(props) == 0 {
		return nil, nil
	}
	cols, err := columnsFor(entity)
	if err != nil {
		return nil, err
	}
	out := []string{"id"}
	for _, p := range props {
		if p == "id" {
			continue
		}
		col, ok := cols[p]
		if !ok {
			return nil, fmt.Errorf("实体%s没有可投影属性%s", entity, p)
		}
		out = append(out, col)
	}
	return out, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pipeline.ErrNotFound
	}
	return err
}

// =============================================================================
// 实体 ↔ 模型转换
// =============================================================================

func toAccountModel(a *account.Account) *AccountModel {
	return &AccountModel{
		ID:             a.ID,
		Email:          a.Email,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		PasswordDigest: a.PasswordDigest,
	}
}

func fromAccountModel(m *AccountModel) *account.Account {
	return &account.Account{
		ID:             m.ID,
		Email:          m.Email,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		PasswordDigest: m.PasswordDigest,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toProductModel(p *product.Product) *ProductModel {
	return &ProductModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsAvailable: p.Available,
	}
}

func fromProductModel(m *ProductModel) *product.Product {
	return &product.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Available:   m.IsAvailable,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toOrderModel(o *order.Order) *OrderModel {
	return &OrderModel{
		ID:          o.ID,
		AccountID:   o.AccountID(),
		PlacedOn:    o.PlacedOn,
		Status:      o.Status,
		PaymentTxID: o.PaymentTransactionID,
		Items:       toOrderItemModels(o.ID, o.Items),
	}
}

func toOrderItemModels(orderID uint, items []order.OrderItem) []OrderItemModel {
	out := make([]OrderItemModel, 0, len(items))
	for _, item := range items {
		pid, _ := pipeline.ParseRef(product.EntityType, item.ProductRef)
		out = append(out, OrderItemModel{
			OrderID:   orderID,
			ProductID: pid,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func fromOrderModel(m *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(m.Items))
	for i, im := range m.Items {
		items[i] = order.OrderItem{
			ID:         im.ID,
			ProductRef: pipeline.RefOf(product.EntityType, im.ProductID),
			Quantity:   im.Quantity,
		}
	}
	return &order.Order{
		ID:                   m.ID,
		AccountRef:           pipeline.RefOf(account.EntityType, m.AccountID),
		PlacedOn:             m.PlacedOn,
		Status:               m.Status,
		PaymentTransactionID: m.PaymentTxID,
		Items:                items,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}
