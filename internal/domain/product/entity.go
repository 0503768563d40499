package product

import (
	"time"

	"github.com/xiebiao/webshop/internal/pipeline"
)

// EntityType 商品实体类型名
const EntityType = "Product"

// MaxPrice 价格上限（分）：999.99元
const MaxPrice int64 = 99999

// Product 商品实体
// 教学要点：价格使用int64存储"分"为单位（避免浮点数精度问题）
type Product struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"` // 单位：分
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EntityType 实现pipeline.Record
func (p *Product) EntityType() string { return EntityType }

// RecordID 实现pipeline.Record
func (p *Product) RecordID() uint { return p.ID }

// SetRecordID 实现pipeline.Record
func (p *Product) SetRecordID(id uint) { p.ID = id }

// Validate 模式校验：name必填≤50，价格0..999.99元
func (p *Product) Validate() error {
	ve := pipeline.NewValidationError("商品数据无效")

	if p.Name == "" || len(p.Name) > 50 {
		ve.Add("name", "商品名必填且长度不能超过50")
	}
	if p.Price < 0 || p.Price > MaxPrice {
		ve.Add("price", "价格必须在0到999.99元之间")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// MergeFrom 实现pipeline.Merger：商品的全部业务字段都可修改
func (p *Product) MergeFrom(incoming pipeline.Record) {
	in, ok := incoming.(*Product)
	if !ok {
		return
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Available = in.Available
}
