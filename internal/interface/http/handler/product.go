package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/interface/http/dto"
	"github.com/xiebiao/webshop/internal/interface/http/middleware"
	"github.com/xiebiao/webshop/internal/pipeline"
	"github.com/xiebiao/webshop/pkg/response"
)

// ProductHandler 商品HTTP处理器
type ProductHandler struct {
	engine *pipeline.Engine
}

// NewProductHandler 创建商品处理器
func NewProductHandler(engine *pipeline.Engine) *ProductHandler {
	return &ProductHandler{engine: engine}
}

// List 商品列表
// @Summary      商品列表
// @Description  公开目录只含可售商品
// @Tags         商品
// @Produce      json
// @Success      200 {object} response.Response{data=[]dto.ProductResponse}
// @Router       /api/v1/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	recs, err := h.engine.FetchList(c.Request.Context(), product.EntityType, pipeline.Query{
		Filter: pipeline.Filter{
			{Path: "available", Op: pipeline.OpIs, Value: true},
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]*dto.ProductResponse, len(recs))
	for i, r := range recs {
		out[i] = toProductResponse(r.(*product.Product))
	}
	response.Success(c, out)
}

// Get 查看商品
// @Summary      查看商品
// @Tags         商品
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=dto.ProductResponse}
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /api/v1/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.engine.FetchOne(c.Request.Context(), product.EntityType, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toProductResponse(rec.(*product.Product)))
}

// Create 上架商品
// @Summary      上架商品
// @Description  仅管理员
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.ProductRequest true "商品信息"
// @Success      201 {object} response.Response{data=dto.ProductResponse}
// @Failure      403 {object} response.Response "非管理员"
// @Router       /api/v1/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	rec := &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Available:   req.Available,
	}

	created, err := h.engine.Create(c.Request.Context(), product.EntityType, rec, middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toProductResponse(created.(*product.Product)))
}

// Update 修改商品
// @Summary      修改商品
// @Description  仅管理员，可改名称、描述、价格与上下架
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Param        request body dto.ProductRequest true "商品信息"
// @Success      200 {object} response.Response{data=dto.ProductResponse}
// @Failure      403 {object} response.Response "非管理员"
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /api/v1/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	incoming := &product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Available:   req.Available,
	}

	merged, err := h.engine.Update(c.Request.Context(), product.EntityType, id, incoming, middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toProductResponse(merged.(*product.Product)))
}

// Delete 删除商品
// @Summary      删除商品
// @Description  仅管理员；被订单引用的商品不允许删除
// @Tags         商品
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "商品ID"
// @Success      204 "删除成功"
// @Failure      400 {object} response.Response "商品已被订单引用"
// @Failure      403 {object} response.Response "非管理员"
// @Failure      404 {object} response.Response "商品不存在"
// @Router       /api/v1/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.engine.Delete(c.Request.Context(), product.EntityType, id, middleware.GetActor(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func toProductResponse(p *product.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Available:   p.Available,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
