package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/webshop/internal/domain/order"
	"github.com/xiebiao/webshop/internal/interface/http/dto"
	"github.com/xiebiao/webshop/internal/interface/http/middleware"
	"github.com/xiebiao/webshop/internal/pipeline"
	"github.com/xiebiao/webshop/pkg/response"
)

// OrderHandler 订单HTTP处理器
// 路由形态：
// 1. 顶层集合：POST /orders（载荷里带accountRef）
// 2. 嵌套集合：POST /accounts/:id/orders（账户引用取自路径）
type OrderHandler struct {
	engine *pipeline.Engine
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(engine *pipeline.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

// Create 下单
// @Summary      下单
// @Description  校验账户与商品、支付授权通过后落单，状态为NEW
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      201 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "账户/商品不存在或支付被拒绝"
// @Failure      403 {object} response.Response "只能为自己的账户下单"
// @Router       /api/v1/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	h.create(c, nil)
}

// CreateNested 在账户下下单
// @Summary      在账户下下单
// @Description  同POST /orders，账户引用取自路径
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "账户ID"
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      201 {object} response.Response{data=dto.OrderResponse}
// @Failure      400 {object} response.Response "账户/商品不存在或支付被拒绝"
// @Failure      403 {object} response.Response "只能为自己的账户下单"
// @Router       /api/v1/accounts/{id}/orders [post]
func (h *OrderHandler) CreateNested(c *gin.Context) {
	h.create(c, []string{c.Param("id")})
}

func (h *OrderHandler) create(c *gin.Context, uriParams []string) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	rec := &order.Order{
		AccountRef:        req.AccountRef,
		Items:             toOrderItems(req.Items),
		CreditCardNumber:  req.CreditCardNumber,
		CreditCardExpDate: req.CreditCardExpDate,
	}

	created, err := h.engine.Create(c.Request.Context(), order.EntityType, rec, middleware.GetActor(c), uriParams...)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toOrderResponse(created.(*order.Order)))
}

// Get 查看订单
// @Summary      查看订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      403 {object} response.Response "无权查看他人订单"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.engine.FetchOne(c.Request.Context(), order.EntityType, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	o := rec.(*order.Order)
	actor := middleware.GetActor(c)
	if !actor.Owns(o.AccountID()) && !actor.IsAdmin() {
		response.ErrorWithCode(c, 40104, "无权查看他人订单")
		return
	}

	response.Success(c, toOrderResponse(o))
}

// ListByAccount 账户订单列表
// @Summary      账户订单列表
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "账户ID"
// @Success      200 {object} response.Response{data=[]dto.OrderResponse}
// @Failure      403 {object} response.Response "无权查看他人订单"
// @Router       /api/v1/accounts/{id}/orders [get]
func (h *OrderHandler) ListByAccount(c *gin.Context) {
	accountID, ok := parseID(c)
	if !ok {
		return
	}

	actor := middleware.GetActor(c)
	if !actor.Owns(accountID) && !actor.IsAdmin() {
		response.ErrorWithCode(c, 40104, "无权查看他人订单")
		return
	}

	recs, err := h.engine.FetchList(c.Request.Context(), order.EntityType, pipeline.Query{
		Filter: pipeline.Filter{
			{Path: "accountRef", Op: pipeline.OpIs, Value: accountID},
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]*dto.OrderResponse, len(recs))
	for i, r := range recs {
		out[i] = toOrderResponse(r.(*order.Order))
	}
	response.Success(c, out)
}

// Update 改单
// @Summary      改单
// @Description  PUT语义（完整表述）。改行项目或驱动状态转换：
// @Description  SHIPPED触发扣款（仅管理员），CANCELED撤销支付授权
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.UpdateOrderRequest true "订单信息"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      403 {object} response.Response "无权修改或无权发货"
// @Failure      404 {object} response.Response "订单不存在"
// @Failure      409 {object} response.Response "状态机不允许此转换"
// @Failure      422 {object} response.Response "行项目不合法"
// @Router       /api/v1/orders/{id} [put]
func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	incoming := &order.Order{
		AccountRef:           req.AccountRef,
		PlacedOn:             req.PlacedOn,
		Status:               req.Status,
		PaymentTransactionID: req.PaymentTransactionID,
		Items:                toOrderItems(req.Items),
	}

	merged, err := h.engine.Update(c.Request.Context(), order.EntityType, id, incoming, middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toOrderResponse(merged.(*order.Order)))
}

// =========================================
// 辅助
// =========================================

func toOrderItems(items []dto.OrderItemDTO) []order.OrderItem {
	out := make([]order.OrderItem, len(items))
	for i, item := range items {
		out[i] = order.OrderItem{
			ProductRef: item.ProductRef,
			Quantity:   item.Quantity,
		}
	}
	return out
}

func toOrderResponse(o *order.Order) *dto.OrderResponse {
	items := make([]dto.OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = dto.OrderItemDTO{
			ProductRef: item.ProductRef,
			Quantity:   item.Quantity,
		}
	}
	return &dto.OrderResponse{
		ID:                   o.ID,
		AccountRef:           o.AccountRef,
		PlacedOn:             o.PlacedOn,
		Status:               o.Status,
		PaymentTransactionID: o.PaymentTransactionID,
		Items:                items,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}
