package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/interface/http/dto"
	"github.com/xiebiao/webshop/internal/interface/http/middleware"
	"github.com/xiebiao/webshop/internal/pipeline"
	"github.com/xiebiao/webshop/pkg/response"
)

// AccountHandler 账户HTTP处理器
// 所有写操作都通过写管道执行：Handler只做DTO与实体的转换，
// 业务规则（唯一性、授权、依赖检查）都在资源处理器里
type AccountHandler struct {
	engine *pipeline.Engine
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(engine *pipeline.Engine) *AccountHandler {
	return &AccountHandler{engine: engine}
}

// Create 开户
// @Summary      开户
// @Description  自助注册账户，邮箱全库唯一
// @Tags         账户
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateAccountRequest true "账户信息"
// @Success      201 {object} response.Response{data=dto.AccountResponse} "开户成功"
// @Failure      400 {object} response.Response "参数错误或邮箱已被注册"
// @Router       /api/v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	rec := &account.Account{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}

	created, err := h.engine.Create(c.Request.Context(), account.EntityType, rec, middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toAccountResponse(created.(*account.Account)))
}

// Get 查看账户
// @Summary      查看账户
// @Tags         账户
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "账户ID"
// @Success      200 {object} response.Response{data=dto.AccountResponse}
// @Failure      403 {object} response.Response "无权查看他人账户"
// @Failure      404 {object} response.Response "账户不存在"
// @Router       /api/v1/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor := middleware.GetActor(c)
	if !actor.Owns(id) && !actor.IsAdmin() {
		response.ErrorWithCode(c, 40104, "无权查看他人账户")
		return
	}

	rec, err := h.engine.FetchOne(c.Request.Context(), account.EntityType, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toAccountResponse(rec.(*account.Account)))
}

// Update 修改账户
// @Summary      修改账户
// @Description  修改邮箱、姓名；携带password字段时同时改密
// @Tags         账户
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "账户ID"
// @Param        request body dto.UpdateAccountRequest true "账户信息"
// @Success      200 {object} response.Response{data=dto.AccountResponse}
// @Failure      403 {object} response.Response "无权修改他人账户"
// @Failure      404 {object} response.Response "账户不存在"
// @Failure      422 {object} response.Response "邮箱已被其他账户使用"
// @Router       /api/v1/accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	incoming := &account.Account{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	}

	merged, err := h.engine.Update(c.Request.Context(), account.EntityType, id, incoming, middleware.GetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toAccountResponse(merged.(*account.Account)))
}

// Delete 销户
// @Summary      销户
// @Description  名下存在订单的账户不允许删除
// @Tags         账户
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "账户ID"
// @Success      204 "删除成功"
// @Failure      400 {object} response.Response "账户名下存在订单"
// @Failure      403 {object} response.Response "无权删除他人账户"
// @Failure      404 {object} response.Response "账户不存在"
// @Router       /api/v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.engine.Delete(c.Request.Context(), account.EntityType, id, middleware.GetActor(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// =========================================
// 辅助
// =========================================

func toAccountResponse(a *account.Account) *dto.AccountResponse {
	return &dto.AccountResponse{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// parseID 解析路径里的主键，非法时直接写出400响应
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, 40900, "非法的资源ID")
		return 0, false
	}
	return uint(id), true
}
