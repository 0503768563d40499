package handler

import (
	"github.com/gin-gonic/gin"

	appauth "github.com/xiebiao/webshop/internal/application/auth"
	"github.com/xiebiao/webshop/internal/interface/http/dto"
	"github.com/xiebiao/webshop/internal/interface/http/middleware"
	"github.com/xiebiao/webshop/pkg/response"
)

// AuthHandler 认证HTTP处理器
// 设计说明：
// 1. Handler只负责HTTP相关的事情：解析请求、调用应用层、返回响应
// 2. 不包含业务逻辑（凭证校验在application层）
type AuthHandler struct {
	loginUseCase  *appauth.LoginUseCase
	logoutUseCase *appauth.LogoutUseCase
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(loginUseCase *appauth.LoginUseCase, logoutUseCase *appauth.LogoutUseCase) *AuthHandler {
	return &AuthHandler{
		loginUseCase:  loginUseCase,
		logoutUseCase: logoutUseCase,
	}
}

// Login 登录
// @Summary      登录
// @Description  用账户邮箱（或admin）与口令换取JWT Token
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "登录信息"
// @Success      200 {object} response.Response{data=dto.LoginResponse} "登录成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "账号或口令错误"
// @Router       /api/v1/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.loginUseCase.Execute(c.Request.Context(), appauth.LoginRequest{
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.LoginResponse{
		Handle:      result.Handle,
		AccessToken: result.AccessToken,
		ExpiresIn:   result.ExpiresIn,
	})
}

// Logout 登出
// @Summary      登出
// @Description  删除会话并将当前Token加入黑名单
// @Tags         认证
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response "登出成功"
// @Failure      401 {object} response.Response "未登录"
// @Router       /api/v1/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	actor := middleware.GetActor(c)
	token := middleware.GetToken(c)

	if err := h.logoutUseCase.Execute(c.Request.Context(), actor.Stamp, token); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
