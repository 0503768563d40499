package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/webshop/internal/pipeline"
	apperrors "github.com/xiebiao/webshop/pkg/errors"
)

// Response 统一响应结构
// 设计说明：
// 1. Code是业务错误码（非HTTP状态码），方便客户端判断错误类型
// 2. HTTP状态码同时按错误族设置（业务拒绝4xx、基础设施5xx），
//    便于网关和监控直接按状态码分类
// 3. Data是业务数据，成功时返回，失败时为null
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationResponse 校验失败响应（带字段级错误列表）
type ValidationResponse struct {
	Code    int                   `json:"code"`
	Message string                `json:"message"`
	Errors  []pipeline.FieldError `json:"validationErrors"`
}

// Success 成功响应（Code=0表示成功）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应（201）
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// NoContent 无内容响应（删除成功）
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 错误响应：按错误族分发
// 错误族（见internal/pipeline与pkg/errors）：
// 1. *pipeline.Rejection —— 业务拒绝，状态码由失败的钩子选择
// 2. *pipeline.ValidationError —— 400 + 字段错误列表
// 3. *apperrors.AppError —— 按错误码推导状态码（管道之外的路径：登录、鉴权）
// 4. 其他 —— 500，内部细节不外泄
func Error(c *gin.Context, err error) {
	var rej *pipeline.Rejection
	if errors.As(err, &rej) {
		c.JSON(rej.StatusCode, Response{
			Code:    apperrors.ErrCodeBusinessError,
			Message: rej.Message,
		})
		return
	}

	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, ValidationResponse{
			Code:    apperrors.ErrCodeInvalidParams,
			Message: ve.Message,
			Errors:  ve.Fields,
		})
		return
	}

	appErr := apperrors.GetAppError(err)
	c.JSON(appErr.HTTPStatus(), Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// ErrorWithCode 自定义错误码和消息（HTTP状态按码推导）
func ErrorWithCode(c *gin.Context, code int, message string) {
	Error(c, apperrors.New(code, message))
}
