package pipeline

import (
	"errors"
	"fmt"
)

// ErrNotFound 记录不存在（Session.Get未命中时返回）
// 引擎会把它转换为404 Rejection
var ErrNotFound = errors.New("record not found")

// Rejection 业务拒绝
// 设计说明：
// 1. 钩子里的业务规则失败（唯一性冲突、引用不存在、状态机非法转换、无权限）
//    都以Rejection形式短路整个管道
// 2. StatusCode由失败的钩子自行选择（400/403/404/405/409/422）
// 3. 与基础设施错误（数据库、网关）严格区分：Rejection不打5xx日志、不重试
type Rejection struct {
	StatusCode int    `json:"-"`       // HTTP状态码
	Message    string `json:"message"` // 用户可读的拒绝原因
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rejected(%d): %s", r.StatusCode, r.Message)
}

// NewRejection 创建业务拒绝
func NewRejection(statusCode int, message string) *Rejection {
	return &Rejection{StatusCode: statusCode, Message: message}
}

// IsRejection 判断是否为业务拒绝
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 结构化校验错误集
// 设计说明：
// 1. prepare阶段之后、before阶段之前执行记录校验，失败时返回整组字段错误
// 2. 对外表现为400，带字段错误列表（区别于单条消息的Rejection）
type ValidationError struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"validationErrors"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%d field errors)", e.Message, len(e.Fields))
}

// NewValidationError 创建校验错误集
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// Add 追加一条字段错误
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors 是否存在字段错误
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// IsBusinessError 判断错误是否属于业务类（拒绝或校验失败）
// 其余一律按基础设施错误处理（5xx，连接照常释放）
func IsBusinessError(err error) bool {
	var rej *Rejection
	var ve *ValidationError
	return errors.As(err, &rej) || errors.As(err, &ve)
}
