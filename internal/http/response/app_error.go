package response

import "fmt"

// AppError 接口层错误：业务码决定 HTTP 状态，Err 只进日志不下发
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError 创建接口层错误
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status 对应的 HTTP 状态码
func (e *AppError) Status() int {
	return HTTPStatus(e.Code)
}

// ServerSide 5xx 错误需要按 error 级别记录
func (e *AppError) ServerSide() bool {
	return e.Status() >= 500
}
