package common

// APIResponse 通用响应结构，用于封装成功或失败结果。
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PaginationMeta 分页元信息。
type PaginationMeta struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"total_page"`
}

// NewPagination 计算分页元信息。
func NewPagination(page, pageSize int, total int64) PaginationMeta {
	totalPage := 0
	if pageSize > 0 {
		totalPage = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	}
}

// ListResponse 列表响应结构，包含数据与分页信息。
type ListResponse struct {
	Items      interface{}    `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// ErrorResponse 统一错误返回结构。
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error 构造错误响应。
func Error(message string) ErrorResponse {
	return ErrorResponse{Success: false, Message: message}
}

// ErrorWithCode 构造带业务错误码的错误响应。
func ErrorWithCode(code, message string) ErrorResponse {
	return ErrorResponse{Success: false, Code: code, Message: message}
}

// OK 构造成功响应。
func OK(message string) APIResponse {
	return APIResponse{Success: true, Message: message}
}
