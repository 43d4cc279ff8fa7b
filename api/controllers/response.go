package controllers

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 构造成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{Status: 0, Msg: msg, Data: data}
}

// SuccessPaginatedResponse 构造分页成功响应
func SuccessPaginatedResponse(msg string, data interface{}, total int64, page, size int) *PaginatedResponse {
	return &PaginatedResponse{Status: 0, Msg: msg, Data: data, Total: total, Page: page, Size: size}
}

// BadRequestResponse 构造请求参数错误响应
func BadRequestResponse(msg string, err error) *APIResponse {
	return errorResponse(400, msg, err)
}

// NotFoundResponse 构造资源不存在响应
func NotFoundResponse(msg string, err error) *APIResponse {
	return errorResponse(404, msg, err)
}

// ConflictResponse 构造资源冲突响应（如重算撞锁）
func ConflictResponse(msg string, err error) *APIResponse {
	return errorResponse(409, msg, err)
}

// InternalErrorResponse 构造服务器内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	return errorResponse(500, msg, err)
}

func errorResponse(status int, msg string, err error) *APIResponse {
	resp := &APIResponse{Status: status, Msg: msg}
	if err != nil {
		resp.Data = map[string]interface{}{"error": err.Error()}
	}
	return resp
}
