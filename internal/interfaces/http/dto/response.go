package dto

// Response is the envelope of every API response. Exactly one of Data and
// Error is set; Meta accompanies paged lists.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request. Code is a domain error code such as
// INVALID_STATE_TRANSITION, or one of the transport codes in errors.go.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta is the paging block of list responses
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps one page of a list. A zero page size
// means the list was not paged and reports zero pages.
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	meta := &Meta{Total: total, Page: page, PageSize: pageSize}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Response{Success: true, Data: data, Meta: meta}
}

// NewErrorResponse builds a failure envelope
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithDetails(code, message, nil)
}

// NewErrorResponseWithDetails builds a failure envelope with details, such
// as the per-field validation failures
func NewErrorResponseWithDetails(code, message string, details any) Response {
	return Response{
		Error: &ErrorInfo{Code: code, Message: message, Details: details},
	}
}
