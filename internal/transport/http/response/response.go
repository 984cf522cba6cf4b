package response

// 统一响应信封：success + data + errors，配合真实 HTTP 状态码使用。

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type Body struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Errors  []ErrorDetail `json:"errors"`
}

func OK(data any) Body {
	return Body{Success: true, Data: data, Errors: []ErrorDetail{}}
}

func Fail(msg string) Body {
	return Body{Success: false, Errors: []ErrorDetail{{Message: msg}}}
}

func FailWith(errs ...ErrorDetail) Body {
	if len(errs) == 0 {
		errs = []ErrorDetail{{Message: "request failed"}}
	}
	return Body{Success: false, Errors: errs}
}
