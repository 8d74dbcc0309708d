package httpapi

// Result JSON envelope for /api/v1/tenants and /healthz.
// code is ResultSuccess or ResultError; request_id echoes X-Request-Id so an operator can
// find the matching log line.
type Result[T any] struct {
	Code      int    `json:"code"`
	Type      string `json:"type"` // success | error
	Message   string `json:"message"`
	Result    T      `json:"result"`
	RequestID string `json:"request_id,omitempty"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
