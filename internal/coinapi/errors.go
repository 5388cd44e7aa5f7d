package coinapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUnauthorized 表示 API key 缺失或无效。
	ErrUnauthorized = errors.New("coinapi: unauthorized")
	// ErrForbidden 表示当前套餐无权访问该接口。
	ErrForbidden = errors.New("coinapi: forbidden")
	// ErrRateLimited 表示请求超出配额。
	ErrRateLimited = errors.New("coinapi: rate limited")
)

// HTTPError 表示接口返回了非 2xx 状态码。
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("coinapi: server responded with a %d status code", e.StatusCode)
	}
	return fmt.Sprintf("coinapi: server responded with a %d status code: %s", e.StatusCode, e.Body)
}

// Is 让 errors.Is 可以按状态码匹配哨兵错误。
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsRetryable 判断错误是否可重试。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
