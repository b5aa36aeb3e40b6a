package httpclient

import (
	"errors"
	"fmt"
)

// 上游配置错误，在发起任何请求之前返回
var (
	ErrMissingAPIKey    = errors.New("missing api key")
	ErrUnsupportedChain = errors.New("unsupported chain")
)

// NoDataError 上游返回成功但缺少预期数据，属于内容问题，不重试
type NoDataError struct {
	Kind string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("No %s data available", e.Kind)
}

func NoData(kind string) error {
	return &NoDataError{Kind: kind}
}

// IsNoData 判断是否为缺数据错误
func IsNoData(err error) bool {
	var e *NoDataError
	return errors.As(err, &e)
}
