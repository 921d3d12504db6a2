package link

import "errors"

var (
	// ErrTooManyLinks 链路数已达上限
	ErrTooManyLinks = errors.New("link: too many links")

	// ErrLinkNotFound 链路不存在
	ErrLinkNotFound = errors.New("link: not found")
)
