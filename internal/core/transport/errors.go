package transport

import "errors"

var (
	// ErrUnsupportedScheme 未登记的传输
	ErrUnsupportedScheme = errors.New("transport: unsupported scheme")

	// ErrNotListenable 传输不支持监听
	ErrNotListenable = errors.New("transport: scheme cannot listen")
)
