package transport

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var logger = log.Logger("core/transport")

// Binder 支持设备侧监听的连接器
type Binder interface {
	Listen(addr string) (channel.Listener, error)
}

// Registry 连接器注册表
type Registry struct {
	mu            sync.RWMutex
	connectors    map[string]channel.Connector
	defaultScheme string
}

var _ channel.Connector = (*Registry)(nil)

// NewRegistry 创建注册表
func NewRegistry(defaultScheme string, connectors ...channel.Connector) *Registry {
	r := &Registry{
		connectors:    make(map[string]channel.Connector),
		defaultScheme: defaultScheme,
	}
	for _, c := range connectors {
		r.Register(c)
	}
	return r
}

// Register 登记连接器，同名时替换
func (r *Registry) Register(c channel.Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Scheme()] = c
}

// Lookup 返回 scheme 对应的连接器
func (r *Registry) Lookup(scheme string) (channel.Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.connectors[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return c, nil
}

// Schemes 返回已登记的传输名称
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.connectors))
	for s := range r.connectors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Connect 按 addrA 的前缀选择连接器并建立连接
func (r *Registry) Connect(ctx context.Context, addrA, addrB string) (channel.Handle, error) {
	scheme, addr := SplitAddr(addrA, r.defaultScheme)
	c, err := r.Lookup(scheme)
	if err != nil {
		return nil, err
	}
	logger.Debug("建立字节通道", "scheme", scheme, "addr", addr, "device", addrB)
	return c.Connect(ctx, addr, addrB)
}

// Listen 按 addr 的前缀选择连接器并监听
func (r *Registry) Listen(addr string) (channel.Listener, error) {
	scheme, rest := SplitAddr(addr, r.defaultScheme)
	c, err := r.Lookup(scheme)
	if err != nil {
		return nil, err
	}
	b, ok := c.(Binder)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotListenable, scheme)
	}
	return b.Listen(rest)
}

// Scheme 返回默认传输名称
func (r *Registry) Scheme() string {
	return r.defaultScheme
}

// Close 关闭持有资源的连接器
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var err error
	for _, c := range r.connectors {
		if cl, ok := c.(io.Closer); ok {
			err = multierr.Append(err, cl.Close())
		}
	}
	return err
}

// SplitAddr 拆分 "scheme://addr"，没有前缀时返回默认 scheme
func SplitAddr(addr, defaultScheme string) (scheme, rest string) {
	if i := strings.Index(addr, "://"); i > 0 {
		return addr[:i], addr[i+3:]
	}
	return defaultScheme, addr
}
