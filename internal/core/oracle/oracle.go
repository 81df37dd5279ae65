// Package oracle 定义地址 oracle 的描述符与内置注册表
//
// oracle 是一个第三方网络端点，被查询时报告它观察到的
// 调用方来源 IP。描述符只记录 {端点, 传输类型}，不含任何逻辑；
// 响应体解析器作为独立函数挂在注册表条目上。
package oracle

import (
	"fmt"
	"io"
	"net/netip"
	"net/url"

	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// ============================================================================
//                              Descriptor - 描述符
// ============================================================================

// Descriptor oracle 描述符（不可变）
//
// 不变量: endpoint.Scheme 必须与 transport 匹配
// （https/http 对应 TransportTLSHTTP，stun 对应 TransportSTUN）。
type Descriptor struct {
	endpoint  *url.URL
	transport types.TransportKind
}

// NewDescriptor 创建 oracle 描述符并校验 scheme 与传输类型匹配
func NewDescriptor(rawURL string, transport types.TransportKind) (Descriptor, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Descriptor{}, fmt.Errorf("parse endpoint %q: %w", rawURL, err)
	}
	// 兼容 "stun:host:port" 简写（无 "//" 时 host 落在 Opaque 里）
	if u.Scheme == "stun" && u.Opaque != "" {
		u, err = url.Parse("stun://" + u.Opaque)
		if err != nil {
			return Descriptor{}, fmt.Errorf("parse endpoint %q: %w", rawURL, err)
		}
	}
	if u.Hostname() == "" {
		return Descriptor{}, fmt.Errorf("endpoint %q has no host: %w", rawURL, types.ErrUnsupportedScheme)
	}

	switch transport {
	case types.TransportTLSHTTP:
		if u.Scheme != "https" && u.Scheme != "http" {
			return Descriptor{}, fmt.Errorf("scheme %q requires tls-http endpoint: %w", u.Scheme, types.ErrUnsupportedScheme)
		}
	case types.TransportSTUN:
		if u.Scheme != "stun" {
			return Descriptor{}, fmt.Errorf("scheme %q requires stun endpoint: %w", u.Scheme, types.ErrUnsupportedScheme)
		}
	default:
		return Descriptor{}, fmt.Errorf("transport %v: %w", transport, types.ErrUnsupportedScheme)
	}

	return Descriptor{endpoint: u, transport: transport}, nil
}

// Transport 返回传输类型
func (d Descriptor) Transport() types.TransportKind {
	return d.transport
}

// Identity 返回 oracle 标识（规范化端点字符串）
func (d Descriptor) Identity() string {
	if d.endpoint == nil {
		return ""
	}
	return d.endpoint.String()
}

// Scheme 返回端点 scheme
func (d Descriptor) Scheme() string {
	return d.endpoint.Scheme
}

// Hostname 返回端点主机名（不含端口）
func (d Descriptor) Hostname() string {
	return d.endpoint.Hostname()
}

// Port 返回端点端口，未指定时回退到 def
func (d Descriptor) Port(def uint16) uint16 {
	p := d.endpoint.Port()
	if p == "" {
		return def
	}
	var port uint16
	if _, err := fmt.Sscanf(p, "%d", &port); err != nil {
		return def
	}
	return port
}

// RequestTarget 返回 HTTP 请求行使用的 path+query
func (d Descriptor) RequestTarget() string {
	target := d.endpoint.RequestURI()
	if target == "" {
		return "/"
	}
	return target
}

// IsZero 检查描述符是否未初始化
func (d Descriptor) IsZero() bool {
	return d.endpoint == nil
}

// ============================================================================
//                              Entry - 注册表条目
// ============================================================================

// ParseFunc 从响应体中提取地址的边界函数
//
// 返回的地址无效（零值）且 error 为 nil 时表示"响应里没有地址"。
type ParseFunc func(io.Reader) (netip.Addr, error)

// Entry 描述符加上它的响应体解析器
//
// STUN oracle 的响应由 STUN 解码器直接产出端点，Parse 为 nil。
type Entry struct {
	// Desc oracle 描述符
	Desc Descriptor

	// Parse HTTP oracle 的响应体解析器
	Parse ParseFunc
}

// Identity 返回条目的 oracle 标识
func (e Entry) Identity() string {
	return e.Desc.Identity()
}

// ============================================================================
//                              Set - 有序去重集合
// ============================================================================

// Set 按端点去重的有序 oracle 集合
type Set struct {
	entries []Entry
	index   map[string]struct{}
}

// NewSet 创建集合，端点重复时返回 types.ErrDuplicateOracle
func NewSet(entries ...Entry) (*Set, error) {
	s := &Set{index: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if err := s.Add(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add 追加一个条目，端点重复时返回 types.ErrDuplicateOracle
func (s *Set) Add(e Entry) error {
	id := e.Identity()
	if _, ok := s.index[id]; ok {
		return fmt.Errorf("%s: %w", id, types.ErrDuplicateOracle)
	}
	s.index[id] = struct{}{}
	s.entries = append(s.entries, e)
	return nil
}

// Entries 返回按插入顺序排列的条目
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len 返回条目数量
func (s *Set) Len() int {
	return len(s.entries)
}
