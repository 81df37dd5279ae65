package reflectionip

import (
	"context"
	"io"
	"net/netip"

	"github.com/rkttu/ReflectionIPAddress/internal/core/oracle"
	"github.com/rkttu/ReflectionIPAddress/internal/core/resolver"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/stunc"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/tlshttp"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// ============================================================================
//                              Oracle - 公开描述
// ============================================================================

// ParseFunc 从 HTTP 响应体中提取地址的边界函数
type ParseFunc = oracle.ParseFunc

// Oracle 一个可查询的地址 oracle
//
// 通过 NewTextOracle / NewJSONOracle / NewSTUNOracle 构造，
// 或使用内置注册表（不传 WithOracles 时的默认）。
type Oracle struct {
	entry oracle.Entry
}

// Identity 返回 oracle 标识（规范化端点字符串）
func (o Oracle) Identity() string {
	return o.entry.Identity()
}

// NewTextOracle 创建返回纯文本地址的 HTTPS oracle
func NewTextOracle(rawURL string) (Oracle, error) {
	return NewHTTPOracle(rawURL, oracle.ParseTextAddress)
}

// NewJSONOracle 创建返回 JSON 对象的 HTTPS oracle，地址取自 field 字段
func NewJSONOracle(rawURL, field string) (Oracle, error) {
	return NewHTTPOracle(rawURL, oracle.JSONParser(field))
}

// NewHTTPOracle 创建自定义解析器的 HTTPS oracle
func NewHTTPOracle(rawURL string, parse ParseFunc) (Oracle, error) {
	desc, err := oracle.NewDescriptor(rawURL, types.TransportTLSHTTP)
	if err != nil {
		return Oracle{}, err
	}
	return Oracle{entry: oracle.Entry{Desc: desc, Parse: parse}}, nil
}

// NewSTUNOracle 创建 STUN oracle（"stun:host:port" 或 "stun://host:port"）
func NewSTUNOracle(rawURL string) (Oracle, error) {
	desc, err := oracle.NewDescriptor(rawURL, types.TransportSTUN)
	if err != nil {
		return Oracle{}, err
	}
	return Oracle{entry: oracle.Entry{Desc: desc}}, nil
}

// ============================================================================
//                              Client - 查询入口
// ============================================================================

// Client 可复用的查询客户端
//
// 持有编排器与通信器；oracle 描述符在进程生命周期内不变，
// 单次查询的请求与响应都是调用作用域的，不跨调用持久化。
type Client struct {
	svc     *resolver.Service
	oracles []Oracle
}

// New 创建客户端
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg := resolver.Config{
		QueryTimeout:   o.queryTimeout,
		SendTimeout:    o.sendTimeout,
		ReceiveTimeout: o.receiveTimeout,
		BufferSize:     o.bufferSize,
	}
	svc := resolver.NewService(cfg,
		tlshttp.New(o.resolver, o.userAgent),
		stunc.New(o.resolver, o.random),
	)

	return &Client{svc: svc, oracles: o.oracles}, nil
}

// Reflect 竞速查询，返回最先成功的外部地址
func (c *Client) Reflect(ctx context.Context, family types.AddressFamily) (netip.Addr, error) {
	entries, err := c.entries(family)
	if err != nil {
		return netip.Addr{}, err
	}
	return c.svc.Reflect(ctx, entries, family)
}

// ReflectAll 查询全部 oracle，收集所有成功结果
func (c *Client) ReflectAll(ctx context.Context, family types.AddressFamily) (types.Results, error) {
	entries, err := c.entries(family)
	if err != nil {
		return nil, err
	}
	return c.svc.ReflectAll(ctx, entries, family)
}

// ReflectConsensus 查询全部 oracle 并做多数表决
//
// 没有任何可用结果时返回 ErrNoConsensus。
func (c *Client) ReflectConsensus(ctx context.Context, family types.AddressFamily) (netip.Addr, error) {
	results, err := c.ReflectAll(ctx, family)
	if err != nil {
		return netip.Addr{}, err
	}
	addr, ok := resolver.Consensus(results)
	if !ok {
		return netip.Addr{}, ErrNoConsensus
	}
	return addr, nil
}

// Stats 返回累计查询统计
func (c *Client) Stats() resolver.StatsSnapshot {
	return c.svc.Stats()
}

// entries 展开本次查询使用的 oracle 条目（端点去重）
func (c *Client) entries(family types.AddressFamily) ([]oracle.Entry, error) {
	if len(c.oracles) == 0 {
		return oracle.Builtin(family), nil
	}

	set, err := oracle.NewSet()
	if err != nil {
		return nil, err
	}
	for _, o := range c.oracles {
		if err := set.Add(o.entry); err != nil {
			return nil, err
		}
	}
	return set.Entries(), nil
}

// ============================================================================
//                              包级便捷函数
// ============================================================================

// Reflect 一次性竞速查询（内部构造临时 Client）
func Reflect(ctx context.Context, family types.AddressFamily, opts ...Option) (netip.Addr, error) {
	c, err := New(opts...)
	if err != nil {
		return netip.Addr{}, err
	}
	return c.Reflect(ctx, family)
}

// ReflectAll 一次性收集全部 oracle 的回答
func ReflectAll(ctx context.Context, family types.AddressFamily, opts ...Option) (types.Results, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return c.ReflectAll(ctx, family)
}

// ReflectConsensus 一次性查询并做多数表决
func ReflectConsensus(ctx context.Context, family types.AddressFamily, opts ...Option) (netip.Addr, error) {
	c, err := New(opts...)
	if err != nil {
		return netip.Addr{}, err
	}
	return c.ReflectConsensus(ctx, family)
}

// Consensus 在已有结果集中做多数表决
func Consensus(results types.Results) (netip.Addr, bool) {
	return resolver.Consensus(results)
}

// WildcardDomain 将地址格式化为通配子域名标签
// （203.0.113.7 + "sslip.io" → "203-0-113-7.sslip.io"）
func WildcardDomain(addr netip.Addr, base string) string {
	return oracle.WildcardDomain(addr, base)
}

// ParseTextAddress 从纯文本响应体提取地址（导出供自定义 oracle 复用）
func ParseTextAddress(r io.Reader) (netip.Addr, error) {
	return oracle.ParseTextAddress(r)
}
