package reflectionip

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rkttu/ReflectionIPAddress/internal/core/resolver"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/tlshttp"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 超时配置
	queryTimeout   time.Duration
	sendTimeout    time.Duration
	receiveTimeout time.Duration

	// TLS-HTTP 配置
	bufferSize int
	userAgent  string

	// 注入点
	random   io.Reader
	resolver *net.Resolver

	// oracle 集合（nil 表示使用内置注册表）
	oracles []Oracle
}

// defaultOptions 返回默认选项
func defaultOptions() *options {
	cfg := resolver.DefaultConfig()
	return &options{
		queryTimeout:   cfg.QueryTimeout,
		sendTimeout:    cfg.SendTimeout,
		receiveTimeout: cfg.ReceiveTimeout,
		bufferSize:     cfg.BufferSize,
		userAgent:      tlshttp.DefaultUserAgent,
	}
}

// WithQueryTimeout 设置单次 oracle 查询的超时
//
// 0 表示不设单独超时，只受调用方 ctx 约束。
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("query timeout must not be negative: %v", d)
		}
		o.queryTimeout = d
		return nil
	}
}

// WithSendTimeout 设置 STUN 发送超时
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("send timeout must not be negative: %v", d)
		}
		o.sendTimeout = d
		return nil
	}
}

// WithReceiveTimeout 设置 STUN 接收超时
func WithReceiveTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("receive timeout must not be negative: %v", d)
		}
		o.receiveTimeout = d
		return nil
	}
}

// WithBufferSize 设置 TLS-HTTP 读缓冲大小
func WithBufferSize(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("buffer size must be positive: %d", n)
		}
		o.bufferSize = n
		return nil
	}
}

// WithUserAgent 设置 HTTP 请求的 User-Agent
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		if ua == "" {
			return fmt.Errorf("user agent must not be empty")
		}
		o.userAgent = ua
		return nil
	}
}

// WithRandom 注入 STUN 事务 ID 的随机源
//
// 默认使用 crypto/rand；测试中注入确定性的源即可复现事务 ID。
func WithRandom(r io.Reader) Option {
	return func(o *options) error {
		if r == nil {
			return fmt.Errorf("random source must not be nil")
		}
		o.random = r
		return nil
	}
}

// WithResolver 注入 DNS 解析器
func WithResolver(r *net.Resolver) Option {
	return func(o *options) error {
		o.resolver = r
		return nil
	}
}

// WithOracles 指定本次使用的 oracle 集合（替换内置注册表）
//
// 集合按端点去重，重复端点返回 ErrDuplicateOracle。
func WithOracles(oracles ...Oracle) Option {
	return func(o *options) error {
		if len(oracles) == 0 {
			return ErrEmptyOracleSet
		}
		o.oracles = oracles
		return nil
	}
}
