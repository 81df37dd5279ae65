// Package tlshttp 实现基于裸 socket 的 TLS-HTTP oracle 通信
//
// 不使用高层 HTTP 客户端：自行建立 TCP 连接（显式绑定地址族）、
// 完成 TLS 握手、写出一条手工拼装的 HTTP/1.1 请求，然后逐字节
// 扫描到头部终结符为止，把定位在响应体起始处的流交还给调用方。
package tlshttp

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"

	"github.com/rkttu/ReflectionIPAddress/internal/core/oracle"
	"github.com/rkttu/ReflectionIPAddress/internal/util/logger"
	"github.com/rkttu/ReflectionIPAddress/internal/util/netutil"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// 包级别日志实例
var log = logger.Logger("tlshttp")

const (
	// DefaultBufferSize 默认读缓冲大小
	DefaultBufferSize = 4096

	// DefaultUserAgent 请求使用的固定 User-Agent
	DefaultUserAgent = "ReflectionIPAddress/1.0"

	httpsPort uint16 = 443
	httpPort  uint16 = 80
)

// Communicator TLS-HTTP 通信器
type Communicator struct {
	resolver  *net.Resolver
	userAgent string
}

// New 创建 TLS-HTTP 通信器
//
// resolver 为 nil 时使用系统解析器，userAgent 为空时使用 DefaultUserAgent。
func New(resolver *net.Resolver, userAgent string) *Communicator {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Communicator{resolver: resolver, userAgent: userAgent}
}

// Communicate 向 oracle 发起一次请求，返回定位在响应体起始处的流
//
// 返回 (nil, nil) 表示连接成功但直到对端关闭都没有出现头部终结符
// （"连上了但没有可解析的头部"，与错误区分）。返回非 nil 流时，
// 关闭流的责任转移给调用方；其余所有退出路径都会释放连接。
//
// 每次调用恰好发起一条 TCP 连接、一次 TLS 握手，内部不做重试。
// 取消 ctx 会立即关闭底层 socket。
func (c *Communicator) Communicate(ctx context.Context, desc oracle.Descriptor, family types.AddressFamily, bufSize int) (io.ReadCloser, error) {
	scheme := desc.Scheme()
	if scheme != "https" && scheme != "http" {
		return nil, fmt.Errorf("oracle %s: %w", desc.Identity(), types.ErrUnsupportedScheme)
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	host := desc.Hostname()
	port := desc.Port(httpsPort)
	if scheme == "http" {
		port = desc.Port(httpPort)
	}

	addrs, err := netutil.ResolveFamily(ctx, c.resolver, host, family)
	if err != nil {
		return nil, err
	}
	target := netip.AddrPortFrom(addrs[0], port)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, family.Network("tcp"), target.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	// ctx 取消时立即关闭 socket，中断阻塞中的握手和读取
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	stream, err := c.exchange(ctx, conn, desc, scheme, host, bufSize)
	if err != nil || stream == nil {
		close(stop)
		_ = conn.Close()
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	log.Debug("header terminator found", "oracle", desc.Identity(), "addr", target)
	return &bodyStream{r: stream, conn: conn, stop: stop}, nil
}

// exchange 完成握手、写请求并扫描到头部终结符
//
// 返回 (nil, nil) 表示对端在终结符之前关闭了连接。
func (c *Communicator) exchange(ctx context.Context, conn net.Conn, desc oracle.Descriptor, scheme, host string, bufSize int) (io.Reader, error) {
	var stream io.ReadWriter = conn

	if scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
		}
		stream = tlsConn
	}

	request := "GET " + desc.RequestTarget() + " HTTP/1.1\r\n" +
		"Host: " + host + "\r\n" +
		"User-Agent: " + c.userAgent + "\r\n" +
		"Accept: application/json\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	if _, err := io.WriteString(stream, request); err != nil {
		return nil, fmt.Errorf("write request to %s: %w", host, err)
	}

	br := bufio.NewReaderSize(stream, bufSize)
	var scanner crlfScanner
	for {
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// 连上了但没有可解析的头部
				log.Debug("connection closed before header terminator", "oracle", desc.Identity())
				return nil, nil
			}
			return nil, fmt.Errorf("read headers from %s: %w", host, err)
		}
		if scanner.Feed(b) {
			return br, nil
		}
	}
}

// bodyStream 交还给调用方的响应体流
//
// Close 同时停掉 ctx 监视 goroutine 并关闭底层连接。
type bodyStream struct {
	r         io.Reader
	conn      net.Conn
	stop      chan struct{}
	closeOnce sync.Once
}

func (s *bodyStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *bodyStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.conn.Close()
	})
	return err
}
