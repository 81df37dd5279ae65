package tlshttp

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkttu/ReflectionIPAddress/internal/core/oracle"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// ============================================================================
//                              测试用 TCP 服务器
// ============================================================================

// testServer 在环回地址上按脚本回应的单连接服务器
//
// respond 收到请求行后被调用一次；返回前连接保持打开。
type testServer struct {
	ln     net.Listener
	wg     sync.WaitGroup
	closed sync.Once
}

func startTestServer(t *testing.T, respond func(conn net.Conn)) *testServer {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				// 读掉请求头再回应
				br := bufio.NewReader(conn)
				for {
					line, err := br.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				respond(conn)
			}()
		}
	}()

	t.Cleanup(s.Close)
	return s
}

func (s *testServer) Close() {
	s.closed.Do(func() {
		_ = s.ln.Close()
		s.wg.Wait()
	})
}

// descriptor 构造指向测试服务器的 http oracle 描述符
func (s *testServer) descriptor(t *testing.T) oracle.Descriptor {
	t.Helper()
	d, err := oracle.NewDescriptor("http://"+s.ln.Addr().String()+"/", types.TransportTLSHTTP)
	require.NoError(t, err)
	return d
}

// ============================================================================
//                              crlfScanner 测试
// ============================================================================

func TestCRLFScanner(t *testing.T) {
	feed := func(s string) bool {
		var sc crlfScanner
		hit := false
		for i := 0; i < len(s); i++ {
			if sc.Feed(s[i]) {
				hit = true
			}
		}
		return hit
	}

	assert.True(t, feed("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\n"))
	assert.True(t, feed("\r\n\r\n"))
	assert.False(t, feed("\r\n\r"))
	assert.False(t, feed("no terminator here\n\n"))
	// CR LF CR CR LF CR LF：前缀干扰后仍能命中
	assert.True(t, feed("\r\n\r\r\n\r\n"))
}

func TestCRLFScanner_SplitAcrossFeeds(t *testing.T) {
	// 终结符分多次到达（模拟跨 Read 边界）
	var sc crlfScanner
	for _, b := range []byte("HTTP/1.1 200 OK\r") {
		assert.False(t, sc.Feed(b))
	}
	assert.False(t, sc.Feed('\n'))
	assert.False(t, sc.Feed('\r'))
	assert.True(t, sc.Feed('\n'))
}

// ============================================================================
//                              Communicate 测试
// ============================================================================

func TestCommunicate_ReturnsBodyStream(t *testing.T) {
	srv := startTestServer(t, func(conn net.Conn) {
		_, _ = io.WriteString(conn,
			"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\n203.0.113.7\n")
	})

	c := New(nil, "")
	stream, err := c.Communicate(context.Background(), srv.descriptor(t), types.FamilyIPv4, 0)
	require.NoError(t, err)
	require.NotNil(t, stream)
	defer stream.Close()

	// 流定位在头部终结符之后
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7\n", string(body))
}

func TestCommunicate_NoTerminatorIsSentinel(t *testing.T) {
	// 连上了但对端关闭前没有出现头部终结符：返回空哨兵而非错误
	srv := startTestServer(t, func(conn net.Conn) {
		_, _ = io.WriteString(conn, "garbage without terminator")
	})

	c := New(nil, "")
	stream, err := c.Communicate(context.Background(), srv.descriptor(t), types.FamilyIPv4, 0)
	assert.NoError(t, err)
	// 哨兵必须是接口层面的 nil，调用方可以直接与 nil 比较
	assert.True(t, stream == nil)
}

func TestCommunicate_NoTerminatorManyIterations(t *testing.T) {
	// 空哨兵路径上反复调用不泄漏连接
	srv := startTestServer(t, func(conn net.Conn) {
		_, _ = io.WriteString(conn, "no headers")
	})

	c := New(nil, "")
	for i := 0; i < 50; i++ {
		stream, err := c.Communicate(context.Background(), srv.descriptor(t), types.FamilyIPv4, 0)
		require.NoError(t, err)
		require.Nil(t, stream)
	}
}

func TestCommunicate_RequestShape(t *testing.T) {
	// 校验写出的请求行与头部
	reqCh := make(chan string, 1)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		reqCh <- string(buf[:n])
		_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\n\r\nok")
	}()

	d, err := oracle.NewDescriptor("http://"+ln.Addr().String()+"/json?format=text", types.TransportTLSHTTP)
	require.NoError(t, err)

	c := New(nil, "test-agent/1.0")
	stream, err := c.Communicate(context.Background(), d, types.FamilyIPv4, 0)
	require.NoError(t, err)
	require.NotNil(t, stream)
	defer stream.Close()

	req := <-reqCh
	host, _, _ := net.SplitHostPort(ln.Addr().String())
	assert.True(t, strings.HasPrefix(req, "GET /json?format=text HTTP/1.1\r\n"), "request line: %q", req)
	assert.Contains(t, req, "Host: "+host+"\r\n")
	assert.Contains(t, req, "User-Agent: test-agent/1.0\r\n")
	assert.Contains(t, req, "Accept: application/json\r\n")
	assert.Contains(t, req, "Connection: close\r\n")
	assert.True(t, strings.HasSuffix(req, "\r\n\r\n"))
}

func TestCommunicate_UnsupportedScheme(t *testing.T) {
	d, err := oracle.NewDescriptor("stun://stun.example.com:3478", types.TransportSTUN)
	require.NoError(t, err)

	c := New(nil, "")
	_, err = c.Communicate(context.Background(), d, types.FamilyIPv4, 0)
	assert.ErrorIs(t, err, types.ErrUnsupportedScheme)
}

func TestCommunicate_NoAddressForFamily(t *testing.T) {
	// 环回 v4 字面量不满足 v6 请求
	srv := startTestServer(t, func(conn net.Conn) {})

	c := New(nil, "")
	_, err := c.Communicate(context.Background(), srv.descriptor(t), types.FamilyIPv6, 0)
	assert.ErrorIs(t, err, types.ErrNoAddressForFamily)
}

func TestCommunicate_CancelClosesPromptly(t *testing.T) {
	// 对端挂住不回应；取消 ctx 应立即中断读取
	srv := startTestServer(t, func(conn net.Conn) {
		time.Sleep(5 * time.Second)
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	c := New(nil, "")
	start := time.Now()
	_, err := c.Communicate(ctx, srv.descriptor(t), types.FamilyIPv4, 0)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 2*time.Second, "cancellation must not wait for the peer")
}
