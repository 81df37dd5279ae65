package resolver

import (
	"context"
	"io"
	"net"
	"net/netip"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkttu/ReflectionIPAddress/internal/core/oracle"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/stunc"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/tlshttp"
	"github.com/rkttu/ReflectionIPAddress/internal/util/logger"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

func TestMain(m *testing.M) {
	// 竞速测试会故意制造大量失败 oracle，压掉调试输出
	log = logger.Discard()
	os.Exit(m.Run())
}

// ============================================================================
//                              测试辅助
// ============================================================================

func newService(cfg Config) *Service {
	return NewService(cfg, tlshttp.New(nil, ""), stunc.New(nil, nil))
}

// startTextOracle 启动一个返回固定纯文本地址的环回 HTTP oracle
//
// delay 大于 0 时回应前先等待（模拟慢 oracle）。
func startTextOracle(t *testing.T, body string, delay time.Duration) oracle.Entry {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 1024)
				_, _ = conn.Read(buf)
				if delay > 0 {
					time.Sleep(delay)
				}
				_, _ = io.WriteString(conn,
					"HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nConnection: close\r\n\r\n"+body)
			}()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		wg.Wait()
	})

	desc, err := oracle.NewDescriptor("http://"+ln.Addr().String()+"/", types.TransportTLSHTTP)
	require.NoError(t, err)
	return oracle.Entry{Desc: desc, Parse: oracle.ParseTextAddress}
}

// deadOracle 返回指向已关闭端口的 oracle（连接拒绝）
func deadOracle(t *testing.T) oracle.Entry {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	desc, err := oracle.NewDescriptor("http://"+addr+"/", types.TransportTLSHTTP)
	require.NoError(t, err)
	return oracle.Entry{Desc: desc, Parse: oracle.ParseTextAddress}
}

// hangingOracle 返回接受连接但永不回应的 oracle
func hangingOracle(t *testing.T) oracle.Entry {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// 连接保持打开，什么都不发
			defer conn.Close()
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })

	desc, err := oracle.NewDescriptor("http://"+ln.Addr().String()+"/", types.TransportTLSHTTP)
	require.NoError(t, err)
	return oracle.Entry{Desc: desc, Parse: oracle.ParseTextAddress}
}

// ============================================================================
//                              参数校验测试
// ============================================================================

func TestReflect_EmptyOracleSet(t *testing.T) {
	svc := newService(DefaultConfig())
	_, err := svc.Reflect(context.Background(), nil, types.FamilyIPv4)
	assert.ErrorIs(t, err, types.ErrEmptyOracleSet)

	_, err = svc.ReflectAll(context.Background(), nil, types.FamilyIPv4)
	assert.ErrorIs(t, err, types.ErrEmptyOracleSet)
}

func TestReflect_BadFamily(t *testing.T) {
	svc := newService(DefaultConfig())
	entry := startTextOracle(t, "203.0.113.7\n", 0)

	_, err := svc.Reflect(context.Background(), []oracle.Entry{entry}, types.AddressFamily(42))
	assert.ErrorIs(t, err, types.ErrUnsupportedFamily)
}

// ============================================================================
//                              Reflect（竞速）测试
// ============================================================================

func TestReflect_FirstSuccess(t *testing.T) {
	entry := startTextOracle(t, "203.0.113.7\n", 0)

	svc := newService(DefaultConfig())
	addr, err := svc.Reflect(context.Background(), []oracle.Entry{entry}, types.FamilyIPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.7"), addr)
}

func TestReflect_FastestWins(t *testing.T) {
	// 快的 oracle 胜出，慢的照常跑完但结果被丢弃
	slow := startTextOracle(t, "198.51.100.99\n", 500*time.Millisecond)
	fast := startTextOracle(t, "203.0.113.7\n", 0)

	svc := newService(DefaultConfig())
	start := time.Now()
	addr, err := svc.Reflect(context.Background(), []oracle.Entry{slow, fast}, types.FamilyIPv4)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.7"), addr)
	assert.Less(t, elapsed, 400*time.Millisecond, "winner must not wait for the slow oracle")
}

func TestReflect_SkipsFailedOracle(t *testing.T) {
	// 坏 oracle 被静默跳过，不影响整体调用
	bad := deadOracle(t)
	good := startTextOracle(t, "203.0.113.7\n", 0)

	svc := newService(DefaultConfig())
	addr, err := svc.Reflect(context.Background(), []oracle.Entry{bad, good}, types.FamilyIPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.7"), addr)
}

func TestReflect_AllFail(t *testing.T) {
	svc := newService(DefaultConfig())
	_, err := svc.Reflect(context.Background(),
		[]oracle.Entry{deadOracle(t), deadOracle(t)}, types.FamilyIPv4)
	assert.ErrorIs(t, err, types.ErrNoConsensus)
}

func TestReflect_QueryTimeoutBounds(t *testing.T) {
	// 所有 oracle 都挂住时，调用在 ~T 内失败
	cfg := DefaultConfig()
	cfg.QueryTimeout = 300 * time.Millisecond
	svc := newService(cfg)

	start := time.Now()
	_, err := svc.Reflect(context.Background(),
		[]oracle.Entry{hangingOracle(t), hangingOracle(t)}, types.FamilyIPv4)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, types.ErrNoConsensus)
	assert.Less(t, elapsed, 1500*time.Millisecond, "must fail within ~QueryTimeout")
}

func TestReflect_CallerCancelPropagates(t *testing.T) {
	// 两个 oracle 都在飞行中时取消调用方 ctx，Reflect 立即失败
	cfg := DefaultConfig()
	cfg.QueryTimeout = 10 * time.Second
	svc := newService(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := svc.Reflect(ctx,
		[]oracle.Entry{hangingOracle(t), hangingOracle(t)}, types.FamilyIPv4)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 2*time.Second, "cancellation must not wait for query timeout")
}

// ============================================================================
//                              ReflectAll（收集）测试
// ============================================================================

func TestReflectAll(t *testing.T) {
	a := startTextOracle(t, "203.0.113.7\n", 0)
	b := startTextOracle(t, "203.0.113.7\n", 0)
	c := startTextOracle(t, "198.51.100.99\n", 0)

	svc := newService(DefaultConfig())
	results, err := svc.ReflectAll(context.Background(), []oracle.Entry{a, b, c}, types.FamilyIPv4)
	require.NoError(t, err)

	// 结果数不超过 oracle 数，每个条目地址非空
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Addr.IsValid())
	}

	// 结果保持派发顺序
	assert.Equal(t, a.Identity(), results[0].Oracle)
	assert.Equal(t, b.Identity(), results[1].Oracle)
	assert.Equal(t, c.Identity(), results[2].Oracle)

	addr, ok := results.Lookup(c.Identity())
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("198.51.100.99"), addr)
}

func TestReflectAll_PartialFailure(t *testing.T) {
	// 失败的 oracle 在结果集中没有条目
	good := startTextOracle(t, "203.0.113.7\n", 0)
	bad := deadOracle(t)

	svc := newService(DefaultConfig())
	results, err := svc.ReflectAll(context.Background(), []oracle.Entry{bad, good}, types.FamilyIPv4)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, good.Identity(), results[0].Oracle)
}

func TestReflectAll_EmptyResultIsValid(t *testing.T) {
	// 全部失败时返回空结果集而非错误，共识与否留给调用方判断
	svc := newService(DefaultConfig())
	results, err := svc.ReflectAll(context.Background(),
		[]oracle.Entry{deadOracle(t), deadOracle(t)}, types.FamilyIPv4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// ============================================================================
//                              统计测试
// ============================================================================

func TestStats(t *testing.T) {
	good := startTextOracle(t, "203.0.113.7\n", 0)
	bad := deadOracle(t)

	svc := newService(DefaultConfig())
	_, err := svc.ReflectAll(context.Background(), []oracle.Entry{good, bad}, types.FamilyIPv4)
	require.NoError(t, err)

	snap := svc.Stats()
	assert.Equal(t, int64(2), snap.Dispatched)
	assert.Equal(t, int64(1), snap.Succeeded)
	assert.Equal(t, int64(1), snap.Failed)
}
