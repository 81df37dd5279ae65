// Package resolver 实现 oracle 查询的竞速编排与共识计算
//
// 对一组 oracle 并发各发一次查询：Reflect 取最先成功的地址，
// ReflectAll 等全部结束后收集所有成功结果。单个 oracle 的失败
// （超时、协议错误、连接错误）在这里被吞掉，只降低该 oracle 的
// 贡献，绝不让整个调用失败。
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rkttu/ReflectionIPAddress/internal/core/oracle"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/stunc"
	"github.com/rkttu/ReflectionIPAddress/internal/core/transport/tlshttp"
	"github.com/rkttu/ReflectionIPAddress/internal/util/logger"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// 包级别日志实例
var log = logger.Logger("resolver")

// Config 编排器配置
type Config struct {
	// QueryTimeout 单次 oracle 查询的超时；0 表示只受调用方 ctx 约束
	QueryTimeout time.Duration

	// SendTimeout STUN 发送超时
	SendTimeout time.Duration

	// ReceiveTimeout STUN 接收超时
	ReceiveTimeout time.Duration

	// BufferSize TLS-HTTP 读缓冲大小
	BufferSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueryTimeout:   5 * time.Second,
		SendTimeout:    3 * time.Second,
		ReceiveTimeout: 3 * time.Second,
		BufferSize:     tlshttp.DefaultBufferSize,
	}
}

// Service 竞速编排器
type Service struct {
	cfg  Config
	http *tlshttp.Communicator
	stun *stunc.Communicator

	stats Stats
}

// NewService 创建编排器
func NewService(cfg Config, http *tlshttp.Communicator, stun *stunc.Communicator) *Service {
	return &Service{cfg: cfg, http: http, stun: stun}
}

// Stats 返回累计查询统计
func (s *Service) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// outcome 单个查询任务的完成通知
type outcome struct {
	id   string
	addr netip.Addr
	err  error
}

// Reflect 竞速查询，返回最先成功的非空地址
//
// 失败的任务被静默跳过，继续等待其余任务；胜出后落败的任务
// 继续在后台跑完（不主动中止），结果被丢弃。所有任务都失败或
// 都没有地址时返回 types.ErrNoConsensus。调用方取消优先于一切。
func (s *Service) Reflect(ctx context.Context, entries []oracle.Entry, family types.AddressFamily) (netip.Addr, error) {
	if err := validate(entries, family); err != nil {
		return netip.Addr{}, err
	}

	// 缓冲到任务数，落败任务发送完成通知时永不阻塞
	ch := make(chan outcome, len(entries))
	for _, e := range entries {
		e := e
		go func() {
			addr, err := s.query(ctx, e, family)
			ch <- outcome{id: e.Identity(), addr: addr, err: err}
		}()
	}

	// 单一协调循环逐个排空完成通知，任务本身不接触任何共享记账
	for remaining := len(entries); remaining > 0; remaining-- {
		out := <-ch
		if out.err != nil {
			if ctx.Err() != nil {
				return netip.Addr{}, ctx.Err()
			}
			log.Debug("oracle query failed", "oracle", out.id, "err", out.err)
			continue
		}
		if out.addr.IsValid() {
			log.Info("address resolved", "oracle", out.id, "addr", out.addr)
			return out.addr, nil
		}
		log.Debug("oracle returned no address", "oracle", out.id)
	}

	return netip.Addr{}, fmt.Errorf("%d oracle(s) exhausted: %w", len(entries), types.ErrNoConsensus)
}

// ReflectAll 等待全部任务结束，收集所有成功结果
//
// 返回的 Results 按 oracle 派发顺序排列，只包含产出了非空地址的
// 任务；空结果集是合法返回值，是否构成共识留给调用方判断。
func (s *Service) ReflectAll(ctx context.Context, entries []oracle.Entry, family types.AddressFamily) (types.Results, error) {
	if err := validate(entries, family); err != nil {
		return nil, err
	}

	// 每个任务写自己的槽位，互不干扰
	slots := make([]outcome, len(entries))

	var g errgroup.Group
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			addr, err := s.query(ctx, e, family)
			slots[i] = outcome{id: e.Identity(), addr: addr, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	results := make(types.Results, 0, len(entries))
	for _, out := range slots {
		if out.err != nil {
			log.Debug("oracle query failed", "oracle", out.id, "err", out.err)
			continue
		}
		if out.addr.IsValid() {
			results = append(results, types.Result{Oracle: out.id, Addr: out.addr})
		}
	}
	return results, nil
}

// validate 校验调用方输入
func validate(entries []oracle.Entry, family types.AddressFamily) error {
	if len(entries) == 0 {
		return types.ErrEmptyOracleSet
	}
	if !family.Valid() {
		return fmt.Errorf("family %v: %w", family, types.ErrUnsupportedFamily)
	}
	return nil
}

// query 执行单个 oracle 查询，叠加单次查询超时
//
// 超时与调用方取消同时发生时的归类是确定的：先看调用方 ctx，
// 已取消则透传其错误；否则把 deadline 触发归一为 types.ErrTimeout。
func (s *Service) query(ctx context.Context, e oracle.Entry, family types.AddressFamily) (netip.Addr, error) {
	s.stats.dispatched.Add(1)

	qctx := ctx
	cancel := func() {}
	if s.cfg.QueryTimeout > 0 {
		qctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
	}
	defer cancel()

	addr, err := s.dispatch(qctx, e, family)
	if err != nil {
		if ctx.Err() != nil {
			s.stats.failed.Add(1)
			return netip.Addr{}, ctx.Err()
		}
		if errors.Is(qctx.Err(), context.DeadlineExceeded) || errors.Is(err, types.ErrTimeout) {
			s.stats.timeouts.Add(1)
			return netip.Addr{}, fmt.Errorf("oracle %s: %w", e.Identity(), types.ErrTimeout)
		}
		s.stats.failed.Add(1)
		return netip.Addr{}, err
	}

	if addr.IsValid() {
		s.stats.succeeded.Add(1)
	} else {
		s.stats.failed.Add(1)
	}
	return addr, nil
}

// dispatch 按传输类型选择通信器
func (s *Service) dispatch(ctx context.Context, e oracle.Entry, family types.AddressFamily) (netip.Addr, error) {
	switch e.Desc.Transport() {
	case types.TransportTLSHTTP:
		stream, err := s.http.Communicate(ctx, e.Desc, family, s.cfg.BufferSize)
		if err != nil {
			return netip.Addr{}, err
		}
		if stream == nil {
			// 连上了但没有可解析的头部
			return netip.Addr{}, nil
		}
		defer func() { _ = stream.Close() }()

		if e.Parse == nil {
			return netip.Addr{}, fmt.Errorf("oracle %s has no body parser", e.Identity())
		}
		return e.Parse(stream)

	case types.TransportSTUN:
		ep, err := s.stun.Communicate(ctx, e.Desc, family, s.cfg.SendTimeout, s.cfg.ReceiveTimeout)
		if err != nil {
			return netip.Addr{}, err
		}
		return ep.Addr, nil

	default:
		return netip.Addr{}, fmt.Errorf("oracle %s: transport %v: %w", e.Identity(), e.Desc.Transport(), types.ErrUnsupportedScheme)
	}
}
