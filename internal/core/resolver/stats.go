package resolver

import "sync/atomic"

// Stats 查询计数器
//
// 使用原子操作实现并发安全的计数，所有查询任务直接累加。
type Stats struct {
	dispatched atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	timeouts   atomic.Int64
}

// StatsSnapshot 某一时刻的统计快照
type StatsSnapshot struct {
	// Dispatched 派发的查询总数
	Dispatched int64

	// Succeeded 产出了非空地址的查询数
	Succeeded int64

	// Failed 失败或空结果的查询数（不含超时）
	Failed int64

	// Timeouts 因超时失败的查询数
	Timeouts int64
}

// Snapshot 读取当前计数
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Dispatched: s.dispatched.Load(),
		Succeeded:  s.succeeded.Load(),
		Failed:     s.failed.Load(),
		Timeouts:   s.timeouts.Load(),
	}
}
