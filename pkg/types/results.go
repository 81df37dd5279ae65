package types

import "net/netip"

// ============================================================================
//                              Result - 单次查询结果
// ============================================================================

// Result 单个 oracle 的查询结果
type Result struct {
	// Oracle oracle 标识（规范化的端点字符串）
	Oracle string

	// Addr oracle 观察到的外部地址
	Addr netip.Addr
}

// Results 有序的查询结果集合
//
// 顺序保留 oracle 的派发顺序，而非完成顺序，
// 使共识计算的平票裁决在多次运行间保持确定。
type Results []Result

// Lookup 按 oracle 标识查找结果
func (rs Results) Lookup(oracle string) (netip.Addr, bool) {
	for _, r := range rs {
		if r.Oracle == oracle {
			return r.Addr, true
		}
	}
	return netip.Addr{}, false
}

// Addrs 返回所有结果地址（保持顺序）
func (rs Results) Addrs() []netip.Addr {
	out := make([]netip.Addr, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Addr)
	}
	return out
}
