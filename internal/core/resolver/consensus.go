package resolver

import (
	"net/netip"

	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// Consensus 在结果集中做多数表决
//
// 按地址分组取最大组的代表；计数相同的组之间，取首个成员
// 在结果集中出现更早的那组。输入为空时返回 (零值, false)。
// 纯函数，无 I/O、无并发。
func Consensus(results types.Results) (netip.Addr, bool) {
	if len(results) == 0 {
		return netip.Addr{}, false
	}

	counts := make(map[netip.Addr]int, len(results))
	for _, r := range results {
		counts[r.Addr]++
	}

	// 按首次出现顺序遍历候选，严格大于才更新，
	// 平票自然落在更早出现的那组
	var (
		best      netip.Addr
		bestCount int
		visited   = make(map[netip.Addr]struct{}, len(counts))
	)
	for _, r := range results {
		if _, ok := visited[r.Addr]; ok {
			continue
		}
		visited[r.Addr] = struct{}{}
		if counts[r.Addr] > bestCount {
			best = r.Addr
			bestCount = counts[r.Addr]
		}
	}
	return best, true
}
