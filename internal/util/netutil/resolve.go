// Package netutil 提供地址族相关的解析辅助函数
package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// ResolveFamily 将主机名解析为指定地址族的候选地址列表
//
// host 为 IP 字面量时直接校验地址族，不发起 DNS 查询。
// 没有任何匹配地址族的记录时返回 types.ErrNoAddressForFamily。
func ResolveFamily(ctx context.Context, resolver *net.Resolver, host string, family types.AddressFamily) ([]netip.Addr, error) {
	if !family.Valid() {
		return nil, types.ErrUnsupportedFamily
	}

	// IP 字面量：跳过 DNS
	if addr, err := netip.ParseAddr(host); err == nil {
		if !family.Matches(addr) {
			return nil, fmt.Errorf("%s is not %s: %w", host, family, types.ErrNoAddressForFamily)
		}
		return []netip.Addr{addr.Unmap()}, nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupNetIP(ctx, family.LookupNetwork(), host)
	if err != nil {
		// 系统解析器以 "no such host" 报告缺失的记录类型
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%s: %w", host, types.ErrNoAddressForFamily)
		}
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	// LookupNetIP("ip4") 在某些平台返回 4in6 形式，统一 Unmap 后再过滤
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		a = a.Unmap()
		if family.Matches(a) {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", host, types.ErrNoAddressForFamily)
	}
	return out, nil
}
