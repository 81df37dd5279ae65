// Package types 定义 ReflectionIPAddress 的公共值类型
//
// 这些类型在各子系统之间传递，不依赖任何内部包。
package types

import (
	"fmt"
	"net/netip"
)

// ============================================================================
//                              AddressFamily - 地址族
// ============================================================================

// AddressFamily 请求的 IP 地址族
type AddressFamily int

const (
	// FamilyIPv4 IPv4 地址族
	FamilyIPv4 AddressFamily = iota

	// FamilyIPv6 IPv6 地址族
	FamilyIPv6
)

// String 返回地址族名称
func (f AddressFamily) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Valid 检查地址族是否为支持的取值
func (f AddressFamily) Valid() bool {
	return f == FamilyIPv4 || f == FamilyIPv6
}

// Network 返回 net.Dial 使用的地址族限定网络名
//
// base 为 "tcp" 或 "udp"，返回 "tcp4"/"tcp6" 等。
// 显式限定地址族，避免操作系统静默回退到另一个地址族。
func (f AddressFamily) Network(base string) string {
	if f == FamilyIPv6 {
		return base + "6"
	}
	return base + "4"
}

// LookupNetwork 返回 net.Resolver.LookupNetIP 使用的网络名（"ip4"/"ip6"）
func (f AddressFamily) LookupNetwork() string {
	if f == FamilyIPv6 {
		return "ip6"
	}
	return "ip4"
}

// Matches 检查地址是否属于该地址族
func (f AddressFamily) Matches(addr netip.Addr) bool {
	if f == FamilyIPv6 {
		return addr.Is6() && !addr.Is4In6()
	}
	return addr.Is4() || addr.Is4In6()
}

// ============================================================================
//                              TransportKind - 传输类型
// ============================================================================

// TransportKind 访问 oracle 使用的传输类型
type TransportKind int

const (
	// TransportTLSHTTP 基于 TCP + TLS 的 HTTP/1.1 传输
	TransportTLSHTTP TransportKind = iota

	// TransportSTUN 基于 UDP 的 STUN Binding 传输
	TransportSTUN
)

// String 返回传输类型名称
func (k TransportKind) String() string {
	switch k {
	case TransportTLSHTTP:
		return "tls-http"
	case TransportSTUN:
		return "stun"
	default:
		return fmt.Sprintf("transport(%d)", int(k))
	}
}

// ============================================================================
//                              MappedEndpoint - 映射端点
// ============================================================================

// MappedEndpoint STUN 服务器观察到的外部端点
type MappedEndpoint struct {
	// Addr 外部 IP 地址
	Addr netip.Addr

	// Port 外部端口
	Port uint16
}

// String 返回 "ip:port" 形式（IPv6 地址加方括号）
func (e MappedEndpoint) String() string {
	return netip.AddrPortFrom(e.Addr, e.Port).String()
}

// IsValid 检查端点是否携带有效地址
func (e MappedEndpoint) IsValid() bool {
	return e.Addr.IsValid()
}
