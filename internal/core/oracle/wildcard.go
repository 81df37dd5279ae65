package oracle

import (
	"net/netip"
	"strings"
)

// WildcardDomain 将地址格式化为通配子域名标签
//
// 例如 203.0.113.7 + "sslip.io" → "203-0-113-7.sslip.io"，
// IPv6 的冒号同样替换为横线（"::" 自然变成 "--"）。
func WildcardDomain(addr netip.Addr, base string) string {
	label := addr.Unmap().String()
	label = strings.ReplaceAll(label, ".", "-")
	label = strings.ReplaceAll(label, ":", "-")
	return label + "." + strings.TrimPrefix(base, ".")
}
