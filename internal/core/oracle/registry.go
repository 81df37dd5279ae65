package oracle

import "github.com/rkttu/ReflectionIPAddress/pkg/types"

// 内置 oracle 注册表
//
// oracle 集合是编译期已知的封闭集合，按地址族列出端点变体。
// HTTP oracle 的端点域名直接区分地址族（ipv4./ipv6. 子域），
// STUN oracle 的地址族由解析阶段的 DNS 记录选择决定。

// builtinHTTP 内置 HTTP oracle 表
var builtinHTTP = []struct {
	v4, v6 string
	parse  ParseFunc
}{
	{v4: "https://api.ipify.org/", v6: "https://api6.ipify.org/", parse: ParseTextAddress},
	{v4: "https://ipv4.icanhazip.com/", v6: "https://ipv6.icanhazip.com/", parse: ParseTextAddress},
	{v4: "https://ipv4.seeip.org/", v6: "https://ipv6.seeip.org/", parse: ParseTextAddress},
	{v4: "https://v4.ident.me/json", v6: "https://v6.ident.me/json", parse: JSONParser("address")},
}

// builtinSTUN 内置 STUN oracle 表（地址族无关，解析时按族选择记录）
var builtinSTUN = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun.cloudflare.com:3478",
}

// Builtin 返回内置 oracle 条目（按地址族选择端点变体）
//
// 表中的端点都是合法 URL，构造失败属于编程错误，直接 panic。
func Builtin(family types.AddressFamily) []Entry {
	entries := make([]Entry, 0, len(builtinHTTP)+len(builtinSTUN))

	for _, svc := range builtinHTTP {
		raw := svc.v4
		if family == types.FamilyIPv6 {
			raw = svc.v6
		}
		desc, err := NewDescriptor(raw, types.TransportTLSHTTP)
		if err != nil {
			panic("oracle: bad builtin endpoint " + raw + ": " + err.Error())
		}
		entries = append(entries, Entry{Desc: desc, Parse: svc.parse})
	}

	for _, raw := range builtinSTUN {
		desc, err := NewDescriptor(raw, types.TransportSTUN)
		if err != nil {
			panic("oracle: bad builtin endpoint " + raw + ": " + err.Error())
		}
		entries = append(entries, Entry{Desc: desc})
	}

	return entries
}
