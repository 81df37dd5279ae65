// Package reflectionip 查询本机的外部可见 IP 地址
//
// 通过并发竞速多个独立的第三方 "address oracle"（HTTPS 反射服务
// 与 STUN 服务器）得到可信的答案：任何单个 oracle 变慢、不可达
// 或说谎都不会影响整体调用。
//
// # 快速开始
//
//	import "github.com/rkttu/ReflectionIPAddress"
//
//	// 最先成功的 oracle 胜出
//	addr, err := reflectionip.Reflect(ctx, types.FamilyIPv4)
//
//	// 收集所有 oracle 的回答并做多数表决
//	addr, err := reflectionip.ReflectConsensus(ctx, types.FamilyIPv4)
//
// # 自定义 oracle
//
//	o, _ := reflectionip.NewTextOracle("https://ipv4.icanhazip.com/")
//	s, _ := reflectionip.NewSTUNOracle("stun:stun.l.google.com:19302")
//	addr, err := reflectionip.Reflect(ctx, types.FamilyIPv4,
//	    reflectionip.WithOracles(o, s),
//	)
//
// oracle 查询的超时、随机源与 DNS 解析器都可以通过 Option 注入，
// 参见 options.go。日志经由 REFLECTIP_LOG_LEVEL 环境变量配置。
package reflectionip
