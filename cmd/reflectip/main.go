// Package main 提供 reflectip 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"time"

	"go.uber.org/fx"

	reflectionip "github.com/rkttu/ReflectionIPAddress"
	"github.com/rkttu/ReflectionIPAddress/internal/util/logger"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

var log = logger.GlobalLogger()

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 查询参数
	// ─────────────────────────────────────────────────────────────────────
	useIPv6   = flag.Bool("6", false, "查询 IPv6 地址（默认 IPv4）")
	allMode   = flag.Bool("all", false, "列出所有 oracle 的回答")
	consensus = flag.Bool("consensus", false, "对所有回答做多数表决")
	timeout   = flag.Duration("timeout", 5*time.Second, "单次 oracle 查询超时")
	wildcard  = flag.String("wildcard", "", "附加输出通配子域名（如 sslip.io）")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	verbose     = flag.Bool("verbose", false, "输出 fx 装配日志")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

// version 构建时通过 -ldflags 注入
var version = "dev"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("reflectip", version)
		return
	}

	family := types.FamilyIPv4
	if *useIPv6 {
		family = types.FamilyIPv6
	}

	app := fx.New(
		reflectionip.Module(
			reflectionip.WithQueryTimeout(*timeout),
		),
		reflectionip.FxLogger(*verbose),
		fx.Invoke(func(lc fx.Lifecycle, shutdowner fx.Shutdowner, client *reflectionip.Client) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						code := run(client, family)
						_ = shutdowner.Shutdown(fx.ExitCode(code))
					}()
					return nil
				},
			})
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Error("start failed", "err", err)
		os.Exit(1)
	}

	sig := <-app.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	_ = app.Stop(stopCtx)

	os.Exit(sig.ExitCode)
}

// run 执行一次查询并打印结果，返回进程退出码
func run(client *reflectionip.Client, family types.AddressFamily) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *allMode:
		results, err := client.ReflectAll(ctx, family)
		if err != nil {
			log.Error("reflect failed", "err", err)
			return 1
		}
		for _, r := range results {
			fmt.Printf("%s\t%s\n", r.Oracle, r.Addr)
		}
		return 0

	case *consensus:
		addr, err := client.ReflectConsensus(ctx, family)
		if err != nil {
			log.Error("reflect failed", "err", err)
			return 1
		}
		printAddr(addr)
		return 0

	default:
		addr, err := client.Reflect(ctx, family)
		if err != nil {
			log.Error("reflect failed", "err", err)
			return 1
		}
		printAddr(addr)
		return 0
	}
}

// printAddr 打印地址，按需附加通配子域名
func printAddr(addr netip.Addr) {
	fmt.Println(addr)
	if *wildcard != "" {
		fmt.Println(reflectionip.WildcardDomain(addr, *wildcard))
	}
}
