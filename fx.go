package reflectionip

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module 返回可嵌入宿主 fx 应用的模块
//
// 提供 *Client；宿主应用按需 fx.Invoke 使用它。
func Module(opts ...Option) fx.Option {
	return fx.Options(
		fx.Provide(func() (*Client, error) {
			return New(opts...)
		}),
	)
}

// FxLogger 返回 fx 事件日志配置
//
// verbose 为 false 时静默 fx 自身的装配日志。
func FxLogger(verbose bool) fx.Option {
	if !verbose {
		return fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		})
	}
	return fx.WithLogger(func() fxevent.Logger {
		logger, _ := zap.NewDevelopment()
		return &fxevent.ZapLogger{Logger: logger}
	})
}
