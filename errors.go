package reflectionip

import "github.com/rkttu/ReflectionIPAddress/pkg/types"

// 公共错误定义
//
// 实际定义位于 pkg/types，这里以别名导出，方便调用方只导入根包。
var (
	// ────────────────────────────────────────────────────────────────────────
	// 参数校验错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrEmptyOracleSet oracle 集合为空
	ErrEmptyOracleSet = types.ErrEmptyOracleSet

	// ErrDuplicateOracle oracle 端点重复
	ErrDuplicateOracle = types.ErrDuplicateOracle

	// ErrUnsupportedScheme URI scheme 与传输类型不匹配
	ErrUnsupportedScheme = types.ErrUnsupportedScheme

	// ErrUnsupportedFamily 地址族不在支持范围内
	ErrUnsupportedFamily = types.ErrUnsupportedFamily

	// ────────────────────────────────────────────────────────────────────────
	// 网络错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoAddressForFamily DNS 没有所请求地址族的记录
	ErrNoAddressForFamily = types.ErrNoAddressForFamily

	// ErrTimeout 发送/接收/单次查询超时
	ErrTimeout = types.ErrTimeout

	// ErrMalformedResponse 响应格式错误
	ErrMalformedResponse = types.ErrMalformedResponse

	// ────────────────────────────────────────────────────────────────────────
	// 聚合错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoConsensus 所有 oracle 都未能给出可用地址
	ErrNoConsensus = types.ErrNoConsensus
)
