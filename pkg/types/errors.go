// Package types 定义 ReflectionIPAddress 的公共值类型
//
// 本文件定义所有公共错误。内部各子系统直接返回这些哨兵错误，
// 根包以别名形式再次导出，调用方用 errors.Is 判断。
package types

import "errors"

// ============================================================================
//                              参数校验错误
// ============================================================================

var (
	// ErrEmptyOracleSet oracle 集合为空
	ErrEmptyOracleSet = errors.New("oracle set is empty")

	// ErrDuplicateOracle oracle 端点重复
	ErrDuplicateOracle = errors.New("duplicate oracle endpoint")

	// ErrUnsupportedScheme URI scheme 与传输类型不匹配
	ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")

	// ErrUnsupportedFamily 地址族不在支持范围内
	ErrUnsupportedFamily = errors.New("unsupported address family")
)

// ============================================================================
//                              网络错误
// ============================================================================

var (
	// ErrNoAddressForFamily DNS 没有所请求地址族的记录
	ErrNoAddressForFamily = errors.New("no address for requested family")

	// ErrTimeout 发送/接收/单次查询超时
	ErrTimeout = errors.New("oracle query timed out")

	// ErrMalformedResponse 响应格式错误（STUN magic/type 不匹配、属性截断等）
	ErrMalformedResponse = errors.New("malformed oracle response")
)

// ============================================================================
//                              聚合错误
// ============================================================================

var (
	// ErrNoConsensus 所有 oracle 都未能给出可用地址
	ErrNoConsensus = errors.New("cannot obtain an address from any oracle")
)
