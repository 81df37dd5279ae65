package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// maxBodyBytes 响应体读取上限
//
// oracle 返回的是单个 IP 地址（纯文本或一个小 JSON 对象），
// 超过这个上限的响应体一定不是我们要的东西。
const maxBodyBytes = 4096

// ParseTextAddress 从纯文本响应体中提取地址
//
// 容忍前后空白、换行以及包裹的引号（部分 oracle 返回 "1.2.3.4"\n）。
// 响应体为空或不是合法地址时返回 types.ErrMalformedResponse。
func ParseTextAddress(r io.Reader) (netip.Addr, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("read body: %w", err)
	}

	token := strings.TrimSpace(string(body))
	token = strings.Trim(token, `"`)
	if token == "" {
		return netip.Addr{}, fmt.Errorf("empty body: %w", types.ErrMalformedResponse)
	}

	addr, err := netip.ParseAddr(token)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse %q: %w", token, types.ErrMalformedResponse)
	}
	return addr.Unmap(), nil
}

// ParseJSONAddress 从 JSON 响应体的指定字段提取地址
//
// 期望形如 {"ip": "203.0.113.7", ...} 的单个对象。
func ParseJSONAddress(r io.Reader, field string) (netip.Addr, error) {
	var payload map[string]json.RawMessage
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		return netip.Addr{}, fmt.Errorf("decode body: %w", types.ErrMalformedResponse)
	}

	raw, ok := payload[field]
	if !ok {
		return netip.Addr{}, fmt.Errorf("field %q missing: %w", field, types.ErrMalformedResponse)
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return netip.Addr{}, fmt.Errorf("field %q: %w", field, types.ErrMalformedResponse)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(token))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse %q: %w", token, types.ErrMalformedResponse)
	}
	return addr.Unmap(), nil
}

// JSONParser 返回绑定到指定字段的 ParseFunc
func JSONParser(field string) ParseFunc {
	return func(r io.Reader) (netip.Addr, error) {
		return ParseJSONAddress(r, field)
	}
}
