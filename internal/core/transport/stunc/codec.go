package stunc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"

	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// buildBindingRequest 构造 20 字节的 STUN Binding Request
//
// 消息类型 0x0001、长度 0、Magic Cookie，外加 96 位事务 ID。
// 事务 ID 只为区分报文，不承担任何安全属性。
func buildBindingRequest(random io.Reader) ([]byte, error) {
	msg := make([]byte, headerLen)

	binary.BigEndian.PutUint16(msg[0:2], bindingRequest)
	binary.BigEndian.PutUint16(msg[2:4], 0)
	binary.BigEndian.PutUint32(msg[4:8], magicCookie)

	if _, err := io.ReadFull(random, msg[8:headerLen]); err != nil {
		return nil, fmt.Errorf("generate transaction ID: %w", err)
	}

	return msg, nil
}

// decodeBindingResponse 解析 Binding Response，取出 MAPPED-ADDRESS
//
// 校验消息类型与 Magic Cookie；随后按序扫描 TLV 属性
// （u16 类型、u16 长度、值，这里用到的属性无需处理对齐填充），
// 命中第一个 MAPPED-ADDRESS 即返回。
func decodeBindingResponse(data []byte) (types.MappedEndpoint, error) {
	if len(data) < headerLen {
		return types.MappedEndpoint{}, fmt.Errorf("response too short (%d bytes): %w", len(data), types.ErrMalformedResponse)
	}

	msgType := binary.BigEndian.Uint16(data[0:2])
	if msgType != bindingResponse {
		return types.MappedEndpoint{}, fmt.Errorf("unexpected message type 0x%04x: %w", msgType, types.ErrMalformedResponse)
	}

	cookie := binary.BigEndian.Uint32(data[4:8])
	if cookie != magicCookie {
		return types.MappedEndpoint{}, fmt.Errorf("magic cookie 0x%08x: %w", cookie, types.ErrMalformedResponse)
	}

	// 属性区以头部声明的长度为界，同时不越过实际缓冲
	end := headerLen + int(binary.BigEndian.Uint16(data[2:4]))
	if end > len(data) {
		end = len(data)
	}

	offset := headerLen
	for offset+4 <= end {
		attrType := binary.BigEndian.Uint16(data[offset : offset+2])
		attrLen := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		offset += 4

		if offset+attrLen > end {
			break
		}
		value := data[offset : offset+attrLen]
		offset += attrLen

		if attrType != attrMappedAddress {
			continue
		}
		return decodeMappedAddress(value)
	}

	return types.MappedEndpoint{}, fmt.Errorf("no mapped address attribute: %w", types.ErrMalformedResponse)
}

// decodeMappedAddress 解析 MAPPED-ADDRESS 属性值
//
// 布局: 1 字节保留、1 字节地址族（0x01=IPv4, 0x02=IPv6）、
// u16 端口、4 或 16 字节地址。
func decodeMappedAddress(value []byte) (types.MappedEndpoint, error) {
	if len(value) < 4 {
		return types.MappedEndpoint{}, fmt.Errorf("mapped address truncated: %w", types.ErrMalformedResponse)
	}

	familyCode := value[1]
	port := binary.BigEndian.Uint16(value[2:4])

	switch familyCode {
	case familyIPv4:
		if len(value) < 8 {
			return types.MappedEndpoint{}, fmt.Errorf("ipv4 mapped address truncated: %w", types.ErrMalformedResponse)
		}
		addr := netip.AddrFrom4([4]byte(value[4:8]))
		return types.MappedEndpoint{Addr: addr, Port: port}, nil

	case familyIPv6:
		if len(value) < 20 {
			return types.MappedEndpoint{}, fmt.Errorf("ipv6 mapped address truncated: %w", types.ErrMalformedResponse)
		}
		addr := netip.AddrFrom16([16]byte(value[4:20]))
		return types.MappedEndpoint{Addr: addr, Port: port}, nil

	default:
		return types.MappedEndpoint{}, fmt.Errorf("address family code 0x%02x: %w", familyCode, types.ErrUnsupportedFamily)
	}
}
