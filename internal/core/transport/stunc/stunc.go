// Package stunc 实现手写的 STUN Binding 客户端
//
// 只覆盖 RFC 5389 中绑定发现所需的子集：构造 Binding Request、
// 通过已连接的 UDP socket 收发一个来回、从响应属性中取出
// MAPPED-ADDRESS。不做消息完整性校验、FINGERPRINT 和重传，
// STUN 在这里只是一个廉价、低延迟的无连接 oracle。
package stunc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/rkttu/ReflectionIPAddress/internal/core/oracle"
	"github.com/rkttu/ReflectionIPAddress/internal/util/logger"
	"github.com/rkttu/ReflectionIPAddress/internal/util/netutil"
	"github.com/rkttu/ReflectionIPAddress/pkg/types"
)

// 包级别日志实例
var log = logger.Logger("stunc")

const (
	// STUN 消息类型
	bindingRequest  uint16 = 0x0001
	bindingResponse uint16 = 0x0101

	// STUN 属性类型 (RFC 5389)
	attrMappedAddress uint16 = 0x0001

	// Magic Cookie (RFC 5389)
	magicCookie uint32 = 0x2112A442

	// 地址族编码
	familyIPv4 byte = 0x01
	familyIPv6 byte = 0x02

	// 报文尺寸
	headerLen        = 20
	transactionIDLen = 12

	// defaultPort STUN 默认端口
	defaultPort uint16 = 3478

	// maxResponseLen 响应读取缓冲大小
	maxResponseLen = 1024
)

// Communicator STUN 通信器
type Communicator struct {
	resolver *net.Resolver
	random   io.Reader
}

// New 创建 STUN 通信器
//
// resolver 为 nil 时使用系统解析器。random 为事务 ID 的随机源，
// 只要求唯一性而非密码学安全；为 nil 时使用 crypto/rand.Reader，
// 测试中可注入确定性的源。
func New(resolver *net.Resolver, random io.Reader) *Communicator {
	if random == nil {
		random = rand.Reader
	}
	return &Communicator{resolver: resolver, random: random}
}

// Communicate 向 STUN oracle 发起一次 Binding 查询
//
// sendTimeout/recvTimeout 分别约束发送与接收，超出时返回
// types.ErrTimeout；ctx 取消会立即关闭 socket 并透传 ctx 的错误。
func (c *Communicator) Communicate(ctx context.Context, desc oracle.Descriptor, family types.AddressFamily, sendTimeout, recvTimeout time.Duration) (types.MappedEndpoint, error) {
	if desc.Scheme() != "stun" {
		return types.MappedEndpoint{}, fmt.Errorf("oracle %s: %w", desc.Identity(), types.ErrUnsupportedScheme)
	}

	addrs, err := netutil.ResolveFamily(ctx, c.resolver, desc.Hostname(), family)
	if err != nil {
		return types.MappedEndpoint{}, err
	}
	target := netip.AddrPortFrom(addrs[0], desc.Port(defaultPort))

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, family.Network("udp"), target.String())
	if err != nil {
		return types.MappedEndpoint{}, fmt.Errorf("dial %s: %w", target, err)
	}
	defer func() { _ = conn.Close() }()

	// ctx 取消时立即关闭 socket，中断阻塞中的收发
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	request, err := buildBindingRequest(c.random)
	if err != nil {
		return types.MappedEndpoint{}, err
	}

	if sendTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	}
	if _, err := conn.Write(request); err != nil {
		return types.MappedEndpoint{}, c.mapNetErr(ctx, err, "send binding request")
	}

	if recvTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(recvTimeout))
	}
	buf := make([]byte, maxResponseLen)
	n, err := conn.Read(buf)
	if err != nil {
		return types.MappedEndpoint{}, c.mapNetErr(ctx, err, "receive binding response")
	}

	ep, err := decodeBindingResponse(buf[:n])
	if err != nil {
		return types.MappedEndpoint{}, fmt.Errorf("oracle %s: %w", desc.Identity(), err)
	}

	log.Debug("mapped endpoint received", "oracle", desc.Identity(), "endpoint", ep)
	return ep, nil
}

// mapNetErr 将网络错误归类：ctx 取消优先，超时归一到 types.ErrTimeout
func (c *Communicator) mapNetErr(ctx context.Context, err error, op string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w", op, types.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
