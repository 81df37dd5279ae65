package tlshttp

// headerTerminator HTTP/1.1 头部结束序列
var headerTerminator = [4]byte{'\r', '\n', '\r', '\n'}

// crlfScanner 逐字节检测 CRLFCRLF 的固定 4 字节环
//
// 环里始终保存最近喂入的 4 个字节，fed 是累计字节数。
// 终结符跨越多次 Read 到达时同样能被检出。
type crlfScanner struct {
	ring [4]byte
	fed  int
}

// Feed 喂入一个字节，返回是否刚好构成头部终结符
func (s *crlfScanner) Feed(b byte) bool {
	s.ring[s.fed%4] = b
	s.fed++
	if s.fed < 4 {
		return false
	}

	// fed 递增后，最旧的字节位于 fed%4
	start := s.fed % 4
	for i := 0; i < 4; i++ {
		if s.ring[(start+i)%4] != headerTerminator[i] {
			return false
		}
	}
	return true
}
