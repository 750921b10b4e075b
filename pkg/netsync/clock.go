package netsync

// ClockSync 基于 ping/pong 估算服务器时钟偏移
type ClockSync struct {
	smoothing float64
	offset    float64 // 服务器时间 - 本地时间（毫秒）
	rtt       float64
	samples   int
}

// NewClockSync 创建时钟同步器；smoothing 不在 (0,1] 时使用默认值
func NewClockSync(smoothing float64) *ClockSync {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = DefaultClockSmoothing
	}
	return &ClockSync{smoothing: smoothing}
}

// Observe 记录一次往返：clientSend 为本地发送时间，serverTime 为服务器回包时间，clientRecv 为本地接收时间
func (c *ClockSync) Observe(clientSend, serverTime, clientRecv int64) {
	rtt := clientRecv - clientSend
	if rtt < 0 {
		return
	}
	offset := float64(serverTime) - (float64(clientSend) + float64(rtt)/2)

	if c.samples == 0 {
		c.offset = offset
		c.rtt = float64(rtt)
	} else {
		c.offset += (offset - c.offset) * c.smoothing
		c.rtt += (float64(rtt) - c.rtt) * c.smoothing
	}
	c.samples++
}

// ServerNow 把本地时间换算到服务器时钟
func (c *ClockSync) ServerNow(localNow int64) int64 {
	return localNow + int64(c.offset)
}

// Offset 当前估计的时钟偏移（毫秒）
func (c *ClockSync) Offset() int64 {
	return int64(c.offset)
}

// RTT 平滑后的往返时延（毫秒）
func (c *ClockSync) RTT() int64 {
	return int64(c.rtt)
}

// Synced 是否已有样本
func (c *ClockSync) Synced() bool {
	return c.samples > 0
}
