package netsync

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"soccer/pkg/core"
)

// Clock 返回当前毫秒时间戳
type Clock func() int64

// SystemClock 本地墙钟
func SystemClock() int64 {
	return time.Now().UnixMilli()
}

// PendingInput 尚未被服务器确认的输入
type PendingInput struct {
	Seq       uint32
	Input     core.Input
	Timestamp int64
}

// StepFunc 以输入积分 dt 秒（重放时使用）
type StepFunc func(pos mgl64.Vec3, input core.Input, dt float64) mgl64.Vec3

// PredictionConfig 客户端预测参数
type PredictionConfig struct {
	SnapDistance   float64 // 米
	CorrectionRate float64 // 每次纠正比例
	MaxAgeMs       int64
}

// DefaultPredictionConfig 默认预测参数
func DefaultPredictionConfig() PredictionConfig {
	return PredictionConfig{
		SnapDistance:   DefaultSnapDistance,
		CorrectionRate: DefaultCorrectionRate,
		MaxAgeMs:       DefaultInputMaxAgeMs,
	}
}

// ClientPrediction 本地玩家预测与纠错
type ClientPrediction struct {
	cfg     PredictionConfig
	now     Clock
	nextSeq uint32

	pending     []PendingInput
	acked       PendingInput // 最近一条已确认的输入，按键保持时仍然生效
	hasAcked    bool
	serverState mgl64.Vec3
	clientState mgl64.Vec3
}

// NewClientPrediction 创建预测器，clock 为 nil 时使用本地墙钟
func NewClientPrediction(cfg PredictionConfig, clock Clock) *ClientPrediction {
	def := DefaultPredictionConfig()
	if cfg.SnapDistance <= 0 {
		cfg.SnapDistance = def.SnapDistance
	}
	if cfg.CorrectionRate <= 0 || cfg.CorrectionRate > 1 {
		cfg.CorrectionRate = def.CorrectionRate
	}
	if cfg.MaxAgeMs <= 0 {
		cfg.MaxAgeMs = def.MaxAgeMs
	}
	if clock == nil {
		clock = SystemClock
	}
	return &ClientPrediction{
		cfg:     cfg,
		now:     clock,
		nextSeq: 1,
	}
}

// AddInput 记录一条待确认输入，返回分配的序号
// 只做记录，不推进状态
func (p *ClientPrediction) AddInput(input core.Input, timestamp int64) uint32 {
	seq := p.nextSeq
	p.nextSeq++
	p.pending = append(p.pending, PendingInput{
		Seq:       seq,
		Input:     input,
		Timestamp: timestamp,
	})
	return seq
}

// Predict 显式欧拉积分：pos + vel*delta（delta 单位秒）
func (p *ClientPrediction) Predict(pos, vel mgl64.Vec3, delta float64) mgl64.Vec3 {
	return pos.Add(vel.Mul(delta))
}

// Reconcile 用服务器位置纠正本地位置
// 偏差超过 SnapDistance 直接拉回，否则按 CorrectionRate 逐步逼近
func (p *ClientPrediction) Reconcile(serverPos, clientPos mgl64.Vec3) mgl64.Vec3 {
	diff := serverPos.Sub(clientPos)
	if diff.Len() > p.cfg.SnapDistance {
		return serverPos
	}
	return clientPos.Add(diff.Mul(p.cfg.CorrectionRate))
}

// Cleanup 丢弃早于 maxAgeMs 的待确认输入；maxAgeMs <= 0 时使用配置值
func (p *ClientPrediction) Cleanup(maxAgeMs int64) {
	if maxAgeMs <= 0 {
		maxAgeMs = p.cfg.MaxAgeMs
	}
	cutoff := p.now() - maxAgeMs

	keep := p.pending[:0]
	for _, in := range p.pending {
		if in.Timestamp >= cutoff {
			keep = append(keep, in)
		}
	}
	p.pending = keep
}

// Acknowledge 服务器已处理到 seq，丢弃此前的输入
func (p *ClientPrediction) Acknowledge(seq uint32) {
	idx := 0
	for idx < len(p.pending) && p.pending[idx].Seq <= seq {
		idx++
	}
	if idx > 0 {
		p.acked = p.pending[idx-1]
		p.hasAcked = true
		p.pending = append(p.pending[:0], p.pending[idx:]...)
	}
}

// Discard 撤回一条未发出的输入
func (p *ClientPrediction) Discard(seq uint32) {
	for i, in := range p.pending {
		if in.Seq == seq {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

// Reset 丢弃全部输入记录，序号继续递增
func (p *ClientPrediction) Reset() {
	p.pending = p.pending[:0]
	p.acked = PendingInput{}
	p.hasAcked = false
	p.serverState = mgl64.Vec3{}
	p.clientState = mgl64.Vec3{}
}

// Replay 在权威位置上重放 fromTimestamp 之后的输入
// 最近一条已确认的输入持续到第一条未确认输入，其余每条持续到下一条（最后一条持续到 untilTimestamp）
func (p *ClientPrediction) Replay(serverPos mgl64.Vec3, fromTimestamp, untilTimestamp int64, step StepFunc) mgl64.Vec3 {
	if step == nil {
		step = core.ApplyInput
	}

	pos := serverPos
	if p.hasAcked {
		start := max(p.acked.Timestamp, fromTimestamp)
		end := untilTimestamp
		if len(p.pending) > 0 {
			end = p.pending[0].Timestamp
		}
		if end > start {
			pos = step(pos, p.acked.Input, float64(end-start)/1000)
		}
	}
	for i, in := range p.pending {
		start := in.Timestamp
		if start < fromTimestamp {
			start = fromTimestamp
		}
		end := untilTimestamp
		if i+1 < len(p.pending) {
			end = p.pending[i+1].Timestamp
		}
		if end <= start {
			continue
		}
		pos = step(pos, in.Input, float64(end-start)/1000)
	}
	return pos
}

// Pending 待确认输入（只读副本）
func (p *ClientPrediction) Pending() []PendingInput {
	out := make([]PendingInput, len(p.pending))
	copy(out, p.pending)
	return out
}

// ServerState 最近一次收到的权威位置
func (p *ClientPrediction) ServerState() mgl64.Vec3 { return p.serverState }

// SetServerState 记录权威位置
func (p *ClientPrediction) SetServerState(pos mgl64.Vec3) { p.serverState = pos }

// ClientState 本地预测位置
func (p *ClientPrediction) ClientState() mgl64.Vec3 { return p.clientState }

// SetClientState 记录本地预测位置
func (p *ClientPrediction) SetClientState(pos mgl64.Vec3) { p.clientState = pos }

// Config 当前参数
func (p *ClientPrediction) Config() PredictionConfig { return p.cfg }
