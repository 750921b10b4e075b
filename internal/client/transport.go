package client

import "soccer/pkg/protocol"

// Transport Session 依赖的网络接口；所有 Receive* 方法均为非阻塞
type Transport interface {
	// PlayerID 服务器分配的本地玩家 ID
	PlayerID() uint32

	// ReceiveState 取出一条世界状态，没有时返回 nil
	ReceiveState() *protocol.WorldState

	// ReceiveEvent 取出一条离散事件，没有时返回 nil
	ReceiveEvent() *protocol.GameEvent

	// ReceivePlayerLeft 取出一个离开的玩家 ID
	ReceivePlayerLeft() (uint32, bool)

	// ReceivePong 取出一条时钟同步应答，没有时返回 nil
	ReceivePong() *protocol.Pong

	// Send 异步发送消息
	Send(msg protocol.Message) error
}
