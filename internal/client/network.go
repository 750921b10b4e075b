package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"soccer/internal/config"
	"soccer/pkg/netsync"
	"soccer/pkg/protocol"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	kcp "github.com/xtaci/kcp-go/v5"
)

var (
	ErrSendQueueFull = errors.New("发送队列满")
	ErrNotConnected  = errors.New("未连接到服务器")
	ErrJoinRejected  = errors.New("服务器拒绝加入")
	ErrJoinTimeout   = errors.New("等待加入应答超时")
)

// 队列容量
const (
	stateQueueSize = 64
	eventQueueSize = 64
	leftQueueSize  = 16
	pongQueueSize  = 8
	sendQueueSize  = 256
)

// 重连间隔，失败后翻倍直到上限
const (
	reconnectBaseDelay = 500 * time.Millisecond
	reconnectMaxDelay  = 8 * time.Second
)

// NetworkClient 网络客户端
// 收发各一个 goroutine，通过带缓冲的通道与渲染线程交接
type NetworkClient struct {
	cfg    config.NetworkConfig
	logger *log.Logger
	now    netsync.Clock

	retryBase time.Duration
	retryMax  time.Duration

	mu       sync.Mutex
	conn     net.Conn
	playerID uint32
	token    string
	tickRate uint32

	connected atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	// 接收队列
	stateChan chan *protocol.WorldState
	eventChan chan *protocol.GameEvent
	leftChan  chan uint32
	pongChan  chan *protocol.Pong
	joinChan  chan protocol.Message

	// 发送队列
	sendChan chan []byte

	// 错误
	errChan chan error
}

// NewNetworkClient 创建网络客户端；logger 为 nil 时丢弃日志
func NewNetworkClient(cfg config.NetworkConfig, logger *log.Logger) *NetworkClient {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &NetworkClient{
		cfg:       cfg,
		logger:    logger,
		now:       netsync.SystemClock,
		retryBase: reconnectBaseDelay,
		retryMax:  reconnectMaxDelay,
		stateChan: make(chan *protocol.WorldState, stateQueueSize),
		eventChan: make(chan *protocol.GameEvent, eventQueueSize),
		leftChan:  make(chan uint32, leftQueueSize),
		pongChan:  make(chan *protocol.Pong, pongQueueSize),
		joinChan:  make(chan protocol.Message, 1),
		sendChan:  make(chan []byte, sendQueueSize),
		errChan:   make(chan error, 1),
	}
}

// Connect 连接服务器并完成加入握手
func (nc *NetworkClient) Connect(ctx context.Context) error {
	return nc.connect(ctx, "")
}

// Reconnect 断开当前连接后重新加入
// 会话令牌仍然有效时携带令牌，服务器据此恢复原玩家
func (nc *NetworkClient) Reconnect(ctx context.Context) error {
	token := nc.SessionToken()
	nc.shutdown()

	if !TokenUsable(token, time.Now()) {
		nc.logger.Warn("会话令牌已失效，以新玩家身份加入")
		token = ""
	}
	return nc.connect(ctx, token)
}

// ReconnectLoop 反复重连直到成功或 ctx 结束
func (nc *NetworkClient) ReconnectLoop(ctx context.Context) error {
	delay := nc.retryBase
	for attempt := 1; ; attempt++ {
		err := nc.Reconnect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		nc.logger.Warn("重连失败", "attempt", attempt, "retry_in", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, nc.retryMax)
	}
}

func (nc *NetworkClient) connect(ctx context.Context, token string) error {
	nc.logger.Info("连接到服务器", "addr", nc.cfg.Address, "proto", nc.cfg.Protocol)

	// 断线后旧的收发循环可能仍在运行
	nc.mu.Lock()
	stale := nc.conn != nil
	nc.mu.Unlock()
	if stale {
		nc.shutdown()
	}

	// 建立连接
	conn, err := nc.dial(ctx)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	nc.drainErrors()

	nc.mu.Lock()
	nc.conn = conn
	nc.mu.Unlock()
	nc.ctx, nc.cancel = context.WithCancel(context.Background())
	nc.connected.Store(true)

	nc.logger.Info("已连接到服务器", "remote", conn.RemoteAddr())

	nc.wg.Add(2)
	go nc.receiveLoop(conn)
	go nc.sendLoop(conn)

	// 发送加入请求
	join := &protocol.JoinRequest{
		PlayerName:   nc.cfg.PlayerName,
		RoomID:       nc.cfg.RoomID,
		SessionToken: token,
	}
	if err := nc.Send(join); err != nil {
		nc.shutdown()
		return fmt.Errorf("发送加入请求失败: %w", err)
	}

	timeout := time.Duration(nc.cfg.JoinTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// 等待加入结果
	select {
	case msg := <-nc.joinChan:
		switch m := msg.(type) {
		case *protocol.JoinAccepted:
			nc.mu.Lock()
			nc.playerID = m.PlayerID
			nc.token = m.SessionToken
			nc.tickRate = m.TickRate
			nc.mu.Unlock()
			nc.logger.Info("加入成功", "player", m.PlayerID, "tick_rate", m.TickRate)
		case *protocol.JoinRejected:
			nc.shutdown()
			return fmt.Errorf("%w: %s", ErrJoinRejected, m.Reason)
		}

	case err := <-nc.errChan:
		nc.shutdown()
		return err

	case <-timer.C:
		nc.shutdown()
		return ErrJoinTimeout

	case <-ctx.Done():
		nc.shutdown()
		return ctx.Err()
	}

	if nc.cfg.ClockSync && nc.cfg.PingIntervalMs > 0 {
		nc.wg.Add(1)
		go nc.pingLoop(time.Duration(nc.cfg.PingIntervalMs) * time.Millisecond)
	}
	return nil
}

func (nc *NetworkClient) dial(ctx context.Context) (net.Conn, error) {
	timeout := time.Duration(nc.cfg.DialTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	switch nc.cfg.Protocol {
	case "", "tcp":
		d := net.Dialer{Timeout: timeout}
		return d.DialContext(ctx, "tcp", nc.cfg.Address)
	case "kcp":
		conn, err := kcp.DialWithOptions(nc.cfg.Address, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		conn.SetNoDelay(1, 10, 2, 1)
		return conn, nil
	case "ws":
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		c, _, err := websocket.Dial(dialCtx, "ws://"+nc.cfg.Address+"/ws", nil)
		if err != nil {
			return nil, err
		}
		c.SetReadLimit(protocol.MaxPacketSize + 4)
		// NetConn 的生命周期跟随 context，不能用拨号超时的 context
		return websocket.NetConn(context.Background(), c, websocket.MessageBinary), nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.cfg.Protocol)
	}
}

// Close 关闭连接
func (nc *NetworkClient) Close() {
	nc.mu.Lock()
	active := nc.conn != nil
	nc.mu.Unlock()
	if !active {
		return
	}
	nc.shutdown()
	nc.logger.Info("网络客户端已关闭")
}

// shutdown 停止收发循环并等待退出；通道保留，重连后继续使用
func (nc *NetworkClient) shutdown() {
	nc.connected.Store(false)
	if nc.cancel != nil {
		nc.cancel()
	}

	nc.mu.Lock()
	if nc.conn != nil {
		nc.conn.Close()
		nc.conn = nil
	}
	nc.mu.Unlock()

	nc.wg.Wait()

	// 丢弃未发出的数据
	for {
		select {
		case <-nc.sendChan:
		default:
			return
		}
	}
}

func (nc *NetworkClient) drainErrors() {
	for {
		select {
		case <-nc.errChan:
		default:
			return
		}
	}
}

// PlayerID 获取玩家 ID
func (nc *NetworkClient) PlayerID() uint32 {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.playerID
}

// SessionToken 最近一次加入时服务器签发的令牌
func (nc *NetworkClient) SessionToken() string {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.token
}

// TickRate 服务器模拟频率
func (nc *NetworkClient) TickRate() uint32 {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.tickRate
}

// IsConnected 检查是否已连接
func (nc *NetworkClient) IsConnected() bool {
	return nc.connected.Load()
}

// Errors 连接断开等致命错误
func (nc *NetworkClient) Errors() <-chan error {
	return nc.errChan
}

// ========== 消息接收 ==========

// receiveLoop 接收循环
func (nc *NetworkClient) receiveLoop(conn net.Conn) {
	defer nc.wg.Done()

	for {
		msg, err := protocol.ReadFrame(conn)
		if err != nil {
			if nc.ctx.Err() != nil {
				return
			}
			// 单条消息解析失败不影响后续帧
			if errors.Is(err, protocol.ErrInvalid) || errors.Is(err, protocol.ErrUnknownType) {
				nc.logger.Warn("丢弃非法消息", "err", err)
				continue
			}
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("接收失败: %w", err)
			}
			nc.reportError(err)
			return
		}
		if msg == nil {
			continue
		}
		nc.handleMessage(msg)
	}
}

// handleMessage 按类型分发到各自队列
func (nc *NetworkClient) handleMessage(msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.WorldState:
		// 队列满时丢弃最旧的状态，保证最新状态能进入
		select {
		case nc.stateChan <- m:
		default:
			select {
			case <-nc.stateChan:
			default:
			}
			select {
			case nc.stateChan <- m:
			default:
			}
		}

	case *protocol.GameEvent:
		select {
		case nc.eventChan <- m:
		default:
			nc.logger.Warn("事件队列满，丢弃事件", "kind", m.Kind)
		}

	case *protocol.PlayerLeft:
		select {
		case nc.leftChan <- m.PlayerID:
		default:
		}

	case *protocol.Pong:
		select {
		case nc.pongChan <- m:
		default:
		}

	case *protocol.JoinAccepted, *protocol.JoinRejected:
		select {
		case nc.joinChan <- m:
		default:
		}

	default:
		nc.logger.Debug("忽略消息", "type", msg.Type())
	}
}

func (nc *NetworkClient) reportError(err error) {
	nc.connected.Store(false)
	select {
	case nc.errChan <- err:
	default:
	}
}

// ========== 消息发送 ==========

// sendLoop 发送循环
func (nc *NetworkClient) sendLoop(conn net.Conn) {
	defer nc.wg.Done()

	for {
		select {
		case <-nc.ctx.Done():
			return

		case data := <-nc.sendChan:
			if err := protocol.WriteRaw(conn, data); err != nil {
				if nc.ctx.Err() == nil {
					nc.reportError(fmt.Errorf("发送失败: %w", err))
				}
				return
			}
		}
	}
}

// pingLoop 定期发送 Ping 用于估算时钟偏移
func (nc *NetworkClient) pingLoop(interval time.Duration) {
	defer nc.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	nc.ping()
	for {
		select {
		case <-nc.ctx.Done():
			return
		case <-ticker.C:
			nc.ping()
		}
	}
}

func (nc *NetworkClient) ping() {
	if err := nc.Send(&protocol.Ping{ClientTime: nc.now()}); err != nil {
		nc.logger.Debug("发送 Ping 失败", "err", err)
	}
}

// Send 序列化并放入发送队列
func (nc *NetworkClient) Send(msg protocol.Message) error {
	if !nc.connected.Load() {
		return ErrNotConnected
	}

	data, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", msg.Type(), err)
	}

	select {
	case nc.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// ========== 非阻塞接收 ==========

// ReceiveState 接收世界状态（非阻塞）
func (nc *NetworkClient) ReceiveState() *protocol.WorldState {
	select {
	case state := <-nc.stateChan:
		return state
	default:
		return nil
	}
}

// ReceiveEvent 接收离散事件（非阻塞）
func (nc *NetworkClient) ReceiveEvent() *protocol.GameEvent {
	select {
	case event := <-nc.eventChan:
		return event
	default:
		return nil
	}
}

// ReceivePlayerLeft 接收玩家离开（非阻塞）
func (nc *NetworkClient) ReceivePlayerLeft() (uint32, bool) {
	select {
	case id := <-nc.leftChan:
		return id, true
	default:
		return 0, false
	}
}

// ReceivePong 接收时钟同步应答（非阻塞）
func (nc *NetworkClient) ReceivePong() *protocol.Pong {
	select {
	case pong := <-nc.pongChan:
		return pong
	default:
		return nil
	}
}
