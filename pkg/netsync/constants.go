package netsync

// ===== 网络同步默认参数（可由 internal/config 覆盖）=====
const (
	// 插值缓冲延迟（毫秒）：渲染时间滞后于当前时间
	// 值越大越平滑，但延迟感越强；100ms 时通常能有两帧快照夹住渲染时刻
	DefaultBufferTimeMs int64 = 100

	// 插值延迟允许的调整范围（毫秒）
	MinBufferTimeMs int64 = 50
	MaxBufferTimeMs int64 = 300

	// 快照缓冲区硬上限，与时间无关
	MaxSnapshots = 120

	// 历史环形缓冲区默认容量（约 120 次状态更新/秒 × 1 秒）
	DefaultHistoryCapacity = 120

	// 客户端预测：超过该距离（米）直接拉回，否则按比例平滑纠正
	DefaultSnapDistance = 2.0

	// 客户端预测：每次纠正的比例
	DefaultCorrectionRate = 0.3

	// 未确认输入的最大保留时长（毫秒）
	DefaultInputMaxAgeMs int64 = 1000

	// 事件关联窗口（毫秒）
	DefaultEventWindowMs int64 = 50

	// 事件日志的最大保留时长（毫秒）
	DefaultEventMaxAgeMs int64 = 2000

	// 时钟同步 EWMA 平滑系数
	DefaultClockSmoothing = 0.1
)
