package server

import (
	"sync/atomic"
)

// Metrics 记录服务运行期的关键指标（用于监控与调试）
type Metrics struct {
	Resolutions      int64 // 结算次数
	HitsLanded       int64 // 命中次数
	MatchesFinished  int64 // 结束的对局
	Restarts         int64 // 重开次数
	SessionsAdmitted int64 // 接入的会话
	SessionsRejected int64 // 满员被拒的连接
	SessionsActive   int64 // 当前活跃会话
	ProtocolErrors   int64 // 解码失败导致的断开
	TransportErrors  int64 // 读写失败导致的断开
	TotalResolveNs   int64 // 结算累计耗时（纳秒）
}

func (m *Metrics) IncAdmitted() {
	atomic.AddInt64(&m.SessionsAdmitted, 1)
	atomic.AddInt64(&m.SessionsActive, 1)
}
func (m *Metrics) DecActive()          { atomic.AddInt64(&m.SessionsActive, -1) }
func (m *Metrics) IncRejected()        { atomic.AddInt64(&m.SessionsRejected, 1) }
func (m *Metrics) IncProtocolErrors()  { atomic.AddInt64(&m.ProtocolErrors, 1) }
func (m *Metrics) IncTransportErrors() { atomic.AddInt64(&m.TransportErrors, 1) }
func (m *Metrics) IncFinished()        { atomic.AddInt64(&m.MatchesFinished, 1) }
func (m *Metrics) IncRestarts()        { atomic.AddInt64(&m.Restarts, 1) }
func (m *Metrics) AddResolve(ns int64, hits int) {
	atomic.AddInt64(&m.Resolutions, 1)
	atomic.AddInt64(&m.TotalResolveNs, ns)
	atomic.AddInt64(&m.HitsLanded, int64(hits))
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	n := atomic.LoadInt64(&m.Resolutions)
	total := atomic.LoadInt64(&m.TotalResolveNs)
	var avgUs float64
	if n > 0 {
		avgUs = float64(total) / float64(n) / 1e3
	}
	return map[string]any{
		"resolutions":       n,
		"hits_landed":       atomic.LoadInt64(&m.HitsLanded),
		"matches_finished":  atomic.LoadInt64(&m.MatchesFinished),
		"restarts":          atomic.LoadInt64(&m.Restarts),
		"sessions_admitted": atomic.LoadInt64(&m.SessionsAdmitted),
		"sessions_rejected": atomic.LoadInt64(&m.SessionsRejected),
		"sessions_active":   atomic.LoadInt64(&m.SessionsActive),
		"protocol_errors":   atomic.LoadInt64(&m.ProtocolErrors),
		"transport_errors":  atomic.LoadInt64(&m.TransportErrors),
		"avg_resolve_us":    avgUs,
	}
}
