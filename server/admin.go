package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Admin 管理与监控接口
type Admin struct {
	arena   *Arena
	slots   *SlotManager
	metrics *Metrics
	hub     *Hub
}

func NewAdmin(arena *Arena, slots *SlotManager, metrics *Metrics, hub *Hub) *Admin {
	return &Admin{arena: arena, slots: slots, metrics: metrics, hub: hub}
}

// Router 路由表：
// GET  /healthz              存活检查
// GET  /metrics              运行指标
// GET  /admin/match          当前权威比赛
// POST /admin/match/restart  强制重开
// GET  /admin/sessions       已接入会话
// GET  /spectate             观战 WebSocket
func (a *Admin) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", a.HandleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/admin/match", a.HandleMatch).Methods(http.MethodGet)
	r.HandleFunc("/admin/match/restart", a.HandleRestart).Methods(http.MethodPost)
	r.HandleFunc("/admin/sessions", a.HandleSessions).Methods(http.MethodGet)
	if a.hub != nil {
		r.HandleFunc("/spectate", a.hub.HandleWS).Methods(http.MethodGet)
	}
	return r
}

// HandleMetrics 输出运行指标
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"metrics": a.metrics.Snapshot(),
		"players": a.slots.Active(),
	}
	if a.hub != nil {
		payload["spectators"] = a.hub.Count()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *Admin) HandleMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.arena.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *Admin) HandleRestart(w http.ResponseWriter, r *http.Request) {
	m, err := a.arena.Restart(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	Log.Infow("restart requested", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, m)
}

func (a *Admin) HandleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.slots.Sessions())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
