package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterQueueRoutes 注册队列相关路由
func (r *Router) RegisterQueueRoutes(q *QueueHandler) {
	r.Handle("/api/v1/queues", q.Dispatch)
	r.Handle("/api/v1/queues/", q.Dispatch)
}

// RegisterPatientRoutes 注册患者相关路由
func (r *Router) RegisterPatientRoutes(p *PatientHandler) {
	r.Handle("/api/v1/patients", p.Dispatch)
	r.Handle("/api/v1/patients/", p.Dispatch)
}

// RegisterRoomRoutes 注册房间相关路由
func (r *Router) RegisterRoomRoutes(rm *RoomHandler) {
	r.Handle("/api/v1/rooms", rm.Dispatch)
	r.Handle("/api/v1/rooms/", rm.Dispatch)
}

// RegisterAuthRoutes 注册登录路由
func (r *Router) RegisterAuthRoutes(a *AuthHandler) {
	r.Handle("/api/v1/auth/login", a.Login)
}

// RegisterWebSocket 注册实时通知入口
func (r *Router) RegisterWebSocket(h http.HandlerFunc) {
	r.Handle("/ws", h)
}
