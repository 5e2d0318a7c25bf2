package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"coilfield/config"
	"coilfield/model"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	cfg      *config.Config
	sections []model.Section // 默认线圈表，前端未设置 env 时使用
}

func NewServer(addr string, upgrader websocket.Upgrader, cfg *config.Config, sections []model.Section) *Server {
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		cfg:      cfg,
		sections: sections,
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket 连接失败")
		return
	}
	defer conn.Close()

	hub := NewHub(s.cfg, s.sections)
	done := make(chan struct{})
	defer close(done)
	go hub.handleResponse(conn, done)

	log.WithField("remote", conn.RemoteAddr().String()).Info("客户端已连接")
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			log.WithError(err).Info("客户端断开")
			hub.cancelRun()
			return
		}
		hub.handle(msg)
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

func (s *Server) Serve() error {
	log.WithField("addr", s.addr).Info("启动推送服务")
	return http.ListenAndServe(s.addr, s.Handler())
}
