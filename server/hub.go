package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"coilfield/coil_geometry"
	"coilfield/config"
	"coilfield/field_line"
	"coilfield/model"
	"coilfield/solver"
)

// Hub 处理单个连接的请求，计算在后台 goroutine 中进行
type Hub struct {
	cfg *config.Config
	env model.Env

	// response
	replies chan model.Msg

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(cfg *config.Config, sections []model.Section) *Hub {
	return &Hub{
		cfg: cfg,
		env: model.Env{
			Grid:     cfg.Grid,
			Tracer:   cfg.Tracer,
			Sections: sections,
		},
		replies: make(chan model.Msg, 10),
	}
}

// handleResponse 唯一的写协程
func (h *Hub) handleResponse(conn *websocket.Conn, done <-chan struct{}) {
	for {
		select {
		case reply := <-h.replies:
			if err := conn.WriteJSON(&reply); err != nil {
				log.WithError(err).Warn("推送失败")
			}
		case <-done:
			return
		}
	}
}

func (h *Hub) handle(msg model.Msg) {
	switch msg.Type {
	case model.MsgEnv:
		if err := h.setEnv(msg.Content); err != nil {
			h.replyError(err)
			return
		}
		h.replies <- model.Msg{Type: model.MsgEnvSet, Content: "env is set"}
	case model.MsgStart:
		h.start()
	case model.MsgStop:
		h.cancelRun()
		h.replies <- model.Msg{Type: model.MsgStopped, Content: "stopped"}
	default:
		log.WithField("type", msg.Type).Warn("no such type")
		h.replyError(fmt.Errorf("no such type: %q", msg.Type))
	}
}

// setEnv 未设置的网格和追踪参数沿用当前值
func (h *Hub) setEnv(content string) error {
	var env model.Env
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if env.Grid.ZPoints > 0 && env.Grid.RPoints > 0 {
		h.env.Grid = env.Grid
	}
	if env.Tracer.Step > 0 {
		h.env.Tracer = env.Tracer
	}
	if len(env.Sections) > 0 {
		h.env.Sections = env.Sections
	}
	log.WithFields(log.Fields{
		"grid":     h.env.Grid,
		"tracer":   h.env.Tracer,
		"sections": len(h.env.Sections),
	}).Info("设置计算环境")
	return nil
}

// start 取消正在进行的计算后重新开始
func (h *Hub) start() {
	h.cancelRun()

	h.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	env := h.env
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		data, err := h.compute(ctx, env)
		if errors.Is(err, context.Canceled) {
			log.Info("计算已取消")
			return
		}
		if err != nil {
			h.replyError(err)
			return
		}
		content, err := json.Marshal(data)
		if err != nil {
			h.replyError(err)
			return
		}
		h.replies <- model.Msg{Type: model.MsgStarted, Content: string(content)}
	}()
}

func (h *Hub) cancelRun() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	h.wg.Wait()
}

func (h *Hub) replyError(err error) {
	log.WithError(err).Warn("请求处理失败")
	h.replies <- model.Msg{Type: model.MsgError, Content: err.Error()}
}

// compute 分段求解磁场，合并后追踪磁力线
func (h *Hub) compute(ctx context.Context, env model.Env) (*model.FieldData, error) {
	if len(env.Sections) == 0 {
		return nil, errors.New("no coil sections configured")
	}
	start := time.Now()
	grid, err := env.Grid.Build()
	if err != nil {
		return nil, err
	}

	fields := make([]model.MagnetFields, 0, len(env.Sections))
	for _, section := range env.Sections {
		coils, err := coil_geometry.DecomposeAll(section.Coils)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Name, err)
		}
		f, err := solver.MagnetSolve(ctx, coils, grid, solver.WithWorkers(h.cfg.Workers))
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Name, err)
		}
		fields = append(fields, f)
	}
	all, err := solver.Combine(fields...)
	if err != nil {
		return nil, err
	}

	var traces []model.Trace
	if env.Tracer.Lines > 0 {
		tracer := field_line.NewTracer(env.Tracer)
		tracer.Workers = h.cfg.Workers
		traces, err = tracer.Trace(ctx, all[model.Total], grid)
		if err != nil {
			return nil, err
		}
	}

	data := buildData(all, grid, traces, h.cfg.StrideZ, h.cfg.StrideR)
	log.WithFields(log.Fields{
		"sections": len(env.Sections),
		"coils":    len(data.Coils),
		"duration": time.Since(start),
	}).Info("计算完成")
	return data, nil
}
