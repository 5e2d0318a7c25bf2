package field_line

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"coilfield/model"
)

var ErrInvalidTracer = errors.New("invalid tracer settings")

const DefaultSeedOffset = 1e-6

// Tracer 从 z 最小的边界出发，追踪一组磁力线
type Tracer struct {
	Lines      int     // 磁力线条数
	RWall      float64 // 壁半径，种子点 r 在 [0, RWall] 内均匀分布
	Step       float64 // 积分步长
	SeedOffset float64 // 种子点相对 z 下边界向内的偏移
	Workers    int
	MaxSteps   int // 0 表示按区域长度和步长自动确定
}

func NewTracer(cfg model.TracerCfg) *Tracer {
	t := &Tracer{
		Lines:      cfg.Lines,
		RWall:      cfg.RWall,
		Step:       cfg.Step,
		SeedOffset: cfg.SeedOffset,
		Workers:    runtime.NumCPU(),
	}
	if t.SeedOffset == 0 {
		t.SeedOffset = DefaultSeedOffset
	}
	return t
}

func (t *Tracer) check(g *model.Grid) error {
	zLow, zHigh := g.ZBounds()
	switch {
	case t.Lines < 1:
		return fmt.Errorf("%w: lines %d", ErrInvalidTracer, t.Lines)
	case !(t.Step > 0) || math.IsInf(t.Step, 0):
		return fmt.Errorf("%w: step %g", ErrInvalidTracer, t.Step)
	case !(t.RWall >= 0) || math.IsInf(t.RWall, 0):
		return fmt.Errorf("%w: wall radius %g", ErrInvalidTracer, t.RWall)
	case !(t.SeedOffset >= 0) || t.SeedOffset >= zHigh-zLow:
		return fmt.Errorf("%w: seed offset %g", ErrInvalidTracer, t.SeedOffset)
	}
	return nil
}

// Box 轴向为网格范围，径向取壁半径与网格最大半径中较小者
func (t *Tracer) Box(g *model.Grid) Box {
	zLow, zHigh := g.ZBounds()
	_, rHigh := g.RBounds()
	return Box{ZLow: zLow, ZHigh: zHigh, RHigh: math.Min(t.RWall, rHigh)}
}

// Seeds 种子点 (z, r)
func (t *Tracer) Seeds(g *model.Grid) [][2]float64 {
	zLow, _ := g.ZBounds()
	rs := model.Linspace(0, t.RWall, t.Lines)
	seeds := make([][2]float64, len(rs))
	for i, r := range rs {
		seeds[i] = [2]float64{zLow + t.SeedOffset, r}
	}
	return seeds
}

func (t *Tracer) maxSteps(box Box) int {
	if t.MaxSteps > 0 {
		return t.MaxSteps
	}
	return int(math.Ceil((box.ZHigh-box.ZLow)/t.Step)) + 2
}

// Trace 每个种子点独立积分，结果顺序与 Seeds 一致
func (t *Tracer) Trace(ctx context.Context, fm *model.FieldMap, g *model.Grid) ([]model.Trace, error) {
	if err := t.check(g); err != nil {
		return nil, err
	}
	ip, err := NewRatioInterpolant(fm, g)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	box := t.Box(g)
	seeds := t.Seeds(g)
	maxSteps := t.maxSteps(box)
	traces := make([]model.Trace, len(seeds))

	workers := t.Workers
	if workers < 1 {
		workers = 1
	}
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range next {
				traces[k] = RK4Bound(ip.Eval, seeds[k][0], seeds[k][1], box, t.Step, maxSteps)
			}
		}()
	}

LOOP:
	for k := range seeds {
		select {
		case <-ctx.Done():
			break LOOP
		case next <- k:
		}
	}
	close(next)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := 0
	for _, tr := range traces {
		samples += tr.Len()
	}
	log.WithFields(log.Fields{
		"lines":    len(traces),
		"samples":  samples,
		"step":     t.Step,
		"duration": time.Since(start),
	}).Info("磁力线追踪完成")
	return traces, nil
}
