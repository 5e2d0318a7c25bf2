package solver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"coilfield/model"
)

var (
	ErrDuplicateCoil = errors.New("duplicate coil name")
	ErrReservedName  = errors.New("reserved coil name")
	ErrNoCoils       = errors.New("no coils")
)

// ProgressFunc 每完成一个电流环调用一次，仅用于展示
type ProgressFunc func(coil string, done, total int)

type options struct {
	workers  int
	progress ProgressFunc
}

type Option func(*options)

func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func WithProgress(f ProgressFunc) Option {
	return func(o *options) {
		o.progress = f
	}
}

// MagnetSolve 计算每个线圈的磁场及总场
// 返回值中每个线圈名对应该线圈所有电流环之和，model.Total 对应所有线圈之和
func MagnetSolve(ctx context.Context, coils []model.Coil, g *model.Grid, opts ...Option) (model.MagnetFields, error) {
	o := options{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkGrid(g); err != nil {
		return nil, err
	}
	loops, err := checkCoils(coils)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	e := newExecutor(o.workers)
	fields := make(model.MagnetFields, len(coils)+1)
	total := model.NewFieldMap(g)
	for _, coil := range coils {
		fm, err := e.solveCoil(ctx, coil, g, o.progress)
		if err != nil {
			return nil, err
		}
		fields[coil.Name] = fm
		total.Add(fm)
		log.WithFields(log.Fields{
			"coil":  coil.Name,
			"loops": len(coil.Loops),
		}).Debug("线圈磁场计算完成")
	}
	fields[model.Total] = total

	log.WithFields(log.Fields{
		"coils":    len(coils),
		"loops":    loops,
		"workers":  e.workers,
		"duration": time.Since(start),
	}).Info("磁场计算完成")
	return fields, nil
}

// solveCoil 每个任务按顺序累加一段电流环，再按任务顺序合并，结果与调度无关
func (e *executor) solveCoil(ctx context.Context, coil model.Coil, g *model.Grid, progress ProgressFunc) (*model.FieldMap, error) {
	nz, nr := g.Shape()
	tasks := splitTasks(len(coil.Loops), e.workers)
	partials := make([]*model.FieldMap, len(tasks))

	var mu sync.Mutex
	done := 0
	err := e.run(ctx, tasks, func(t task) {
		fm := model.NewFieldMap(g)
		br, bz := fm.Br.RawMatrix().Data, fm.Bz.RawMatrix().Data
		for l := t.start; l < t.end; l++ {
			if ctx.Err() != nil {
				return
			}
			addLoop(coil.Loops[l], g, br, bz)
			if progress != nil {
				mu.Lock()
				done++
				progress(coil.Name, done, len(coil.Loops))
				mu.Unlock()
			}
		}
		partials[t.index] = fm
	})
	if err != nil {
		return nil, err
	}

	sum := &model.FieldMap{
		Br: mat.NewDense(nz, nr, nil),
		Bz: mat.NewDense(nz, nr, nil),
	}
	br, bz := sum.Br.RawMatrix().Data, sum.Bz.RawMatrix().Data
	for _, p := range partials {
		floats.Add(br, p.Br.RawMatrix().Data)
		floats.Add(bz, p.Bz.RawMatrix().Data)
	}
	return sum, nil
}

func checkCoils(coils []model.Coil) (int, error) {
	seen := make(map[string]bool, len(coils))
	loops := 0
	for _, coil := range coils {
		if coil.Name == model.Total {
			return 0, fmt.Errorf("%w: %q", ErrReservedName, coil.Name)
		}
		if seen[coil.Name] {
			return 0, fmt.Errorf("%w: %q", ErrDuplicateCoil, coil.Name)
		}
		seen[coil.Name] = true
		for i, loop := range coil.Loops {
			if err := checkLoop(loop); err != nil {
				return 0, fmt.Errorf("coil %q loop %d: %w", coil.Name, i, err)
			}
		}
		loops += len(coil.Loops)
	}
	return loops, nil
}

// Combine 合并多个线圈段的计算结果，总场重新求和
func Combine(sections ...model.MagnetFields) (model.MagnetFields, error) {
	res := make(model.MagnetFields)
	var total *model.FieldMap
	for _, section := range sections {
		for _, name := range section.Names() {
			if _, ok := res[name]; ok {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateCoil, name)
			}
			fm := section[name]
			res[name] = fm
			if total == nil {
				total = fm.Clone()
			} else {
				total.Add(fm)
			}
		}
	}
	if total == nil {
		return nil, ErrNoCoils
	}
	res[model.Total] = total
	return res, nil
}
