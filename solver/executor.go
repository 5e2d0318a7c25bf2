package solver

import (
	"context"
	"sync"
)

// 基于下标区间的任务分配
type executor struct {
	workers int
}

type task struct {
	index int // 任务序号，用于按顺序合并结果
	start int
	end   int
}

func newExecutor(workers int) *executor {
	if workers < 1 {
		workers = 1
	}
	return &executor{workers: workers}
}

// splitTasks 将 [0, total) 切分为连续区间
// 先按 workers 均分，每份再对半分；余数逐个单独成任务
func splitTasks(total, workers int) []task {
	var tasks []task
	if total <= 0 {
		return tasks
	}
	if workers < 1 {
		workers = 1
	}
	taskLen, remainder := total/workers, total%workers

	start := 0
	add := func(n int) {
		tasks = append(tasks, task{index: len(tasks), start: start, end: start + n})
		start += n
	}
	if taskLen == 1 {
		for start < total-remainder {
			add(1)
		}
	} else if taskLen > 1 {
		half1, half2 := taskLen/2, taskLen/2
		if taskLen%2 == 1 {
			half2++
		}
		for start < total-remainder {
			add(half1)
			add(half2)
		}
	}
	for i := 0; i < remainder; i++ {
		add(1)
	}
	return tasks
}

// run 将任务分发给 workers 个 goroutine，全部完成或 ctx 取消后返回
func (e *executor) run(ctx context.Context, tasks []task, f func(t task)) error {
	dispatch := make(chan task)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range dispatch {
				f(t)
			}
		}()
	}

	var err error
LOOP:
	for _, t := range tasks {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break LOOP
		case dispatch <- t:
		}
	}
	close(dispatch)
	wg.Wait()

	if err == nil {
		err = ctx.Err()
	}
	return err
}
