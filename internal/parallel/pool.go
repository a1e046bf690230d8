// Package parallel 提供批量导出用的有界并发执行器。
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/nikk909/Document-Management-System-DMS/internal/logger"
)

// Task 是一个带序号的批量任务。
type Task[T any] struct {
	Index   int
	Payload T
}

// Result 是一个任务的产出，Index 与任务一一对应。
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Options 控制批量执行行为。
type Options[R any] struct {
	// MaxWorkers 并发上限，0 表示取 CPU 核数
	MaxWorkers int
	// OnResult 每完成一个任务回调一次，可为 nil。按完成顺序调用。
	OnResult func(Result[R])
	Log      logger.Logger
}

// ProcessBatch 并发执行全部任务，返回按任务序号索引的结果表。
// 单个任务的 panic 被捕获并转成该任务的错误，不影响其余任务。
func ProcessBatch[T, R any](ctx context.Context, tasks []Task[T], fn func(context.Context, T) (R, error), opts Options[R]) map[int]Result[R] {
	log := opts.Log
	if log == nil {
		log = logger.NewNopLogger()
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	if workers < 1 {
		workers = 1
	}
	log.Info("批量任务开始", zap.Int("tasks", len(tasks)), zap.Int("workers", workers))

	taskCh := make(chan Task[T])
	resultCh := make(chan Result[R])

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- runOne(ctx, task, fn)
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[int]Result[R], len(tasks))
	completed := 0
	for res := range resultCh {
		results[res.Index] = res
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
		completed++
		// 文档生成会产生大量临时对象，周期性主动回收
		if completed%10 == 0 {
			runtime.GC()
		}
	}
	runtime.GC()

	// 被取消时给未执行的任务补上失败结果
	for _, task := range tasks {
		if _, ok := results[task.Index]; !ok {
			results[task.Index] = Result[R]{Index: task.Index, Err: ctx.Err()}
		}
	}
	log.Info("批量任务结束", zap.Int("completed", completed))
	return results
}

func runOne[T, R any](ctx context.Context, task Task[T], fn func(context.Context, T) (R, error)) (res Result[R]) {
	res.Index = task.Index
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("任务 %d 发生 panic: %v", task.Index, r)
		}
	}()
	res.Value, res.Err = fn(ctx, task.Payload)
	return res
}
