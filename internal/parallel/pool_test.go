package parallel

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(n int) []Task[int] {
	tasks := make([]Task[int], n)
	for i := range tasks {
		tasks[i] = Task[int]{Index: i, Payload: i}
	}
	return tasks
}

func TestProcessBatch(t *testing.T) {
	tasks := makeTasks(25)
	results := ProcessBatch(context.Background(), tasks, func(_ context.Context, v int) (int, error) {
		return v * 2, nil
	}, Options[int]{MaxWorkers: 4})

	require.Len(t, results, 25)
	for i := 0; i < 25; i++ {
		res := results[i]
		require.NoError(t, res.Err)
		assert.Equal(t, i*2, res.Value)
	}
}

func TestProcessBatchErrorsIsolated(t *testing.T) {
	tasks := makeTasks(10)
	results := ProcessBatch(context.Background(), tasks, func(_ context.Context, v int) (int, error) {
		if v%3 == 0 {
			return 0, fmt.Errorf("任务 %d 失败", v)
		}
		return v, nil
	}, Options[int]{MaxWorkers: 3})

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	assert.Equal(t, 4, failed) // 0, 3, 6, 9
}

func TestProcessBatchRecoversPanic(t *testing.T) {
	tasks := makeTasks(5)
	results := ProcessBatch(context.Background(), tasks, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			panic("boom")
		}
		return v, nil
	}, Options[int]{MaxWorkers: 2})

	require.Len(t, results, 5)
	require.Error(t, results[2].Err)
	assert.Contains(t, results[2].Err.Error(), "panic")
	require.NoError(t, results[4].Err)
}

func TestProcessBatchCallback(t *testing.T) {
	var calls atomic.Int64
	tasks := makeTasks(8)
	ProcessBatch(context.Background(), tasks, func(_ context.Context, v int) (int, error) {
		return v, nil
	}, Options[int]{
		MaxWorkers: 2,
		OnResult:   func(Result[int]) { calls.Add(1) },
	})
	assert.Equal(t, int64(8), calls.Load())
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := makeTasks(6)
	results := ProcessBatch(ctx, tasks, func(ctx context.Context, v int) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return v, nil
	}, Options[int]{MaxWorkers: 2})

	require.Len(t, results, 6)
	for _, res := range results {
		require.Error(t, res.Err)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	results := ProcessBatch(context.Background(), nil, func(_ context.Context, v int) (int, error) {
		return v, nil
	}, Options[int]{})
	assert.Empty(t, results)
}
