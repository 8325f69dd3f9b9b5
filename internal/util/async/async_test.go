package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParallel_Success(t *testing.T) {
	t.Parallel()
	var count atomic.Int32

	tasks := make([]Task, 3)
	for i := range tasks {
		tasks[i] = Task{Name: "task", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}}
	}

	require.NoError(t, RunParallel(context.Background(), tasks))
	assert.Equal(t, int32(3), count.Load())
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	t.Parallel()
	assert.NoError(t, RunParallel(context.Background(), nil))
	assert.Empty(t, RunAll(context.Background(), nil))
}

func TestRunParallel_ErrorNamesTask(t *testing.T) {
	t.Parallel()
	expectedErr := errors.New("task failed")

	tasks := []Task{
		{Name: "success", Func: func(_ context.Context) error { return nil }},
		{Name: "failing", Func: func(_ context.Context) error { return expectedErr }},
	}

	err := RunParallel(context.Background(), tasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Contains(t, err.Error(), "failing")
}

func TestRunParallel_WaitsForAllTasks(t *testing.T) {
	t.Parallel()
	var finished atomic.Bool

	tasks := []Task{
		{Name: "fast-fail", Func: func(_ context.Context) error { return errors.New("boom") }},
		{Name: "slow", Func: func(_ context.Context) error {
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil
		}},
	}

	require.Error(t, RunParallel(context.Background(), tasks))
	assert.True(t, finished.Load())
}

func TestRunAll_OrderedErrors(t *testing.T) {
	t.Parallel()
	second := errors.New("second")

	errs := RunAll(context.Background(), []Task{
		{Name: "a", Func: func(_ context.Context) error { return nil }},
		{Name: "b", Func: func(_ context.Context) error { return second }},
		{Name: "c", Func: func(_ context.Context) error { return nil }},
	})

	require.Len(t, errs, 3)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], second)
	assert.NoError(t, errs[2])
}
