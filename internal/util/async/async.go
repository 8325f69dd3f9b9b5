package async

import (
	"context"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes multiple tasks in parallel and returns the first error encountered.
// All tasks are started concurrently, and the function waits for all to complete.
// If any task returns an error, the first error is returned after all tasks finish.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "mount-target-a", Func: createMountTargetA},
//	    {Name: "mount-target-b", Func: createMountTargetB},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	errs := RunAll(ctx, tasks)
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("%s: %w", tasks[i].Name, err)
		}
	}
	return nil
}

// RunAll executes all tasks in parallel and returns one error slot per task,
// in task order. Slots of successful tasks are nil.
func RunAll(ctx context.Context, tasks []Task) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	type result struct {
		index int
		err   error
	}

	resultChan := make(chan result, len(tasks))

	for i, task := range tasks {
		go func() {
			resultChan <- result{index: i, err: task.Func(ctx)}
		}()
	}

	for range len(tasks) {
		res := <-resultChan
		errs[res.index] = res.err
	}
	return errs
}
