package zkproof

import (
	"context"
	"fmt"
	"sync"
)

// Future 单次完成的异步结果
//
// Await 的 ctx 只结束等待，不会取消已提交的计算。
type Future[T any] struct {
	taskID string
	done   chan struct{}
	once   sync.Once
	value  T
	err    error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve 设置结果，只有第一次调用生效
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// TaskID 对应的调度任务ID
func (f *Future[T]) TaskID() string { return f.taskID }

// Done 完成时关闭的通道
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await 等待结果
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get 阻塞等待结果
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// Resolved 返回已完成的 Future
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}

// Then 在结果就绪后以转换函数生成新的 Future，不占用工作线程
func Then[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	out := newFuture[U]()
	out.taskID = f.taskID
	go func() {
		v, err := f.Get()
		out.resolve(fn(v, err))
	}()
	return out
}

// Submit 将阻塞函数提交到工作线程池，返回其结果的 Future
//
// fn 中的 panic 被捕获并以 ErrTaskPanicked 结束 Future。
func Submit[T any](pool *WorkerPool, op string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	task := newTask(op, func() (err error) {
		var v T
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: %v", ErrTaskPanicked, op, r)
				var zero T
				f.resolve(zero, err)
			}
		}()
		v, err = fn()
		f.resolve(v, err)
		return err
	})
	f.taskID = task.TaskID

	if err := pool.Submit(task); err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}
