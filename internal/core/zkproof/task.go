package zkproof

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// 阻塞任务定义
// ============================================================================

// TaskStatus 任务状态
type TaskStatus string

const (
	// TaskStatusPending 待处理
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusRunning 运行中
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusCompleted 已完成
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed 失败
	TaskStatusFailed TaskStatus = "failed"
)

// Task 提交到调度器的阻塞任务
//
// 任务一旦提交便不可取消，只会运行至完成或失败。
type Task struct {
	// 任务ID（唯一标识）
	TaskID string

	// 操作名称（setup_srs、prove 等）
	Op string

	mu          sync.Mutex
	status      TaskStatus
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	err         error

	run func() error
}

// newTask 创建任务，run 返回的错误只用于状态记录
func newTask(op string, run func() error) *Task {
	return &Task{
		TaskID:    uuid.NewString(),
		Op:        op,
		status:    TaskStatusPending,
		createdAt: time.Now(),
		run:       run,
	}
}

// MarkRunning 标记任务为运行中
func (t *Task) MarkRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusRunning
	t.startedAt = time.Now()
}

// MarkCompleted 标记任务为已完成
func (t *Task) MarkCompleted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusCompleted
	t.completedAt = time.Now()
}

// MarkFailed 标记任务为失败
func (t *Task) MarkFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusFailed
	t.err = err
	t.completedAt = time.Now()
}

// Status 获取任务状态
func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Err 获取失败原因
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// WaitTime 排队等待时长
func (t *Task) WaitTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		return time.Since(t.createdAt)
	}
	return t.startedAt.Sub(t.createdAt)
}

// Duration 执行时长
func (t *Task) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		return 0
	}
	if t.completedAt.IsZero() {
		return time.Since(t.startedAt)
	}
	return t.completedAt.Sub(t.startedAt)
}
