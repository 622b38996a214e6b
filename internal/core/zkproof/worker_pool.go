package zkproof

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/weisyn/noirzk/pkg/interfaces/infrastructure/log"
)

// ============================================================================
// 阻塞任务工作线程池
// ============================================================================
//
// 🎯 **设计目的**：
// 所有证明相关操作都是同步的重计算，调度器把它们放到固定数量的工作线程上执行，
// 调用方只拿到 Future，自己的执行上下文不会被阻塞。
//
// ⚠️ **注意**：
// - 任务不可取消，也不重试
// - 提交永不阻塞调用方；超过 softLimit 的积压只记录告警
// - Stop 会执行完已排队的任务后再返回
//
// ============================================================================

// WorkerHealthStatus 工作线程健康状态
type WorkerHealthStatus string

const (
	// WorkerHealthHealthy 健康
	WorkerHealthHealthy WorkerHealthStatus = "healthy"

	// WorkerHealthDegraded 降级（失败率超过一半）
	WorkerHealthDegraded WorkerHealthStatus = "degraded"
)

// Worker 工作线程
type Worker struct {
	workerID int
	pool     *WorkerPool

	processedCount atomic.Int64
	successCount   atomic.Int64
	errorCount     atomic.Int64

	healthStatus    atomic.Value // WorkerHealthStatus
	lastHealthCheck atomic.Value // time.Time
}

func newWorker(id int, pool *WorkerPool) *Worker {
	w := &Worker{workerID: id, pool: pool}
	w.healthStatus.Store(WorkerHealthHealthy)
	w.lastHealthCheck.Store(time.Now())
	return w
}

// run 工作线程主循环，队列关闭且为空时退出
func (w *Worker) run() {
	defer w.pool.wg.Done()
	for {
		task, ok := w.pool.dequeue()
		if !ok {
			return
		}
		w.processTask(task)
	}
}

// processTask 处理任务
func (w *Worker) processTask(task *Task) {
	task.MarkRunning()
	err := task.run()
	w.processedCount.Add(1)

	if err != nil {
		w.errorCount.Add(1)
		task.MarkFailed(err)
		if w.pool.logger != nil {
			w.pool.logger.Debugf("工作线程%d任务失败: taskID=%s, op=%s, 耗时=%s, error=%v",
				w.workerID, task.TaskID, task.Op, task.Duration(), err)
		}
	} else {
		w.successCount.Add(1)
		task.MarkCompleted()
		if w.pool.logger != nil {
			w.pool.logger.Debugf("工作线程%d任务完成: taskID=%s, op=%s, 排队=%s, 耗时=%s",
				w.workerID, task.TaskID, task.Op, task.WaitTime(), task.Duration())
		}
	}
	w.updateHealthStatus()
}

// updateHealthStatus 根据失败率更新健康状态
func (w *Worker) updateHealthStatus() {
	w.lastHealthCheck.Store(time.Now())
	errs, total := w.errorCount.Load(), w.processedCount.Load()
	if total > 0 && float64(errs)/float64(total) > 0.5 {
		w.healthStatus.Store(WorkerHealthDegraded)
		return
	}
	w.healthStatus.Store(WorkerHealthHealthy)
}

// GetStats 获取统计信息
func (w *Worker) GetStats() map[string]interface{} {
	healthStatus, _ := w.healthStatus.Load().(WorkerHealthStatus)
	lastHealthCheck, _ := w.lastHealthCheck.Load().(time.Time)

	return map[string]interface{}{
		"worker_id":         w.workerID,
		"processed_count":   w.processedCount.Load(),
		"success_count":     w.successCount.Load(),
		"error_count":       w.errorCount.Load(),
		"health_status":     string(healthStatus),
		"last_health_check": lastHealthCheck,
	}
}

// GetHealthStatus 获取健康状态
func (w *Worker) GetHealthStatus() WorkerHealthStatus {
	status, _ := w.healthStatus.Load().(WorkerHealthStatus)
	return status
}

// WorkerPool 固定大小的工作线程池
type WorkerPool struct {
	logger    log.Logger
	size      int
	softLimit int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	started bool
	closed  bool

	workers []*Worker
	wg      sync.WaitGroup
}

// NewWorkerPool 创建工作线程池
func NewWorkerPool(size, softLimit int, logger log.Logger) *WorkerPool {
	if size <= 0 {
		size = 2
	}
	if softLimit <= 0 {
		softLimit = 64
	}
	p := &WorkerPool{logger: logger, size: size, softLimit: softLimit}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start 启动工作线程，重复调用无效
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.startLocked()

	if p.logger != nil {
		p.logger.Infof("✅ 阻塞任务工作线程池已启动: workerCount=%d", p.size)
	}
}

func (p *WorkerPool) startLocked() {
	p.workers = make([]*Worker, p.size)
	for i := range p.workers {
		w := newWorker(i, p)
		p.workers[i] = w
		p.wg.Add(1)
		go w.run()
	}
	p.started = true
}

// Submit 入队任务；池已停止时返回 ErrDispatcherStopped
func (p *WorkerPool) Submit(task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrDispatcherStopped
	}

	p.queue = append(p.queue, task)
	depth := len(p.queue)
	zkDispatcherQueueDepth.Set(float64(depth))
	if depth > p.softLimit && p.logger != nil {
		p.logger.Warnf("阻塞任务积压: depth=%d, limit=%d, op=%s", depth, p.softLimit, task.Op)
	}
	p.cond.Signal()
	return nil
}

// dequeue 取出任务；队列关闭且为空时返回 false
func (p *WorkerPool) dequeue() (*Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}

	task := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	zkDispatcherQueueDepth.Set(float64(len(p.queue)))
	return task, true
}

// Stop 停止接收新任务，等待已排队任务执行完毕
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if !p.started && len(p.queue) > 0 {
		// 未启动但已有排队任务：启动工作线程把它们执行完
		p.startLocked()
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	if p.logger != nil {
		p.logger.Info("阻塞任务工作线程池已停止")
	}
}

// QueueDepth 当前排队任务数
func (p *WorkerPool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// GetStats 获取所有工作线程的统计信息
func (p *WorkerPool) GetStats() []map[string]interface{} {
	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()

	stats := make([]map[string]interface{}, 0, len(workers))
	for _, w := range workers {
		stats = append(stats, w.GetStats())
	}
	return stats
}

// Size 工作线程数量
func (p *WorkerPool) Size() int { return p.size }
