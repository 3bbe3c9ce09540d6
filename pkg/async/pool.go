package async

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	opStartedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunkstore",
		Subsystem: "async_pool",
		Name:      "op_started_total",
		Help:      "The number of blocking operations submitted to the pool, by operation name.",
	}, []string{"op"})
	opWaitSecondsMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chunkstore",
		Subsystem: "async_pool",
		Name:      "wait_seconds",
		Help:      "Distribution of time spent waiting for a free worker slot, by operation name.",
		Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 0.5, 1, 10, 30, 60},
	}, []string{"op"})
	opFailedMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunkstore",
		Subsystem: "async_pool",
		Name:      "op_failed_total",
		Help:      "The number of blocking operations that returned an error, by operation name.",
	}, []string{"op"})
	inFlightMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chunkstore",
		Subsystem: "async_pool",
		Name:      "in_flight",
		Help:      "The number of blocking operations currently holding a worker slot.",
	})
)

const slotCost = 1

// DefaultSize 是未配置时的 worker 数量
const DefaultSize = 16

// Pool 是阻塞调用的后台执行上下文
// 调用方永远不会被阻塞：Submit 立刻返回 Future，真正的 I/O 在后台 goroutine 中排队执行
// 并发度由 semaphore 限制，池满时新任务在后台等待 (隐式背压)，没有超时
type Pool struct {
	sem  *semaphore.Weighted
	size int
	log  *logrus.Entry
}

// NewPool 创建一个最多同时运行 size 个阻塞调用的 Pool
// size < 1 表示不限制
func NewPool(size int, log *logrus.Entry) *Pool {
	if size < 1 {
		size = math.MaxInt32
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
		log:  log.WithField("component", "async-pool"),
	}
}

// Size 返回最大并发数
func (p *Pool) Size() int {
	return p.size
}

// Submit 把阻塞函数 fn 调度到后台执行
// fn 中的 panic 会被捕获并转换为 error，Future 恰好兑现一次
func Submit[T any](p *Pool, op string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	opStartedMetric.WithLabelValues(op).Inc()
	queued := time.Now()

	go func() {
		// Background 永远不会取消，所以 Acquire 只会在拿到 slot 后返回
		_ = p.sem.Acquire(context.Background(), slotCost)
		opWaitSecondsMetric.WithLabelValues(op).Observe(time.Since(queued).Seconds())
		inFlightMetric.Inc()

		v, err := run(p.log, op, fn)

		inFlightMetric.Dec()
		p.sem.Release(slotCost)

		if err != nil {
			opFailedMetric.WithLabelValues(op).Inc()
		}
		f.complete(v, err)
	}()
	return f
}

func run[T any](log *logrus.Entry, op string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"op":    op,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("🔥 panic recovered in background operation")
			var zero T
			v, err = zero, fmt.Errorf("%s: panic recovered: %v", op, r)
		}
	}()
	return fn()
}

// Go 在独立的 goroutine 中运行 fn，不占用任何 Pool slot
// 用于串联多次 Submit 的协调逻辑，协调者本身不能占着 worker 等待
func Go[T any](p *Pool, op string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.complete(run(p.log, op, fn))
	}()
	return f
}
