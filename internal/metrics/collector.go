package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatusCounter 按状态统计数据请求
type StatusCounter func(ctx context.Context) (map[string]int64, error)

// Collector 指标收集器
type Collector struct {
	db       *gorm.DB
	counter  StatusCounter
	interval time.Duration
	logger   logrus.FieldLogger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  sync.Once
	stopped  sync.Once
	running  bool
}

// NewCollector 创建指标收集器,counter 可以为 nil
func NewCollector(db *gorm.DB, counter StatusCounter, interval time.Duration, logger logrus.FieldLogger) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		counter:  counter,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
// 重复调用只启动一次
func (c *Collector) Start() {
	c.started.Do(func() {
		c.running = true
		go c.collect()
	})
}

// Stop 停止指标收集器
// 未启动时直接返回,可重复调用
func (c *Collector) Stop() {
	c.stopped.Do(func() {
		// 阻止 Stop 之后的 Start
		c.started.Do(func() {})
		c.cancel()
		if c.running {
			<-c.done
		}
	})
}

// CollectOnce 执行一次收集
func (c *Collector) CollectOnce() {
	if err := UpdateDatabaseConnections(c.db); err != nil {
		c.logger.WithError(err).Debug("failed to update database connection metrics")
	}

	if c.counter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, c.interval)
	defer cancel()
	counts, err := c.counter(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("failed to count data requests by status")
		return
	}
	for status, count := range counts {
		UpdateRequestsByStatus(status, float64(count))
	}
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce()
		}
	}
}
