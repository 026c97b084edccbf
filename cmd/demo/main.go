// Command demo runs a small concurrent workload against an auto-scaling
// object pool and a thread pool built on top of it, for manual observation
// rather than automated testing.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/corvusware/objectpool/pool"
	"github.com/corvusware/objectpool/threadpool"
)

type connection struct {
	id int
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	runPoolWorkload(logger)
	runThreadPoolWorkload(logger)
}

func runPoolWorkload(logger *zap.Logger) {
	var nextID int
	var idMu sync.Mutex

	config, err := pool.NewAutoScaleConfigBuilder[*connection]().
		SetMinSize(4).
		SetMaxSize(64).
		SetScaleFactor(4).
		SetCheckInterval(2 * time.Second).
		SetMaxIdleTime(10 * time.Second).
		SetObjectFactory(func() (*connection, error) {
			idMu.Lock()
			nextID++
			id := nextID
			idMu.Unlock()
			return &connection{id: id}, nil
		}).
		SetOnClose(func(c *connection) {
			logger.Debug("connection closed", zap.Int("id", c.id))
		}).
		SetLogger(logger).
		Build()
	if err != nil {
		logger.Fatal("invalid pool config", zap.Error(err))
	}

	p, err := pool.NewAutoScalePool(config)
	if err != nil {
		logger.Fatal("failed to start pool", zap.Error(err))
	}
	defer p.Close()

	const workers = 8
	const jobsPerWorker = 200

	logger.Info("pool workload starting", zap.Int("workers", workers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < jobsPerWorker; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				entry, err := p.Acquire(ctx)
				cancel()
				if err != nil {
					logger.Warn("acquire failed", zap.Int("worker", worker), zap.Error(err))
					continue
				}
				time.Sleep(time.Millisecond)
				if err := p.Release(entry); err != nil {
					logger.Warn("release failed", zap.Int("worker", worker), zap.Error(err))
				}
			}
		}(i)
	}
	wg.Wait()

	stats := p.Stats()
	logger.Info("pool workload done",
		zap.Int("size", stats.Size),
		zap.Int64("created", stats.Created),
		zap.Int64("acquired", stats.Acquired),
		zap.Int64("released", stats.Released),
	)
}

func runThreadPoolWorkload(logger *zap.Logger) {
	tp, err := threadpool.NewAutoScale(2, 16, 32,
		threadpool.WithAutoScaleLogger(logger),
		threadpool.WithScaleFactor(2),
	)
	if err != nil {
		logger.Fatal("failed to start thread pool", zap.Error(err))
	}
	defer tp.Close()

	logger.Info("thread pool workload starting")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		n := i
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := tp.Submit(ctx, func() {
			defer wg.Done()
			fmt.Printf("task %d running\n", n)
			time.Sleep(5 * time.Millisecond)
		})
		cancel()
		if err != nil {
			logger.Warn("submit failed", zap.Int("task", n), zap.Error(err))
			wg.Done()
		}
	}
	wg.Wait()

	logger.Info("thread pool workload done", zap.Int("size", tp.Size()))
}
