package sweeper

import (
	"context"
	"sync"
	"time"

	"ticketing/pkg/logger"
)

// JobProcessor runs the sweep on a fixed interval
type JobProcessor struct {
	service  Service
	interval time.Duration
	log      *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	runs    int
	lastRun time.Time
	lastErr error
	last    *Result
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, interval time.Duration) *JobProcessor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JobProcessor{
		service:  service,
		interval: interval,
		log:      logger.GetDefault(),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop and returns immediately
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("starting expiry sweeper", "interval", jp.interval.String())

	jp.wg.Add(1)
	go func() {
		defer jp.wg.Done()
		jp.run(ctx)
	}()
}

// Stop ends the loop and waits for a running sweep to finish
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() {
		close(jp.done)
	})
	jp.wg.Wait()
	jp.log.Info("expiry sweeper stopped")
}

func (jp *JobProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(jp.interval)
	defer ticker.Stop()

	// Run immediately on startup
	jp.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			jp.sweep(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) sweep(ctx context.Context) {
	result, err := jp.service.Sweep(ctx)
	if err != nil {
		jp.log.ErrorContext(ctx, "expiry sweep failed", "error", err)
	}

	jp.mu.Lock()
	jp.runs++
	jp.lastRun = time.Now().UTC()
	jp.lastErr = err
	jp.last = result
	jp.mu.Unlock()
}

// GetJobStatus reports whether the loop is running and how the last sweep went
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	status := "running"
	select {
	case <-jp.done:
		status = "stopped"
	default:
	}

	out := map[string]interface{}{
		"interval": jp.interval.String(),
		"status":   status,
	}

	jp.mu.Lock()
	defer jp.mu.Unlock()
	out["runs"] = jp.runs
	if jp.runs > 0 {
		out["last_run"] = jp.lastRun
		if jp.last != nil {
			out["last_result"] = *jp.last
		}
		if jp.lastErr != nil {
			out["last_error"] = jp.lastErr.Error()
		}
	}
	return out
}
