package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthChecker reports backend health.
type HealthChecker interface {
	GetHealth(ctx context.Context) (map[string]any, error)
}

// HealthStatus is the last known backend reachability.
type HealthStatus struct {
	Online      bool           `json:"online"`
	Status      string         `json:"status"`
	LastChecked time.Time      `json:"last_checked"`
	LastOnline  time.Time      `json:"last_online,omitempty"`
	LatencyMS   int64          `json:"latency_ms"`
	LastError   string         `json:"last_error,omitempty"`
	Checks      int            `json:"checks"`
	Details     map[string]any `json:"details,omitempty"`
}

// HealthMonitor polls the backend health endpoint on a fixed interval.
type HealthMonitor struct {
	checker HealthChecker
	timeout time.Duration
	logger  *zap.Logger
	task    *Task

	mu     sync.RWMutex
	status HealthStatus
}

func NewHealthMonitor(checker HealthChecker, interval, timeout time.Duration, logger *zap.Logger) *HealthMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	m := &HealthMonitor{
		checker: checker,
		timeout: timeout,
		logger:  logger,
		status:  HealthStatus{Status: "unknown"},
	}
	m.task = &Task{Interval: interval, Fn: func(ctx context.Context) { m.Check(ctx) }}
	return m
}

func (m *HealthMonitor) Start(ctx context.Context) { m.task.Start(ctx) }

func (m *HealthMonitor) Stop() { m.task.Stop() }

// Check asks once and records the outcome. Transitions are logged.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	details, err := m.checker.GetHealth(ctx)
	latency := time.Since(start).Milliseconds()

	m.mu.Lock()
	defer m.mu.Unlock()
	wasOnline := m.status.Online
	m.status.Checks++
	m.status.LastChecked = time.Now().UTC()
	m.status.LatencyMS = latency
	if err != nil {
		m.status.Online = false
		m.status.Status = "offline"
		m.status.LastError = err.Error()
		m.status.Details = nil
		if wasOnline || m.status.Checks == 1 {
			m.logger.Warn("backend offline", zap.Error(err))
		}
		return m.status
	}
	m.status.Online = true
	m.status.Status = "online"
	if s, ok := details["status"].(string); ok && s != "" {
		m.status.Status = s
	}
	m.status.LastOnline = m.status.LastChecked
	m.status.LastError = ""
	m.status.Details = details
	if !wasOnline && m.status.Checks > 1 {
		m.logger.Info("backend back online", zap.Int64("latency_ms", latency))
	}
	return m.status
}

// Status returns the last recorded health.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
