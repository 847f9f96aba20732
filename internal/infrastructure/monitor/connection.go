package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Probe checks one dependency. Required probes decide whether the service is online.
type Probe struct {
	Name     string
	Required bool
	Timeout  time.Duration
	Check    func(ctx context.Context) error
}

func PostgresProbe(pool *pgxpool.Pool) Probe {
	return Probe{
		Name:     "postgresql",
		Required: true,
		Timeout:  3 * time.Second,
		Check:    pool.Ping,
	}
}

// RedisProbe is optional: a missing cache only slows leaderboard reads.
func RedisProbe(client *redislib.Client) Probe {
	return Probe{
		Name:    "redis",
		Timeout: 2 * time.Second,
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

func NATSProbe(conn *nats.Conn) Probe {
	return Probe{
		Name: "nats",
		Check: func(context.Context) error {
			if conn.IsConnected() {
				return nil
			}
			return nats.ErrConnectionClosed
		},
	}
}

// BufferSizer reports how many writes wait for replay.
type BufferSizer interface {
	Size() (int, error)
}

type Monitor struct {
	probes []Probe
	buffer BufferSizer

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(probes []Probe, buf BufferSizer, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probes:   probes,
		buffer:   buf,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh(context.Background())
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every required dependency answered the last check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.clone()
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every probe once and stores the result.
func (m *Monitor) Refresh(ctx context.Context) {
	status := Status{
		Services:  make(map[string]ServiceStatus, len(m.probes)),
		LastCheck: time.Now(),
	}
	for _, probe := range m.probes {
		status.Services[probe.Name] = ServiceStatus{
			Online:   m.check(ctx, probe),
			Required: probe.Required,
		}
	}
	status.Buffer, status.BufferSize = m.checkBuffer()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Healthy() != status.Healthy() {
		m.logger.Warn("dependency state changed", zap.Bool("online", status.Healthy()))
	}
}

func (m *Monitor) check(ctx context.Context, probe Probe) bool {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := probe.Check(ctx); err != nil {
		m.logger.Debug("probe failed", zap.String("service", probe.Name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
