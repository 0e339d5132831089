package monitor

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/metrics"
)

// Level is the memory pressure classification
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelCritical:
		return "critical"
	default:
		return "ok"
	}
}

const mb = 1024 * 1024

// Snapshot is one sample of process memory
type Snapshot struct {
	HeapAllocMB uint64    `json:"heap_alloc_mb"`
	HeapSysMB   uint64    `json:"heap_sys_mb"`
	SysMB       uint64    `json:"sys_mb"`
	NumGC       uint32    `json:"num_gc"`
	Goroutines  int       `json:"goroutines"`
	Level       string    `json:"level"`
	SampledAt   time.Time `json:"sampled_at"`
}

// Config holds thresholds and timing
type Config struct {
	Interval       time.Duration
	WarnMB         uint64
	CriticalMB     uint64
	ExitOnCritical bool
	AlertCooldown  time.Duration
}

// MemoryMonitor samples runtime memory and reacts to pressure
type MemoryMonitor struct {
	cfg Config

	// replaceable for tests
	readStats func(*runtime.MemStats)
	freeOS    func()
	now       func() time.Time

	onExit  func(reason string)
	onAlert func(level Level, snap Snapshot)

	mu         sync.RWMutex
	last       Snapshot
	lastAlerts map[Level]time.Time
}

// NewMemoryMonitor creates a monitor. onExit is invoked when memory stays critical after a forced GC
// and ExitOnCritical is set.
func NewMemoryMonitor(cfg Config, onExit func(reason string)) *MemoryMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = 5 * time.Minute
	}
	return &MemoryMonitor{
		cfg:        cfg,
		readStats:  runtime.ReadMemStats,
		freeOS:     debug.FreeOSMemory,
		now:        time.Now,
		onExit:     onExit,
		lastAlerts: make(map[Level]time.Time),
	}
}

// OnAlert registers a callback for rate-limited alerts
func (m *MemoryMonitor) OnAlert(fn func(level Level, snap Snapshot)) {
	m.onAlert = fn
}

// Start samples on every interval until ctx is cancelled
func (m *MemoryMonitor) Start(ctx context.Context) {
	logger.Info("Memory monitor started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Uint64("warn_mb", m.cfg.WarnMB),
		zap.Uint64("critical_mb", m.cfg.CriticalMB))

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.Check()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Memory monitor stopped")
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

func (m *MemoryMonitor) sample() Snapshot {
	var ms runtime.MemStats
	m.readStats(&ms)
	snap := Snapshot{
		HeapAllocMB: ms.HeapAlloc / mb,
		HeapSysMB:   ms.HeapSys / mb,
		SysMB:       ms.Sys / mb,
		NumGC:       ms.NumGC,
		Goroutines:  runtime.NumGoroutine(),
		SampledAt:   m.now(),
	}
	snap.Level = m.classify(snap.HeapAllocMB).String()

	metrics.HeapAllocBytes.Set(float64(ms.HeapAlloc))
	metrics.SysBytes.Set(float64(ms.Sys))
	metrics.Goroutines.Set(float64(snap.Goroutines))
	return snap
}

func (m *MemoryMonitor) classify(heapMB uint64) Level {
	switch {
	case m.cfg.CriticalMB > 0 && heapMB >= m.cfg.CriticalMB:
		return LevelCritical
	case m.cfg.WarnMB > 0 && heapMB >= m.cfg.WarnMB:
		return LevelWarn
	default:
		return LevelOK
	}
}

// Check takes one sample and applies the threshold policy. It returns the resulting level.
func (m *MemoryMonitor) Check() Level {
	snap := m.sample()
	level := m.classify(snap.HeapAllocMB)

	if level == LevelCritical {
		logger.Error("Memory critical, forcing garbage collection",
			zap.Uint64("heap_alloc_mb", snap.HeapAllocMB),
			zap.Uint64("critical_mb", m.cfg.CriticalMB))
		m.alert(LevelCritical, snap)

		runtime.GC()
		m.freeOS()
		metrics.ForcedGCTotal.Inc()

		snap = m.sample()
		level = m.classify(snap.HeapAllocMB)
		if level == LevelCritical && m.cfg.ExitOnCritical && m.onExit != nil {
			logger.Error("Memory still critical after GC, requesting shutdown",
				zap.Uint64("heap_alloc_mb", snap.HeapAllocMB))
			m.onExit("memory critical after forced GC")
		}
	} else if level == LevelWarn {
		logger.Warn("Memory above warning threshold",
			zap.Uint64("heap_alloc_mb", snap.HeapAllocMB),
			zap.Uint64("warn_mb", m.cfg.WarnMB))
		m.alert(LevelWarn, snap)
	}

	metrics.MemoryLevel.Set(float64(level))

	m.mu.Lock()
	m.last = snap
	m.mu.Unlock()
	return level
}

// alert fires onAlert at most once per level per cooldown
func (m *MemoryMonitor) alert(level Level, snap Snapshot) bool {
	now := m.now()

	m.mu.Lock()
	last, seen := m.lastAlerts[level]
	if seen && now.Sub(last) < m.cfg.AlertCooldown {
		m.mu.Unlock()
		return false
	}
	m.lastAlerts[level] = now
	m.mu.Unlock()

	if m.onAlert != nil {
		m.onAlert(level, snap)
	}
	return true
}

// Last returns the most recent snapshot
func (m *MemoryMonitor) Last() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
