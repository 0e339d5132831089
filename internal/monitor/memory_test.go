package monitor

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHeap feeds the monitor a scripted sequence of heap sizes in MB
func fakeHeap(values ...uint64) func(*runtime.MemStats) {
	i := 0
	return func(ms *runtime.MemStats) {
		v := values[len(values)-1]
		if i < len(values) {
			v = values[i]
		}
		i++
		ms.HeapAlloc = v * mb
		ms.Sys = v * 2 * mb
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestMonitor(exitOnCritical bool, heap func(*runtime.MemStats)) (*MemoryMonitor, *[]string, *int) {
	var exits []string
	freed := 0
	m := NewMemoryMonitor(Config{WarnMB: 100, CriticalMB: 200, ExitOnCritical: exitOnCritical, AlertCooldown: 5 * time.Minute},
		func(reason string) { exits = append(exits, reason) })
	m.readStats = heap
	m.freeOS = func() { freed++ }
	return m, &exits, &freed
}

func TestClassify(t *testing.T) {
	m := NewMemoryMonitor(Config{WarnMB: 100, CriticalMB: 200}, nil)
	assert.Equal(t, LevelOK, m.classify(99))
	assert.Equal(t, LevelWarn, m.classify(100))
	assert.Equal(t, LevelCritical, m.classify(250))
	assert.Equal(t, "critical", LevelCritical.String())
}

func TestCheck_OK(t *testing.T) {
	m, exits, freed := newTestMonitor(true, fakeHeap(50))
	assert.Equal(t, LevelOK, m.Check())
	assert.Empty(t, *exits)
	assert.Zero(t, *freed)
	assert.Equal(t, uint64(50), m.Last().HeapAllocMB)
	assert.Equal(t, "ok", m.Last().Level)
}

func TestCheck_CriticalRelievedByGC(t *testing.T) {
	m, exits, freed := newTestMonitor(true, fakeHeap(250, 80))
	assert.Equal(t, LevelOK, m.Check())
	assert.Equal(t, 1, *freed)
	assert.Empty(t, *exits)
}

func TestCheck_CriticalAfterGCExits(t *testing.T) {
	m, exits, freed := newTestMonitor(true, fakeHeap(250, 240))
	assert.Equal(t, LevelCritical, m.Check())
	assert.Equal(t, 1, *freed)
	require.Len(t, *exits, 1)
}

func TestCheck_CriticalWithoutExitFlag(t *testing.T) {
	m, exits, _ := newTestMonitor(false, fakeHeap(250, 240))
	assert.Equal(t, LevelCritical, m.Check())
	assert.Empty(t, *exits)
}

func TestAlertCooldown(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m, _, _ := newTestMonitor(false, fakeHeap(150))
	m.now = c.now

	var alerts []Level
	m.OnAlert(func(level Level, snap Snapshot) { alerts = append(alerts, level) })

	m.Check()
	c.t = c.t.Add(time.Minute)
	m.Check()
	assert.Equal(t, []Level{LevelWarn}, alerts)

	c.t = c.t.Add(5 * time.Minute)
	m.Check()
	assert.Equal(t, []Level{LevelWarn, LevelWarn}, alerts)
}

func TestAlertCooldownIsPerLevel(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m, _, _ := newTestMonitor(false, fakeHeap(150, 250, 250))
	m.now = c.now

	var alerts []Level
	m.OnAlert(func(level Level, snap Snapshot) { alerts = append(alerts, level) })

	m.Check() // warn
	m.Check() // critical, still critical after GC
	assert.Equal(t, []Level{LevelWarn, LevelCritical}, alerts)
}
