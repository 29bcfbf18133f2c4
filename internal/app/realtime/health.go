/*
Package realtime contains the core logic for live connections, presence, room
membership, and event fan-out.

This file defines the HealthMonitor, the periodic liveness sweep that probes
quiet connections and evicts dead ones. The sweep walks a registry snapshot,
so it never holds a lock that would stall Send or Broadcast beyond a single
connection's eviction.
*/
package realtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
)

// HealthMonitor periodically sweeps the registry. A connection silent past the
// warn threshold receives a heartbeat probe; one silent past the dead
// threshold is evicted via Unregister, which frees its rooms and flips
// presence, which in turn lets the session engine settle abandoned sessions.
type HealthMonitor struct {
	reg      *Registry
	warn     time.Duration
	dead     time.Duration
	interval time.Duration
	logger   zerolog.Logger

	now func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewHealthMonitor constructs a monitor with the given thresholds. warn must
// be below dead; configs.LoadConfig enforces that.
func NewHealthMonitor(reg *Registry, warn, dead, interval time.Duration) *HealthMonitor {
	return &HealthMonitor{
		reg:      reg,
		warn:     warn,
		dead:     dead,
		interval: interval,
		logger:   logx.Component("health_monitor"),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (m *HealthMonitor) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Stop terminates the sweep loop and waits for it to exit.
func (m *HealthMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}

func (m *HealthMonitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.interval).Dur("warn", m.warn).
		Dur("dead", m.dead).Msg("Health sweep loop started.")

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			m.logger.Info().Msg("Health sweep loop stopped.")
			return
		}
	}
}

// Sweep runs one pass over all live connections. Exported so tests and
// administrative tooling can force a sweep without waiting for the ticker.
func (m *HealthMonitor) Sweep() {
	now := m.now()

	probed := 0
	evicted := 0

	for _, conn := range m.reg.Connections() {
		silence := now.Sub(conn.LastHeartbeat())

		switch {
		case silence >= m.dead:
			m.logger.Warn().Str("conn_id", conn.ID).Str("user_id", conn.UserID).
				Dur("silence", silence).Msg("Evicting dead connection.")
			m.reg.Unregister(conn.ID)
			evicted++

		case silence >= m.warn:
			// Send handles a dead transport by unregistering on its own.
			if m.reg.Send(conn.ID, NewEvent(EventProbe, nil)) {
				probed++
			}
		}
	}

	if probed > 0 || evicted > 0 {
		m.logger.Info().Int("probed", probed).Int("evicted", evicted).Msg("Health sweep completed.")
	}
}
