// Package monitor runs the periodic reconciliation loops: overdue loans
// become penalties, stale holds expire, unpaid penalties suspend readers.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"
)

// Monitor は固定周期で1つのチェックを回す。
// Start は起動済みなら何もしない。チェックは同一ゴルーチンで直列に走るので
// 前のサイクルが長引いても重なって実行されることはない。
type Monitor struct {
	name     string
	interval time.Duration
	check    func(ctx context.Context) error

	mu   sync.Mutex
	stop chan struct{}
}

func New(name string, interval time.Duration, check func(ctx context.Context) error) *Monitor {
	return &Monitor{name: name, interval: interval, check: check}
}

func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	go m.loop(m.stop)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop == nil {
		return
	}
	close(m.stop)
	m.stop = nil
}

func (m *Monitor) loop(stop chan struct{}) {
	// 起動直後に1回チェックしてから周期に入る
	m.RunOnce(context.Background())

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.RunOnce(context.Background())
		}
	}
}

// RunOnce executes a single cycle. A failing cycle is logged and never
// kills the loop.
func (m *Monitor) RunOnce(ctx context.Context) {
	if err := m.check(ctx); err != nil {
		log.Printf("monitor %s: %v", m.name, err)
	}
}
