package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookio-backend/internal/library_mgmt/loans"
	"bookio-backend/internal/library_mgmt/penalties"
)

// ===== テスト用フェイク =====

type fakeLoanSource struct {
	mu    sync.Mutex
	items []loans.Loan
}

func (f *fakeLoanSource) ListOverdue(_ context.Context) ([]loans.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]loans.Loan(nil), f.items...), nil
}

// 実サービスと同じく loan_id ごとに1件しか作らない
type fakeIssuer struct {
	mu     sync.Mutex
	issued map[string]bool
}

func (f *fakeIssuer) EnsureForLoan(_ context.Context, loan *loans.Loan) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issued[loan.ID] {
		return false, nil
	}
	f.issued[loan.ID] = true
	return true, nil
}

type fakeExpirer struct {
	mu      sync.Mutex
	pending int
}

func (f *fakeExpirer) ExpireDue(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.pending
	f.pending = 0
	return n, nil
}

type fakePenaltySource struct {
	items []penalties.Penalty
}

func (f *fakePenaltySource) ListUnpaidOverdue(_ context.Context) ([]penalties.Penalty, error) {
	return append([]penalties.Penalty(nil), f.items...), nil
}

type fakeBumper struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeBumper) IncrementSuspense(_ context.Context, readerID string, by int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[readerID] += by
	return nil
}

// ===== テスト本体 =====

func TestStartIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	m := New("test", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	m.Start()
	m.Start() // 2回目は何もしない
	defer m.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestStopAndRestart(t *testing.T) {
	var runs atomic.Int32
	m := New("test", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	m.Start()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop() // 二重停止も安全

	m.Start()
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	m.Stop()
}

func TestTickerFires(t *testing.T) {
	var runs atomic.Int32
	m := New("test", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	m.Start()
	defer m.Stop()
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestLoanMonitorIsIdempotentAcrossCycles(t *testing.T) {
	src := &fakeLoanSource{items: []loans.Loan{
		{ID: "loan-1", ReaderID: "reader-1", Status: loans.StatusBorrowed},
	}}
	issuer := &fakeIssuer{issued: map[string]bool{}}
	m := NewLoanMonitor(time.Hour, src, issuer)

	// 同じ延滞貸出に2サイクル回してもペナルティは1件
	m.RunOnce(context.Background())
	m.RunOnce(context.Background())
	assert.Len(t, issuer.issued, 1)
}

func TestSchedulingMonitorSweeps(t *testing.T) {
	expirer := &fakeExpirer{pending: 2}
	m := NewSchedulingMonitor(time.Hour, expirer)

	m.RunOnce(context.Background())
	assert.Equal(t, 0, expirer.pending)
}

func TestPenaltyMonitorBumpsSuspense(t *testing.T) {
	src := &fakePenaltySource{items: []penalties.Penalty{
		{ID: "pen-1", ReaderID: "reader-1", LoanID: "loan-1"},
		{ID: "pen-2", ReaderID: "reader-1", LoanID: "loan-2"},
		{ID: "pen-3", ReaderID: "reader-2", LoanID: "loan-3"},
	}}
	bumper := &fakeBumper{counts: map[string]int{}}
	m := NewPenaltyMonitor(time.Hour, src, bumper)

	m.RunOnce(context.Background())
	assert.Equal(t, 2, bumper.counts["reader-1"])
	assert.Equal(t, 1, bumper.counts["reader-2"])
}
