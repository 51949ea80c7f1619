package monitor

import (
	"context"
	"log"
	"time"

	"bookio-backend/internal/library_mgmt/loans"
	"bookio-backend/internal/library_mgmt/penalties"
)

// 各サービスが構造的に満たす最小インターフェース群

type OverdueLoanSource interface {
	ListOverdue(ctx context.Context) ([]loans.Loan, error)
}

type PenaltyIssuer interface {
	EnsureForLoan(ctx context.Context, loan *loans.Loan) (bool, error)
}

type HoldExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

type OverduePenaltySource interface {
	ListUnpaidOverdue(ctx context.Context) ([]penalties.Penalty, error)
}

type SuspenseBumper interface {
	IncrementSuspense(ctx context.Context, readerID string, by int) error
}

// NewLoanMonitor: 返却期限切れの貸出にペナルティを1件ずつ起こす。
// 既にペナルティのある貸出は発行側でスキップされるので再実行は安全。
func NewLoanMonitor(interval time.Duration, src OverdueLoanSource, issuer PenaltyIssuer) *Monitor {
	return New("loans", interval, func(ctx context.Context) error {
		items, err := src.ListOverdue(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			if _, err := issuer.EnsureForLoan(ctx, &items[i]); err != nil {
				// 1件の失敗でサイクル全体を止めない
				log.Printf("monitor loans: penalty for loan %s: %v", items[i].ID, err)
			}
		}
		return nil
	})
}

// NewSchedulingMonitor: TTL切れの取り置きを EXPIRED に倒す
func NewSchedulingMonitor(interval time.Duration, holds HoldExpirer) *Monitor {
	return New("schedulings", interval, func(ctx context.Context) error {
		n, err := holds.ExpireDue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("monitor schedulings: expired %d holds", n)
		}
		return nil
	})
}

// NewPenaltyMonitor: 支払期限を過ぎた未払いペナルティごとに、
// 読者の停止カウンタを1つ進める。
func NewPenaltyMonitor(interval time.Duration, src OverduePenaltySource, readers SuspenseBumper) *Monitor {
	return New("penalties", interval, func(ctx context.Context) error {
		items, err := src.ListUnpaidOverdue(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			if err := readers.IncrementSuspense(ctx, items[i].ReaderID, 1); err != nil {
				log.Printf("monitor penalties: suspense for reader %s: %v", items[i].ReaderID, err)
			}
		}
		return nil
	})
}
