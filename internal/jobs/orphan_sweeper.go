package jobs

import (
	"context"
	"time"

	"TinyTales/internal/models"
	"TinyTales/pkg/logger"

	"go.uber.org/zap"
)

type OrphanLister interface {
	ListPending(ctx context.Context, before, now time.Time, limit int) ([]models.OrphanedAudio, error)
	MarkSwept(ctx context.Context, id uint, at time.Time) error
	MarkFailed(ctx context.Context, id uint, reason string, next time.Time) error
}

const (
	retryBase = 15 * time.Minute
	retryMax  = 24 * time.Hour
)

// ObjectRemover 删除存储中的音频对象
type ObjectRemover interface {
	Discard(ctx context.Context, key string) error
}

type SweepObserver interface {
	RecordOrphanSwept()
}

// OrphanSweeper 删除超过保留期、仍未入库的音频对象
type OrphanSweeper struct {
	orphans   OrphanLister
	remover   ObjectRemover
	observer  SweepObserver
	retention time.Duration
	batch     int
	now       func() time.Time
}

func NewOrphanSweeper(orphans OrphanLister, remover ObjectRemover, retention time.Duration, observer SweepObserver) *OrphanSweeper {
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	return &OrphanSweeper{
		orphans:   orphans,
		remover:   remover,
		observer:  observer,
		retention: retention,
		batch:     100,
		now:       time.Now,
	}
}

// Run 实现 scheduler.Job
func (s *OrphanSweeper) Run(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		logger.Error("orphan sweep failed", zap.Int("swept", n), zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("orphan sweep finished", zap.Int("swept", n))
	}
}

// Sweep 分批处理到期的孤儿记录，返回成功清理的数量。
// 删除失败的记录按退避时间推迟，本轮后续批次不会再取到它
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	before := now.Add(-s.retention)
	swept := 0
	for {
		pending, err := s.orphans.ListPending(ctx, before, now, s.batch)
		if err != nil {
			return swept, err
		}
		for _, o := range pending {
			if ctx.Err() != nil {
				return swept, ctx.Err()
			}
			if err := s.remover.Discard(ctx, o.ObjectKey); err != nil {
				logger.Warn("discard orphaned audio failed",
					zap.String("key", o.ObjectKey),
					zap.Int("attempts", o.Attempts+1),
					zap.Error(err))
				if merr := s.orphans.MarkFailed(ctx, o.ID, err.Error(), now.Add(backoff(o.Attempts+1))); merr != nil {
					return swept, merr
				}
				continue
			}
			if err := s.orphans.MarkSwept(ctx, o.ID, now); err != nil {
				return swept, err
			}
			swept++
			if s.observer != nil {
				s.observer.RecordOrphanSwept()
			}
		}
		if s.batch <= 0 || len(pending) < s.batch {
			return swept, nil
		}
	}
}

// backoff 第 n 次失败后的等待时间
func backoff(attempts int) time.Duration {
	d := retryBase
	for i := 1; i < attempts && d < retryMax; i++ {
		d *= 2
	}
	if d > retryMax {
		d = retryMax
	}
	return d
}
