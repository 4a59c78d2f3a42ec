package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/metrics"
)

// ownerLocks 进程内共享的按记录互斥锁.
var ownerLocks = newKeyedMutex()

// LedgerRepository 读取账本并以版本号条件写回.
type LedgerRepository struct {
	db       *gorm.DB
	attempts int
	locks    *keyedMutex
}

// ledgerRow 只选取账本与版本列.
type ledgerRow struct {
	EvidenceFiles model.Ledger
	Version       int64
}

// MutateFunc 基于当前账本计算新账本，changed 为 false 时不写回.
type MutateFunc func(cur model.Ledger) (next model.Ledger, changed bool, err error)

// NewLedgerRepository 创建账本仓库，attempts 小于 1 时使用默认值.
func NewLedgerRepository(db *gorm.DB, attempts int) *LedgerRepository {
	if attempts < 1 {
		attempts = configs.DefaultAttachmentLockAttempts
	}

	return &LedgerRepository{db: db, attempts: attempts, locks: ownerLocks}
}

// Exists 判断记录是否存在.
func (r *LedgerRepository) Exists(ctx context.Context, ref model.OwnerRef) error {
	var n int64
	if err := r.db.WithContext(ctx).Table(ref.Kind.Table()).Where("id = ?", ref.ID).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s: %w", ref, err)
	}

	if n == 0 {
		return ownerNotFound(ref.Kind)
	}

	return nil
}

// Load 读取账本与版本号.
func (r *LedgerRepository) Load(ctx context.Context, ref model.OwnerRef) (model.Ledger, int64, error) {
	var row ledgerRow

	err := r.db.WithContext(ctx).
		Table(ref.Kind.Table()).
		Select("evidence_files", "version").
		Where("id = ?", ref.ID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, ownerNotFound(ref.Kind)
	}

	if err != nil {
		return nil, 0, fmt.Errorf("load ledger %s: %w", ref, err)
	}

	if row.EvidenceFiles == nil {
		row.EvidenceFiles = model.Ledger{}
	}

	return row.EvidenceFiles, row.Version, nil
}

// Mutate 在记录锁内执行读-改-写，版本冲突时基于最新账本重放 fn.
// 重放次数用尽返回 ErrConflict.
func (r *LedgerRepository) Mutate(ctx context.Context, ref model.OwnerRef, fn MutateFunc) (model.Ledger, error) {
	unlock := r.locks.Lock(ref.String())
	defer unlock()

	for attempt := 1; attempt <= r.attempts; attempt++ {
		cur, version, err := r.Load(ctx, ref)
		if err != nil {
			return nil, err
		}

		next, changed, err := fn(cur)
		if err != nil {
			return nil, err
		}

		if !changed {
			return cur, nil
		}

		ok, err := r.save(ctx, ref, next, version)
		if err != nil {
			return nil, err
		}

		if ok {
			return next, nil
		}

		metrics.LedgerConflicts.WithLabelValues(string(ref.Kind)).Inc()
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrConflict, ref, r.attempts)
}

// save 条件更新，版本号不匹配时返回 false.
func (r *LedgerRepository) save(ctx context.Context, ref model.OwnerRef, next model.Ledger, version int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Table(ref.Kind.Table()).
		Where("id = ? AND version = ?", ref.ID, version).
		Updates(map[string]any{
			"evidence_files": next,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("save ledger %s: %w", ref, res.Error)
	}

	return res.RowsAffected == 1, nil
}
