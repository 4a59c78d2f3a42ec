package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	"github.com/yeisme/casevault/pkg/metrics"
)

// SweepReport 一次孤儿清理的统计.
type SweepReport struct {
	Scanned        int `json:"scanned"`
	PurgedOwners   int `json:"purged_owners"`   // 记录已不存在而被整体清除的前缀
	PurgedObjects  int `json:"purged_objects"`  // 上述前缀下删除的对象
	DeletedOrphans int `json:"deleted_orphans"` // 记录存在但账本未引用且超过宽限期的对象
	Skipped        int `json:"skipped"`         // 键不符合布局或仍在宽限期内
}

// Sweeper 清理未被任何账本引用的对象，从不修改账本.
type Sweeper struct {
	attachments *AttachmentService
	blob        blob.Store
	grace       time.Duration
	now         func() time.Time
	l           *zerolog.Logger
}

// NewSweeper 创建清理器，grace 内的未引用对象视为上传进行中.
func NewSweeper(d Deps, grace time.Duration) *Sweeper {
	return &Sweeper{
		attachments: NewAttachmentService(d),
		blob:        d.Blob,
		grace:       grace,
		now:         d.clock(),
		l:           d.logger(),
	}
}

// Run 依次扫描所有记录类型的前缀.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	for _, kind := range model.OwnerKinds {
		if err := s.sweepKind(ctx, kind, &report); err != nil {
			return report, err
		}
	}

	s.l.Info().
		Int("scanned", report.Scanned).
		Int("purged_owners", report.PurgedOwners).
		Int("deleted_orphans", report.DeletedOrphans).
		Msg("orphan sweep finished")

	return report, nil
}

func (s *Sweeper) sweepKind(ctx context.Context, kind model.OwnerKind, report *SweepReport) error {
	objs, err := s.blob.List(ctx, string(kind)+"/")
	if err != nil {
		return storageError("list "+string(kind), err)
	}

	report.Scanned += len(objs)

	byOwner := make(map[uint64][]blob.Object)
	order := make([]uint64, 0)

	for _, o := range objs {
		id, ok := ownerOf(kind, o.Key)
		if !ok {
			report.Skipped++
			continue
		}

		if _, seen := byOwner[id]; !seen {
			order = append(order, id)
		}

		byOwner[id] = append(byOwner[id], o)
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return err
		}

		ref := model.OwnerRef{Kind: kind, ID: id}

		ledger, _, err := s.attachments.repo.Load(ctx, ref)

		var nf *NotFoundError
		if errors.As(err, &nf) {
			n, perr := s.attachments.PurgeAll(ctx, ref, PurgeReasonOrphanSweep)
			if perr != nil {
				return perr
			}

			report.PurgedOwners++
			report.PurgedObjects += n
			metrics.SweepDeleted.WithLabelValues(string(kind), "owner_missing").Add(float64(n))

			continue
		}

		if err != nil {
			return err
		}

		s.sweepOwner(ctx, ref, ledger, byOwner[id], report)
	}

	return nil
}

func (s *Sweeper) sweepOwner(ctx context.Context, ref model.OwnerRef, ledger model.Ledger, objs []blob.Object, report *SweepReport) {
	cutoff := s.now().Add(-s.grace)

	for _, o := range objs {
		name := o.Key[strings.LastIndex(o.Key, "/")+1:]
		if ledger.Contains(name) {
			continue
		}

		if o.ModTime.After(cutoff) {
			report.Skipped++
			continue
		}

		if err := s.blob.Delete(ctx, o.Key); err != nil {
			s.l.Warn().Err(err).Str("key", o.Key).Msg("delete orphan blob failed")
			continue
		}

		report.DeletedOrphans++
		metrics.SweepDeleted.WithLabelValues(string(ref.Kind), "unreferenced").Inc()
		s.l.Info().Str("key", o.Key).Time("mod_time", o.ModTime).Msg("orphan blob deleted")
	}
}

// ownerOf 从 "<kind>/<id>/<filename>" 中解析记录 ID，嵌套更深的键不处理.
func ownerOf(kind model.OwnerKind, key string) (uint64, bool) {
	rest, ok := strings.CutPrefix(key, string(kind)+"/")
	if !ok {
		return 0, false
	}

	idPart, name, ok := strings.Cut(rest, "/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return 0, false
	}

	id, err := model.ParseOwnerID(idPart)
	if err != nil {
		return 0, false
	}

	return id, true
}
