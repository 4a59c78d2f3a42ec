package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/internal/model"
)

// purgeConcurrency 删除案件时并发清理前缀的上限.
const purgeConcurrency = 4

// 清理原因.
const (
	PurgeReasonOwnerDeleted = "owner_deleted"
	PurgeReasonOrphanSweep  = "orphan_sweep"
	PurgeReasonManual       = "manual"
)

// CreateCaseInput 创建案件参数.
type CreateCaseInput struct {
	CaseNumber string
	Title      string
	Status     string
	CreatedBy  string
}

// CreateIncidentInput 创建事件参数.
type CreateIncidentInput struct {
	Title       string
	Description string
	OccurredAt  *time.Time
}

// OwnerService 管理持有账本的案件与事件记录.
type OwnerService struct {
	db          *gorm.DB
	attachments *AttachmentService
	l           *zerolog.Logger
}

// NewOwnerService 创建记录服务.
func NewOwnerService(d Deps) *OwnerService {
	return &OwnerService{
		db:          d.DB,
		attachments: NewAttachmentService(d),
		l:           d.logger(),
	}
}

// CreateCase 创建案件，账本为空.
func (s *OwnerService) CreateCase(ctx context.Context, in CreateCaseInput) (*model.Case, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Case{}).Where("case_number = ?", in.CaseNumber).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check case number: %w", err)
	}

	if n > 0 {
		return nil, NewValidationError("case_number", "has already been taken")
	}

	status := in.Status
	if status == "" {
		status = model.CaseStatusOpen
	}

	c := &model.Case{
		CaseNumber:    in.CaseNumber,
		Title:         in.Title,
		Status:        status,
		CreatedBy:     in.CreatedBy,
		EvidenceFiles: model.Ledger{},
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create case: %w", err)
	}

	return c, nil
}

// GetCase 读取案件及其事件.
func (s *OwnerService) GetCase(ctx context.Context, id uint64) (*model.Case, error) {
	var c model.Case

	err := s.db.WithContext(ctx).Preload("Incidents").Take(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ownerNotFound(model.KindCase)
	}

	if err != nil {
		return nil, fmt.Errorf("get case %d: %w", id, err)
	}

	return &c, nil
}

// DeleteCase 删除案件及其事件，提交后清理所有相关前缀.
func (s *OwnerService) DeleteCase(ctx context.Context, id uint64) error {
	var incidentIDs []uint64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Limit(1).Find(&model.Case{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ownerNotFound(model.KindCase)
		}

		if err := tx.Model(&model.Incident{}).Where("case_id = ?", id).Pluck("id", &incidentIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("case_id = ?", id).Delete(&model.Incident{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Case{}, id).Error
	})
	if err != nil {
		return wrapOwnerErr("delete case", id, err)
	}

	refs := make([]model.OwnerRef, 0, len(incidentIDs)+1)
	refs = append(refs, model.OwnerRef{Kind: model.KindCase, ID: id})

	for _, iid := range incidentIDs {
		refs = append(refs, model.OwnerRef{Kind: model.KindIncident, ID: iid})
	}

	s.purge(ctx, refs)

	return nil
}

// CreateIncident 在案件下创建事件.
func (s *OwnerService) CreateIncident(ctx context.Context, caseID uint64, in CreateIncidentInput) (*model.Incident, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Case{}).Where("id = ?", caseID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check case %d: %w", caseID, err)
	}

	if n == 0 {
		return nil, ownerNotFound(model.KindCase)
	}

	inc := &model.Incident{
		CaseID:        caseID,
		Title:         in.Title,
		Description:   in.Description,
		OccurredAt:    in.OccurredAt,
		EvidenceFiles: model.Ledger{},
	}
	if err := s.db.WithContext(ctx).Create(inc).Error; err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	return inc, nil
}

// GetIncident 读取事件.
func (s *OwnerService) GetIncident(ctx context.Context, id uint64) (*model.Incident, error) {
	var inc model.Incident

	err := s.db.WithContext(ctx).Take(&inc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ownerNotFound(model.KindIncident)
	}

	if err != nil {
		return nil, fmt.Errorf("get incident %d: %w", id, err)
	}

	return &inc, nil
}

// DeleteIncident 删除事件并清理其前缀.
func (s *OwnerService) DeleteIncident(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&model.Incident{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete incident %d: %w", id, res.Error)
	}

	if res.RowsAffected == 0 {
		return ownerNotFound(model.KindIncident)
	}

	s.purge(ctx, []model.OwnerRef{{Kind: model.KindIncident, ID: id}})

	return nil
}

// purge 并发清理前缀，失败只记录日志，残留对象由孤儿清理处理.
func (s *OwnerService) purge(ctx context.Context, refs []model.OwnerRef) {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group

	g.SetLimit(purgeConcurrency)

	for _, ref := range refs {
		g.Go(func() error {
			if _, err := s.attachments.PurgeAll(ctx, ref, PurgeReasonOwnerDeleted); err != nil {
				s.l.Error().Err(err).Str("owner", ref.String()).Msg("purge after delete failed")
			}

			return nil
		})
	}

	_ = g.Wait()
}

func wrapOwnerErr(op string, id uint64, err error) error {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}

	return fmt.Errorf("%s %d: %w", op, id, err)
}
