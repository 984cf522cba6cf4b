package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-crm-api/internal/domain"
)

type InteractionRepo struct{ db *gorm.DB }

func NewInteractionRepo(db *gorm.DB) *InteractionRepo { return &InteractionRepo{db: db} }

// ListByCustomer 时间线：按发生时间倒序，同一时刻按创建时间倒序。
// 客户是否存在由 service 层先校验。
func (r *InteractionRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Interaction, error) {
	var items []domain.Interaction
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("happened_at DESC, created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *InteractionRepo) FindByID(ctx context.Context, id string) (*domain.Interaction, error) {
	var it domain.Interaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *InteractionRepo) LockForUpdate(tx *gorm.DB, id string) (*domain.Interaction, error) {
	var it domain.Interaction
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// LatestForCustomer 删除后重算派生字段用：剩余记录里发生时间最晚的一条，没有则返回 nil。
func (r *InteractionRepo) LatestForCustomer(tx *gorm.DB, customerID string) (*domain.Interaction, error) {
	var it domain.Interaction
	err := tx.
		Where("customer_id = ?", customerID).
		Order("happened_at DESC, created_at DESC").
		First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}
