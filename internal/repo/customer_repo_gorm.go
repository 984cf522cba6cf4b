package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-crm-api/internal/domain"
)

type CustomerRepo struct{ db *gorm.DB }

func NewCustomerRepo(db *gorm.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// 排序字段白名单，防注入；稳定排序统一追加 id 做并列打破。
var customerSortColumns = map[string]string{
	"LastInteractionAt": "last_interaction_at",
	"CreatedAt":         "created_at",
	"UpdatedAt":         "updated_at",
}

func (r *CustomerRepo) Search(ctx context.Context, q domain.CustomerSearch) ([]domain.Customer, int64, error) {
	q.Normalize()

	tx := r.db.WithContext(ctx).Model(&domain.Customer{}).Where("is_deleted = ?", false)
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Source != "" {
		tx = tx.Where("source = ?", q.Source)
	}
	if q.Industry != "" {
		tx = tx.Where("industry = ?", q.Industry)
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		tx = tx.Where("LOWER(company_name) LIKE ? OR LOWER(contact_name) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := customerSortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		dir = "ASC"
	}

	var items []domain.Customer
	err := tx.
		Order(col + " " + dir + ", id ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&items).Error
	return items, total, err
}

// FindByID 软删的客户等同不存在。
func (r *CustomerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LockForUpdate 在事务内按行锁加载客户；同一客户的互动写入靠这把锁串行化。
func (r *CustomerRepo) LockForUpdate(tx *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LockForUpdateAny 不排除软删行（删互动后重算派生字段时，即使客户已软删也要维护）。
func (r *CustomerRepo) LockForUpdateAny(tx *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ActiveNameExists 唯一性只约束未删除的客户，软删后的名字对可以复用。
func (r *CustomerRepo) ActiveNameExists(tx *gorm.DB, companyName, contactName, excludeID string) (bool, error) {
	q := tx.Model(&domain.Customer{}).
		Where("company_name = ? AND contact_name = ? AND is_deleted = ?", companyName, contactName, false)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAll 管理端列表，可含软删行。
func (r *CustomerRepo) ListAll(ctx context.Context, withDeleted bool, offset, limit int) ([]domain.Customer, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.Customer{})
	if !withDeleted {
		tx = tx.Where("is_deleted = ?", false)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []domain.Customer
	err := tx.Order("created_at DESC, id ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// CountByStatus 统计口径：未删除客户按状态计数。
func (r *CustomerRepo) CountByStatus(ctx context.Context) (map[domain.CustomerStatus]int64, int64, error) {
	type row struct {
		Status domain.CustomerStatus
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Select("status, COUNT(*) AS n").
		Where("is_deleted = ?", false).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make(map[domain.CustomerStatus]int64, len(rows))
	var total int64
	for _, r := range rows {
		out[r.Status] = r.N
		total += r.N
	}
	return out, total, nil
}
