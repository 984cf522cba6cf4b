package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-crm-api/internal/core/database"
	"go-crm-api/internal/domain"
	"go-crm-api/internal/occ"
	"go-crm-api/internal/repo"
)

// CustomerService 客户档案业务逻辑。所有条件写都先过 occ.Guard，
// 检查和写入在同一把行锁事务里完成。
type CustomerService struct {
	customers *repo.CustomerRepo
	guard     *occ.Guard
	db        *gorm.DB
	log       *zap.Logger
}

func NewCustomerService(customers *repo.CustomerRepo, guard *occ.Guard, db *gorm.DB, log *zap.Logger) *CustomerService {
	return &CustomerService{customers: customers, guard: guard, db: db, log: log}
}

// CustomerInput 入口层已完成字段校验（必填、长度、枚举、数值区间），
// 这里只负责自己拥有的唯一性和存在性检查。LastInteractionAt 不可由调用方写入。
type CustomerInput struct {
	CompanyName string
	ContactName string
	Wechat      string
	Phone       string
	Email       string
	Industry    string
	Source      domain.CustomerSource
	Status      domain.CustomerStatus
	Tags        []string
	Score       int
}

func (s *CustomerService) Search(ctx context.Context, q domain.CustomerSearch) ([]domain.Customer, int64, error) {
	return s.customers.Search(ctx, q)
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	return s.customers.FindByID(ctx, id)
}

// Create 行在每次尝试里重建：瞬态错误可能出现在提交已落库之后，
// 复用同一主键只会把重试撞死在主键上，换新 ID 交给唯一索引兜底。
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	var c *domain.Customer
	err := database.WithRetry(ctx, func() error {
		now := time.Now().UTC().Truncate(time.Millisecond)
		c = &domain.Customer{
			ID:          uuid.NewString(),
			CompanyName: in.CompanyName,
			ContactName: in.ContactName,
			Wechat:      in.Wechat,
			Phone:       in.Phone,
			Email:       in.Email,
			Industry:    in.Industry,
			Source:      in.Source,
			Status:      in.Status,
			Tags:        domain.StringList(in.Tags),
			Score:       in.Score,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := s.customers.ActiveNameExists(tx, in.CompanyName, in.ContactName, "")
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateName
			}
			return tx.Create(c).Error
		})
	})
	if database.IsDuplicateKey(err) {
		// 预检查之间漏进来的并发同名创建在提交时撞部分唯一索引
		return nil, domain.ErrDuplicateName
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("customer created", zap.String("id", c.ID), zap.String("company", c.CompanyName))
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput, expected *time.Time) (*domain.Customer, error) {
	var out *domain.Customer
	err := database.WithRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			c, err := s.customers.LockForUpdate(tx, id)
			if err != nil {
				return err
			}
			if err := s.guard.Check("customer", id, c.UpdatedAt, expected); err != nil {
				return err
			}
			if in.CompanyName != c.CompanyName || in.ContactName != c.ContactName {
				exists, err := s.customers.ActiveNameExists(tx, in.CompanyName, in.ContactName, id)
				if err != nil {
					return err
				}
				if exists {
					return domain.ErrDuplicateName
				}
			}

			now := time.Now().UTC().Truncate(time.Millisecond)
			// last_interaction_at 归一致性协调器所有，这里绝不写
			updates := map[string]any{
				"company_name": in.CompanyName,
				"contact_name": in.ContactName,
				"wechat":       in.Wechat,
				"phone":        in.Phone,
				"email":        in.Email,
				"industry":     in.Industry,
				"source":       in.Source,
				"status":       in.Status,
				"tags":         domain.StringList(in.Tags),
				"score":        in.Score,
				"updated_at":   now,
			}
			if err := tx.Model(&domain.Customer{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}

			c.CompanyName = in.CompanyName
			c.ContactName = in.ContactName
			c.Wechat = in.Wechat
			c.Phone = in.Phone
			c.Email = in.Email
			c.Industry = in.Industry
			c.Source = in.Source
			c.Status = in.Status
			c.Tags = domain.StringList(in.Tags)
			c.Score = in.Score
			c.UpdatedAt = now
			out = c
			return nil
		})
	})
	if err != nil {
		return nil, s.asConflict(ctx, id, err)
	}
	return out, nil
}

func (s *CustomerService) SoftDelete(ctx context.Context, id string, expected *time.Time) error {
	err := database.WithRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			c, err := s.customers.LockForUpdate(tx, id)
			if err != nil {
				return err
			}
			if err := s.guard.Check("customer", id, c.UpdatedAt, expected); err != nil {
				return err
			}
			// 只打标记；互动记录保留
			return tx.Model(&domain.Customer{}).Where("id = ?", id).Updates(map[string]any{
				"is_deleted": true,
				"updated_at": time.Now().UTC().Truncate(time.Millisecond),
			}).Error
		})
	})
	if err != nil {
		return s.asConflict(ctx, id, err)
	}
	s.log.Info("customer soft-deleted", zap.String("id", id))
	return nil
}

// asConflict 提交阶段被存储引擎检出的并发冲突重新表述为版本冲突，
// 并带上冲突后的最新版本。
func (s *CustomerService) asConflict(ctx context.Context, id string, err error) error {
	if !database.IsSerializationFailure(err) {
		return err
	}
	if cur, ferr := s.customers.FindByID(ctx, id); ferr == nil {
		return &domain.ConflictError{Current: cur.UpdatedAt}
	}
	return err
}
