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

// InteractionService 互动记录业务逻辑，同时承担一致性协调职责：
// 互动的创建/删除和客户 last_interaction_at 的重算必须落在同一个事务里，
// 并发读者不可能看到两者分离的中间态。同一客户上的互动写入靠客户行锁串行化。
type InteractionService struct {
	interactions *repo.InteractionRepo
	customers    *repo.CustomerRepo
	guard        *occ.Guard
	db           *gorm.DB
	log          *zap.Logger
}

func NewInteractionService(interactions *repo.InteractionRepo, customers *repo.CustomerRepo, guard *occ.Guard, db *gorm.DB, log *zap.Logger) *InteractionService {
	return &InteractionService{interactions: interactions, customers: customers, guard: guard, db: db, log: log}
}

type InteractionInput struct {
	HappenedAt  time.Time
	Channel     domain.InteractionChannel
	Stage       *domain.CustomerStatus
	Title       string
	Summary     string
	RawContent  string
	NextAction  string
	Attachments []string
}

func buildInteraction(customerID string, in InteractionInput, now time.Time) *domain.Interaction {
	return &domain.Interaction{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		HappenedAt:  in.HappenedAt.UTC(),
		Channel:     in.Channel,
		Stage:       in.Stage,
		Title:       in.Title,
		Summary:     in.Summary,
		RawContent:  in.RawContent,
		NextAction:  in.NextAction,
		Attachments: domain.StringList(in.Attachments),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *InteractionService) ListByCustomer(ctx context.Context, customerID string) ([]domain.Interaction, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.interactions.ListByCustomer(ctx, customerID)
}

func (s *InteractionService) GetByID(ctx context.Context, id string) (*domain.Interaction, error) {
	return s.interactions.FindByID(ctx, id)
}

// Create 创建路径：锁客户行 → 插互动 → 无条件把 last_interaction_at
// 写成新记录的发生时间。不与现值做大小比较——“最后写入者胜出”按插入
// 顺序而不是事件时间，属既定口径，勿改成取最大值。
// 行在每次尝试里重建：瞬态错误可能出现在提交已落库之后，复用同一主键
// 只会把重试撞死在主键上；换新 ID 宁可多一条记录也不误报失败。
func (s *InteractionService) Create(ctx context.Context, customerID string, in InteractionInput) (*domain.Interaction, error) {
	var it *domain.Interaction
	err := database.WithRetry(ctx, func() error {
		now := time.Now().UTC().Truncate(time.Millisecond)
		it = buildInteraction(customerID, in, now)
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.customers.LockForUpdate(tx, customerID); err != nil {
				return err
			}
			if err := tx.Create(it).Error; err != nil {
				return err
			}
			return tx.Model(&domain.Customer{}).Where("id = ?", customerID).Updates(map[string]any{
				"last_interaction_at": it.HappenedAt,
				"updated_at":          now,
			}).Error
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("interaction created",
		zap.String("id", it.ID),
		zap.String("customer_id", customerID),
	)
	return it, nil
}

// Update 更新不经过协调器：即使 happenedAt 被改了，也不重算客户的
// last_interaction_at。已知口径，按原样保留（见 DESIGN.md）。
func (s *InteractionService) Update(ctx context.Context, id string, in InteractionInput, expected *time.Time) (*domain.Interaction, error) {
	var out *domain.Interaction
	err := database.WithRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			it, err := s.interactions.LockForUpdate(tx, id)
			if err != nil {
				return err
			}
			if err := s.guard.Check("interaction", id, it.UpdatedAt, expected); err != nil {
				return err
			}

			now := time.Now().UTC().Truncate(time.Millisecond)
			updates := map[string]any{
				"happened_at": in.HappenedAt.UTC(),
				"channel":     in.Channel,
				"stage":       in.Stage,
				"title":       in.Title,
				"summary":     in.Summary,
				"raw_content": in.RawContent,
				"next_action": in.NextAction,
				"attachments": domain.StringList(in.Attachments),
				"updated_at":  now,
			}
			if err := tx.Model(&domain.Interaction{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}

			it.HappenedAt = in.HappenedAt.UTC()
			it.Channel = in.Channel
			it.Stage = in.Stage
			it.Title = in.Title
			it.Summary = in.Summary
			it.RawContent = in.RawContent
			it.NextAction = in.NextAction
			it.Attachments = domain.StringList(in.Attachments)
			it.UpdatedAt = now
			out = it
			return nil
		})
	})
	if err != nil {
		return nil, s.asConflict(ctx, id, err)
	}
	return out, nil
}

// Delete 删除路径：锁互动行做版本检查 → 锁客户行（软删客户也要维护派生字段）
// → 物理删除 → 在剩余记录里取发生时间最晚的一条回填，没有则置空。
func (s *InteractionService) Delete(ctx context.Context, id string, expected *time.Time) error {
	err := database.WithRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			it, err := s.interactions.LockForUpdate(tx, id)
			if err != nil {
				return err
			}
			if err := s.guard.Check("interaction", id, it.UpdatedAt, expected); err != nil {
				return err
			}
			if _, err := s.customers.LockForUpdateAny(tx, it.CustomerID); err != nil {
				return err
			}
			if err := tx.Delete(&domain.Interaction{}, "id = ?", id).Error; err != nil {
				return err
			}

			latest, err := s.interactions.LatestForCustomer(tx, it.CustomerID)
			if err != nil {
				return err
			}
			var last *time.Time
			if latest != nil {
				last = &latest.HappenedAt
			}
			return tx.Model(&domain.Customer{}).Where("id = ?", it.CustomerID).Updates(map[string]any{
				"last_interaction_at": last,
				"updated_at":          time.Now().UTC().Truncate(time.Millisecond),
			}).Error
		})
	})
	if err != nil {
		return s.asConflict(ctx, id, err)
	}
	s.log.Info("interaction deleted", zap.String("id", id))
	return nil
}

func (s *InteractionService) asConflict(ctx context.Context, id string, err error) error {
	if !database.IsSerializationFailure(err) {
		return err
	}
	if cur, ferr := s.interactions.FindByID(ctx, id); ferr == nil {
		return &domain.ConflictError{Current: cur.UpdatedAt}
	}
	return err
}
