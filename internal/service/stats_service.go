package service

import (
	"context"
	"time"

	"go-crm-api/internal/core/cache"
	"go-crm-api/internal/domain"
	"go-crm-api/internal/repo"
)

const (
	statsSummaryKey = "crm:stats:summary"
	statsSummaryTTL = 30 * time.Second
)

type StatsSummary struct {
	TotalCustomers int64                           `json:"totalCustomers"`
	ByStatus       map[domain.CustomerStatus]int64 `json:"byStatus"`
	GeneratedAt    time.Time                       `json:"generatedAt"`
}

// StatsService 聚合统计。只有这类派生数据才允许走缓存，实体读取不走。
type StatsService struct {
	customers *repo.CustomerRepo
	cache     *cache.Cache // 可为 nil（redis 未启用）
}

func NewStatsService(customers *repo.CustomerRepo, c *cache.Cache) *StatsService {
	return &StatsService{customers: customers, cache: c}
}

func (s *StatsService) Summary(ctx context.Context) (*StatsSummary, error) {
	return cache.GetOrLoadJSON(s.cache, ctx, statsSummaryKey, statsSummaryTTL,
		func(ctx context.Context) (*StatsSummary, error) {
			byStatus, total, err := s.customers.CountByStatus(ctx)
			if err != nil {
				return nil, err
			}
			return &StatsSummary{
				TotalCustomers: total,
				ByStatus:       byStatus,
				GeneratedAt:    time.Now().UTC(),
			}, nil
		})
}
