package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-crm-api/internal/core/database"
	"go-crm-api/internal/domain"
	"go-crm-api/internal/occ"
	"go-crm-api/internal/repo"
	"go-crm-api/internal/testutil"
)

func newCustomerService(t *testing.T) (*CustomerService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	customers := repo.NewCustomerRepo(db)
	guard := occ.NewGuard(zap.NewNop())
	return NewCustomerService(customers, guard, db, zap.NewNop()), db
}

func sampleInput(company, contact string) CustomerInput {
	return CustomerInput{
		CompanyName: company,
		ContactName: contact,
		Phone:       "13800000000",
		Email:       "contact@example.com",
		Industry:    "manufacturing",
		Source:      domain.SourceReferral,
		Status:      domain.StatusLead,
		Tags:        []string{"vip", "north"},
		Score:       60,
	}
}

func TestCustomerCreateAndGet(t *testing.T) {
	svc, _ := newCustomerService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Nil(t, created.LastInteractionAt)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.CompanyName, got.CompanyName)
	require.Equal(t, created.ContactName, got.ContactName)
	require.Equal(t, domain.StringList{"vip", "north"}, got.Tags)
	require.Equal(t, 60, got.Score)
	// 版本粒度是毫秒，存取往返后必须相等
	require.Equal(t, created.UpdatedAt.UnixMilli(), got.UpdatedAt.UnixMilli())
}

func TestCustomerDuplicateName(t *testing.T) {
	svc, _ := newCustomerService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	// 同公司不同联系人不冲突
	_, err = svc.Create(ctx, sampleInput("Acme Ltd", "Li Na"))
	require.NoError(t, err)
}

// 两个并发创建都通过预检查时，后提交的一方要撞部分唯一索引。
// 这里绕开 service 预检查直接插行，模拟挤进并发窗口的那一侧。
func TestActiveNameUniqueIndexBackstop(t *testing.T) {
	svc, db := newCustomerService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	dup := &domain.Customer{
		ID:          uuid.NewString(),
		CompanyName: "Acme Ltd",
		ContactName: "Zhang Wei",
		Status:      domain.StatusLead,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = db.Create(dup).Error
	require.Error(t, err)
	require.True(t, database.IsDuplicateKey(err), "unexpected error class: %v", err)

	// 软删后行退出部分索引，同名插入放行
	require.NoError(t, svc.SoftDelete(ctx, c.ID, nil))
	require.NoError(t, db.Create(dup).Error)
}

func TestCustomerNameReuseAfterSoftDelete(t *testing.T) {
	svc, _ := newCustomerService(t)
	ctx := context.Background()

	c1, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, c1.ID, nil))

	// 软删后名字对可以复用
	c2, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)
	require.NotEqual(t, c1.ID, c2.ID)

	_, err = svc.GetByID(ctx, c1.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCustomerOptimisticUpdate(t *testing.T) {
	svc, _ := newCustomerService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)
	v0 := c.UpdatedAt

	time.Sleep(5 * time.Millisecond)

	in := sampleInput("Acme Ltd", "Zhang Wei")
	in.Status = domain.StatusContacted
	updated, err := svc.Update(ctx, c.ID, in, &v0)
	require.NoError(t, err)
	v1 := updated.UpdatedAt
	require.True(t, v1.After(v0))

	// 拿着过期版本再写必须被拒，并回传当前版本
	in.Status = domain.StatusQuoted
	_, err = svc.Update(ctx, c.ID, in, &v0)
	ce, ok := domain.IsConflict(err)
	require.True(t, ok)
	require.Equal(t, v1.UnixMilli(), ce.Current.UnixMilli())

	// 不带版本的写放行
	_, err = svc.Update(ctx, c.ID, in, nil)
	require.NoError(t, err)
}

func TestCustomerSoftDeleteConflict(t *testing.T) {
	svc, _ := newCustomerService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)
	stale := c.UpdatedAt.Add(-time.Second)

	err = svc.SoftDelete(ctx, c.ID, &stale)
	_, ok := domain.IsConflict(err)
	require.True(t, ok)

	// 软删要推进版本
	require.NoError(t, svc.SoftDelete(ctx, c.ID, &c.UpdatedAt))
}

func TestCustomerSearch(t *testing.T) {
	svc, _ := newCustomerService(t)
	ctx := context.Background()

	mk := func(company, contact string, status domain.CustomerStatus, source domain.CustomerSource) *domain.Customer {
		in := sampleInput(company, contact)
		in.Status = status
		in.Source = source
		c, err := svc.Create(ctx, in)
		require.NoError(t, err)
		return c
	}

	mk("Alpha Metals", "Wang Fang", domain.StatusLead, domain.SourceWebsite)
	won := mk("Beta Tools", "Chen Jun", domain.StatusWon, domain.SourceReferral)
	deleted := mk("Gamma Paper", "Liu Yang", domain.StatusLost, domain.SourceEvent)
	require.NoError(t, svc.SoftDelete(ctx, deleted.ID, nil))

	// 软删的不出现在搜索结果里
	items, total, err := svc.Search(ctx, domain.CustomerSearch{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)

	// 状态过滤
	items, total, err = svc.Search(ctx, domain.CustomerSearch{Status: domain.StatusWon})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, won.ID, items[0].ID)

	// 关键词大小写不敏感，公司名和联系人名都匹配
	items, _, err = svc.Search(ctx, domain.CustomerSearch{Keyword: "alpha"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	items, _, err = svc.Search(ctx, domain.CustomerSearch{Keyword: "CHEN"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	// 分页：pageSize=1 翻两页拿到不同记录
	p1, total, err := svc.Search(ctx, domain.CustomerSearch{Page: 1, PageSize: 1, SortBy: "CreatedAt", SortOrder: "asc"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	p2, _, err := svc.Search(ctx, domain.CustomerSearch{Page: 2, PageSize: 1, SortBy: "CreatedAt", SortOrder: "asc"})
	require.NoError(t, err)
	require.NotEqual(t, p1[0].ID, p2[0].ID)
}
