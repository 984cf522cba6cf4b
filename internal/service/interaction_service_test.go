package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-crm-api/internal/domain"
	"go-crm-api/internal/occ"
	"go-crm-api/internal/repo"
	"go-crm-api/internal/testutil"
)

func newInteractionFixture(t *testing.T) (*InteractionService, *CustomerService, *domain.Customer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	customers := repo.NewCustomerRepo(db)
	interactions := repo.NewInteractionRepo(db)
	guard := occ.NewGuard(zap.NewNop())
	csvc := NewCustomerService(customers, guard, db, zap.NewNop())
	isvc := NewInteractionService(interactions, customers, guard, db, zap.NewNop())

	cust, err := csvc.Create(context.Background(), sampleInput("Acme Ltd", "Zhang Wei"))
	require.NoError(t, err)
	return isvc, csvc, cust
}

func interactionInput(happenedAt time.Time, title string) InteractionInput {
	return InteractionInput{
		HappenedAt: happenedAt,
		Channel:    domain.ChannelPhone,
		Title:      title,
		Summary:    "initial call",
	}
}

// 创建路径的行在每次重试里重建，不能把同一个主键带进下一次尝试
func TestBuildInteractionFreshRowPerAttempt(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	in := interactionInput(now, "call")

	a := buildInteraction("c1", in, now)
	b := buildInteraction("c1", in, now)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, now, a.CreatedAt)
	require.Equal(t, now, a.UpdatedAt)
	require.Equal(t, "c1", a.CustomerID)
}

// 先插发生时间晚的，再插发生时间早的：派生字段跟着最后一次插入走，
// 而不是取所有记录的最大发生时间。
func TestCreateSetsLastInteractionToMostRecentlyInserted(t *testing.T) {
	isvc, csvc, cust := newInteractionFixture(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(-48 * time.Hour)

	_, err := isvc.Create(ctx, cust.ID, interactionInput(t1, "demo call"))
	require.NoError(t, err)

	got, err := csvc.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastInteractionAt)
	require.Equal(t, t1.UnixMilli(), got.LastInteractionAt.UnixMilli())

	_, err = isvc.Create(ctx, cust.ID, interactionInput(t2, "backfilled note"))
	require.NoError(t, err)

	got, err = csvc.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	require.Equal(t, t2.UnixMilli(), got.LastInteractionAt.UnixMilli())
}

func TestCreateBumpsCustomerVersion(t *testing.T) {
	isvc, csvc, cust := newInteractionFixture(t)
	ctx := context.Background()
	v0 := cust.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	_, err := isvc.Create(ctx, cust.ID, interactionInput(time.Now().UTC(), "call"))
	require.NoError(t, err)

	got, err := csvc.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	require.True(t, got.UpdatedAt.After(v0))
}

func TestDeleteRecomputesLatestRemaining(t *testing.T) {
	isvc, csvc, cust := newInteractionFixture(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t1.Add(48 * time.Hour)

	_, err := isvc.Create(ctx, cust.ID, interactionInput(t1, "first"))
	require.NoError(t, err)
	_, err = isvc.Create(ctx, cust.ID, interactionInput(t2, "second"))
	require.NoError(t, err)
	i3, err := isvc.Create(ctx, cust.ID, interactionInput(t3, "third"))
	require.NoError(t, err)

	// 删掉最新一条后回落到剩余里发生时间最晚的
	require.NoError(t, isvc.Delete(ctx, i3.ID, nil))
	got, err := csvc.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	require.Equal(t, t2.UnixMilli(), got.LastInteractionAt.UnixMilli())
}

func TestDeleteLastInteractionClearsField(t *testing.T) {
	isvc, csvc, cust := newInteractionFixture(t)
	ctx := context.Background()

	it, err := isvc.Create(ctx, cust.ID, interactionInput(time.Now().UTC(), "only one"))
	require.NoError(t, err)
	require.NoError(t, isvc.Delete(ctx, it.ID, nil))

	got, err := csvc.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastInteractionAt)
}

// 改 happenedAt 不重算派生字段，这是已知口径（见 DESIGN.md）。
func TestUpdateDoesNotTouchLastInteraction(t *testing.T) {
	isvc, csvc, cust := newInteractionFixture(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	it, err := isvc.Create(ctx, cust.ID, interactionInput(t1, "call"))
	require.NoError(t, err)

	in := interactionInput(t1.Add(72*time.Hour), "call moved")
	_, err = isvc.Update(ctx, it.ID, in, nil)
	require.NoError(t, err)

	got, err := csvc.GetByID(ctx, cust.ID)
	require.NoError(t, err)
	require.Equal(t, t1.UnixMilli(), got.LastInteractionAt.UnixMilli())
}

func TestInteractionOptimisticDelete(t *testing.T) {
	isvc, _, cust := newInteractionFixture(t)
	ctx := context.Background()

	it, err := isvc.Create(ctx, cust.ID, interactionInput(time.Now().UTC(), "call"))
	require.NoError(t, err)

	stale := it.UpdatedAt.Add(-time.Second)
	err = isvc.Delete(ctx, it.ID, &stale)
	ce, ok := domain.IsConflict(err)
	require.True(t, ok)
	require.Equal(t, it.UpdatedAt.UnixMilli(), ce.Current.UnixMilli())

	require.NoError(t, isvc.Delete(ctx, it.ID, &it.UpdatedAt))
}

func TestInteractionsSurviveCustomerSoftDelete(t *testing.T) {
	isvc, csvc, cust := newInteractionFixture(t)
	ctx := context.Background()

	it, err := isvc.Create(ctx, cust.ID, interactionInput(time.Now().UTC(), "call"))
	require.NoError(t, err)
	require.NoError(t, csvc.SoftDelete(ctx, cust.ID, nil))

	// 记录本身还在，可以直接取
	got, err := isvc.GetByID(ctx, it.ID)
	require.NoError(t, err)
	require.Equal(t, it.ID, got.ID)

	// 但按客户列表走的是客户存在性检查，已软删按不存在处理
	_, err = isvc.ListByCustomer(ctx, cust.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// 软删客户上删互动仍要维护派生字段
	require.NoError(t, isvc.Delete(ctx, it.ID, nil))
}

func TestListByCustomerOrdering(t *testing.T) {
	isvc, _, cust := newInteractionFixture(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := isvc.Create(ctx, cust.ID, interactionInput(t1, "older"))
	require.NoError(t, err)
	_, err = isvc.Create(ctx, cust.ID, interactionInput(t1.Add(time.Hour), "newer"))
	require.NoError(t, err)

	items, err := isvc.ListByCustomer(ctx, cust.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "newer", items[0].Title)
	require.Equal(t, "older", items[1].Title)
}
