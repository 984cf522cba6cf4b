package occ

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-crm-api/internal/domain"
)

func TestCheckWithoutPreconditionAllows(t *testing.T) {
	g := NewGuard(zap.NewNop())
	err := g.Check("customer", "c1", time.Now(), nil)
	assert.NoError(t, err)
}

func TestCheckMatchingVersionAllows(t *testing.T) {
	g := NewGuard(zap.NewNop())
	current := time.Date(2026, 8, 30, 10, 0, 0, 123000000, time.UTC)
	// 同一毫秒内的亚毫秒差异视为同一版本
	expected := current.Add(400 * time.Microsecond)
	assert.NoError(t, g.Check("customer", "c1", current, &expected))
}

func TestCheckStaleVersionConflicts(t *testing.T) {
	g := NewGuard(zap.NewNop())
	current := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	stale := current.Add(-time.Second)

	err := g.Check("interaction", "i1", current, &stale)
	require.Error(t, err)

	ce, ok := domain.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, current, ce.Current, "conflict must carry the current version")
}
