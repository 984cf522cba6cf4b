package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// 预检查只能挡住常规路径，并发窗口靠这个索引兜底，
// 它必须是 UNIQUE 且只覆盖未删除行。
func TestCustomerActiveNameIndexIsUniquePartial(t *testing.T) {
	s, err := schema.Parse(&Customer{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	found := false
	for _, idx := range s.ParseIndexes() {
		if idx.Name != "uq_customers_active_name" {
			continue
		}
		found = true
		assert.Equal(t, "UNIQUE", idx.Class)
		assert.Equal(t, "is_deleted = false", idx.Where)
		require.Len(t, idx.Fields, 2)
		assert.Equal(t, "CompanyName", idx.Fields[0].Name)
		assert.Equal(t, "ContactName", idx.Fields[1].Name)
	}
	require.True(t, found, "active name pair must be backed by a unique partial index")
}
