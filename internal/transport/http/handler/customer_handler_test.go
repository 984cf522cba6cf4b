package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-crm-api/internal/occ"
	"go-crm-api/internal/repo"
	"go-crm-api/internal/service"
	"go-crm-api/internal/testutil"
	"go-crm-api/pkg/etag"
)

func setupCustomerRoutes(t *testing.T) *gin.Engine {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	customers := repo.NewCustomerRepo(db)
	interactions := repo.NewInteractionRepo(db)
	guard := occ.NewGuard(log)

	ch := NewCustomerHandler(service.NewCustomerService(customers, guard, db, log), log)
	ih := NewInteractionHandler(service.NewInteractionService(interactions, customers, guard, db, log), log)

	r := testutil.SetupRouter()
	r.GET("/api/customers", ch.List)
	r.POST("/api/customers", ch.Create)
	r.GET("/api/customers/:customerId", ch.Get)
	r.PUT("/api/customers/:customerId", ch.Update)
	r.DELETE("/api/customers/:customerId", ch.Delete)
	r.POST("/api/customers/:customerId/interactions", ih.Create)
	return r
}

func customerBody(company, contact string) map[string]any {
	return map[string]any{
		"companyName": company,
		"contactName": contact,
		"status":      "Lead",
		"source":      "Referral",
		"score":       50,
	}
}

func TestCreateCustomerReturns201WithETagAndLocation(t *testing.T) {
	r := setupCustomerRoutes(t)

	w := testutil.DoRequest(r, http.MethodPost, "/api/customers", customerBody("Acme Ltd", "Zhang Wei"), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	tag := w.Header().Get("ETag")
	_, ok := etag.Decode(tag)
	require.True(t, ok, "ETag %q should carry a millisecond version", tag)
	require.Contains(t, w.Header().Get("Location"), "/api/customers/")

	body := testutil.ParseResponse(w)
	require.Equal(t, true, body["success"])
}

func TestCreateCustomerValidation(t *testing.T) {
	r := setupCustomerRoutes(t)

	// 缺必填字段
	w := testutil.DoRequest(r, http.MethodPost, "/api/customers", map[string]any{"contactName": "x", "status": "Lead"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// 枚举外的状态
	b := customerBody("Acme Ltd", "Zhang Wei")
	b["status"] = "Frozen"
	w = testutil.DoRequest(r, http.MethodPost, "/api/customers", b, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// 分值出区间
	b = customerBody("Acme Ltd", "Zhang Wei")
	b["score"] = 101
	w = testutil.DoRequest(r, http.MethodPost, "/api/customers", b, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// 超过上限的 pageSize 直接 400，不静默钳制。
func TestListRejectsOversizedPage(t *testing.T) {
	r := setupCustomerRoutes(t)

	w := testutil.DoRequest(r, http.MethodGet, "/api/customers?pageSize=200", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, "/api/customers?pageSize=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateWithStaleIfMatchConflicts(t *testing.T) {
	r := setupCustomerRoutes(t)

	w := testutil.DoRequest(r, http.MethodPost, "/api/customers", customerBody("Acme Ltd", "Zhang Wei"), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	loc := w.Header().Get("Location")
	v0 := w.Header().Get("ETag")

	time.Sleep(5 * time.Millisecond)

	// 第一次带正确版本的更新通过
	b := customerBody("Acme Ltd", "Zhang Wei")
	b["status"] = "Contacted"
	w = testutil.DoRequest(r, http.MethodPut, loc, b, map[string]string{"If-Match": v0})
	require.Equal(t, http.StatusOK, w.Code)
	v1 := w.Header().Get("ETag")
	require.NotEqual(t, v0, v1)

	// 拿旧版本再写：409，响应头回传当前版本
	b["status"] = "Quoted"
	w = testutil.DoRequest(r, http.MethodPut, loc, b, map[string]string{"If-Match": v0})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, v1, w.Header().Get("ETag"))

	// 不带 If-Match 放行
	w = testutil.DoRequest(r, http.MethodPut, loc, b, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteCustomerReturns204AndHides(t *testing.T) {
	r := setupCustomerRoutes(t)

	w := testutil.DoRequest(r, http.MethodPost, "/api/customers", customerBody("Acme Ltd", "Zhang Wei"), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	loc := w.Header().Get("Location")

	w = testutil.DoRequest(r, http.MethodDelete, loc, nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, loc, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateInteractionOnMissingCustomer(t *testing.T) {
	r := setupCustomerRoutes(t)

	body := map[string]any{
		"happenedAt": time.Now().UTC().Format(time.RFC3339),
		"channel":    "Phone",
		"title":      "intro call",
	}
	path := fmt.Sprintf("/api/customers/%s/interactions", "no-such-id")
	w := testutil.DoRequest(r, http.MethodPost, path, body, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
