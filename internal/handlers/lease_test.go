package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/noptechs/lease-app/internal/config"
	"github.com/noptechs/lease-app/internal/models"
	"github.com/noptechs/lease-app/internal/services"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupLeaseTestService(t *testing.T) *services.LeaseService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.CompanySettings{}, &models.Lease{}, &models.LeasePayment{}, &models.ReceiptAttachment{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Create(&models.CompanySettings{Name: "Test Co", DefaultCurrency: "USD", Timezone: "UTC"}).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	svc := services.NewLeaseService(db, config.Config{Profile: config.ProfileStandard})
	svc.Now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return svc
}

func createLeaseViaHandler(t *testing.T, h *LeaseHandler, contractNumber string, total float64) map[string]any {
	t.Helper()
	body := fmt.Sprintf(`{"contract_number":%q,"region":"East","start_date":"2026-01-01","end_date":"2026-12-31","total_rental_amount":%v}`, contractNumber, total)
	req := httptest.NewRequest(http.MethodPost, "/leases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "alice")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created
}

func TestLeaseCreateAndListJSON(t *testing.T) {
	h := NewLeaseHandler(setupLeaseTestService(t))

	created := createLeaseViaHandler(t, h, "CN-100", 1000)
	if created["lease_status"] != "active" {
		t.Fatalf("expected active status, got %v", created["lease_status"])
	}
	if created["currency"] != "USD" {
		t.Fatalf("expected defaulted currency, got %v", created["currency"])
	}

	listReq := httptest.NewRequest(http.MethodGet, "/leases", nil)
	listW := httptest.NewRecorder()
	h.List(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", listW.Code)
	}
	var list struct {
		Items []models.Lease `json:"items"`
		Total int64          `json:"total"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Total != 1 {
		t.Fatalf("unexpected list: %#v", list)
	}
}

func TestLeaseCreateValidation(t *testing.T) {
	h := NewLeaseHandler(setupLeaseTestService(t))

	req := httptest.NewRequest(http.MethodPost, "/leases", strings.NewReader(`{"region":"East"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "contract_number") {
		t.Fatalf("expected missing-field details, got %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/leases", strings.NewReader(`{"contract_number":"CN-1","region":"E","start_date":"01/02/2026","end_date":"2026-12-31"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date format got %d", w.Code)
	}
}

func TestLeaseDuplicateContractNumberConflict(t *testing.T) {
	h := NewLeaseHandler(setupLeaseTestService(t))
	createLeaseViaHandler(t, h, "CN-DUP", 500)

	body := `{"contract_number":"CN-DUP","region":"West","start_date":"2026-01-01","end_date":"2026-12-31"}`
	req := httptest.NewRequest(http.MethodPost, "/leases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "duplicate_contract_number") {
		t.Fatalf("unexpected error body: %s", w.Body.String())
	}
}

func TestLeaseUpdateAndGet(t *testing.T) {
	h := NewLeaseHandler(setupLeaseTestService(t))
	created := createLeaseViaHandler(t, h, "CN-UP", 1000)
	id := int(created["id"].(float64))

	// move the end date into the renewal window
	upReq := httptest.NewRequest(http.MethodPost, "/leases/update?id="+strconv.Itoa(id), strings.NewReader(`{"end_date":"2026-04-01"}`))
	upReq.Header.Set("Content-Type", "application/json")
	upW := httptest.NewRecorder()
	h.Update(upW, upReq)
	if upW.Code != http.StatusOK {
		t.Fatalf("update expected 200 got %d body=%s", upW.Code, upW.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/leases/get?id="+strconv.Itoa(id), nil)
	getW := httptest.NewRecorder()
	h.Get(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("get expected 200 got %d", getW.Code)
	}
	var lease models.Lease
	if err := json.Unmarshal(getW.Body.Bytes(), &lease); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if lease.LeaseStatus != models.LeaseStatusExpiring || !lease.RenewalAlert {
		t.Fatalf("expected expiring lease, got %+v", lease)
	}
}

func TestLeaseDeleteThenNotFound(t *testing.T) {
	h := NewLeaseHandler(setupLeaseTestService(t))
	created := createLeaseViaHandler(t, h, "CN-DEL", 100)
	id := strconv.Itoa(int(created["id"].(float64)))

	delReq := httptest.NewRequest(http.MethodPost, "/leases/delete?id="+id, nil)
	delW := httptest.NewRecorder()
	h.Delete(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("delete expected 200 got %d", delW.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/leases/get?id="+id, nil)
	getW := httptest.NewRecorder()
	h.Get(getW, getReq)
	if getW.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", getW.Code)
	}
}

func TestLeaseExportXLSX(t *testing.T) {
	h := NewLeaseHandler(setupLeaseTestService(t))
	createLeaseViaHandler(t, h, "CN-X1", 1000)
	createLeaseViaHandler(t, h, "CN-X2", 2000)

	req := httptest.NewRequest(http.MethodGet, "/leases/export", nil)
	w := httptest.NewRecorder()
	h.Export(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export expected 200 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("expected xlsx content-type got %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatal("expected non-empty workbook")
	}
}
