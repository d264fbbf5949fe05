package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/noptechs/lease-app/internal/httpx"
	"github.com/noptechs/lease-app/internal/models"
	"github.com/noptechs/lease-app/internal/services"
	"github.com/noptechs/lease-app/internal/storage"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

// PaymentHandler exposes payment CRUD and receipt upload/download.
type PaymentHandler struct {
	Svc   *services.LeaseService
	Store storage.ReceiptStore
}

func NewPaymentHandler(svc *services.LeaseService, store storage.ReceiptStore) *PaymentHandler {
	return &PaymentHandler{Svc: svc, Store: store}
}

type paymentReq struct {
	LeaseID           uint    `json:"lease_id"`
	PaymentDate       string  `json:"payment_date"`
	Amount            float64 `json:"amount"`
	Reference         string  `json:"reference"`
	InstallmentNumber string  `json:"installment_number"`
	Note              string  `json:"note"`
}

// Create: POST /payments
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.LeaseID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"lease_id": "required"})
		return
	}
	date, err := parseDate(req.PaymentDate)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"payment_date": "expected YYYY-MM-DD"})
		return
	}
	payment, err := h.Svc.CreatePayment(services.PaymentInput{
		LeaseID:           req.LeaseID,
		PaymentDate:       date,
		Amount:            req.Amount,
		Reference:         req.Reference,
		InstallmentNumber: req.InstallmentNumber,
		Note:              req.Note,
	}, actorFrom(r))
	if err != nil {
		writePaymentError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func writePaymentError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrInvalidPaymentAmount) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_payment_amount", err.Error())
		return
	}
	writeServiceError(w, err)
}

// List: GET /payments?lease_id=...
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	leaseID, err := strconv.Atoi(r.URL.Query().Get("lease_id"))
	if err != nil || leaseID <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_lease_id", nil)
		return
	}
	payments, err := h.Svc.ListPayments(uint(leaseID))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": payments, "total": len(payments)})
}

type paymentUpdateReq struct {
	PaymentDate       *string  `json:"payment_date"`
	Amount            *float64 `json:"amount"`
	Reference         *string  `json:"reference"`
	InstallmentNumber *string  `json:"installment_number"`
	Note              *string  `json:"note"`
}

// Update: POST /payments/update?id=...
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req paymentUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	up := services.PaymentUpdate{
		Amount:            req.Amount,
		Reference:         req.Reference,
		InstallmentNumber: req.InstallmentNumber,
		Note:              req.Note,
	}
	if req.PaymentDate != nil {
		d, err := parseDate(*req.PaymentDate)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"payment_date": "expected YYYY-MM-DD"})
			return
		}
		up.PaymentDate = &d
	}
	payment, err := h.Svc.UpdatePayment(id, up, actorFrom(r))
	if err != nil {
		writePaymentError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Delete: POST /payments/delete?id=...
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.DeletePayment(id, actorFrom(r)); err != nil {
		writePaymentError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// UploadReceipt: POST /payments/receipts?id=... – multipart with `file` field.
// Content goes to the receipt store, the association row to the database.
func (h *PaymentHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "bad_multipart", nil)
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "file_required", nil)
		return
	}
	defer f.Close()

	fname := path.Base(fh.Filename)
	key := fmt.Sprintf("receipts/%d/%d-%s%s", id, time.Now().UnixNano(), uuid.NewString()[:8], filepath.Ext(fname))
	if err := h.Store.Put(r.Context(), key, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		log.Error().Err(err).Str("key", key).Msg("receipt store put failed")
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_store_receipt", nil)
		return
	}
	att := models.ReceiptAttachment{
		FileName:    fname,
		ContentType: fh.Header.Get("Content-Type"),
		SizeBytes:   fh.Size,
		ObjectKey:   key,
		UploadedBy:  actorFrom(r),
	}
	if err := h.Svc.AttachReceipt(id, &att); err != nil {
		// stored content is orphaned otherwise
		if derr := h.Store.Delete(r.Context(), key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("orphaned receipt cleanup failed")
		}
		writePaymentError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, att)
}

// DownloadReceipt: GET /payments/receipts/download?id=... – streams content.
func (h *PaymentHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	att, err := h.Svc.GetReceipt(id)
	if err != nil {
		writePaymentError(w, err)
		return
	}
	rc, err := h.Store.Get(r.Context(), att.ObjectKey)
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "receipt_content_missing", nil)
		return
	}
	defer rc.Close()
	if att.ContentType != "" {
		w.Header().Set("Content-Type", att.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+att.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("key", att.ObjectKey).Msg("receipt stream interrupted")
	}
}
