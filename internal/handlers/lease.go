package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noptechs/lease-app/internal/httpx"
	"github.com/noptechs/lease-app/internal/services"
)

const dateLayout = "2006-01-02"

// LeaseHandler exposes lease CRUD plus the XLSX register export.
type LeaseHandler struct {
	Svc *services.LeaseService
}

func NewLeaseHandler(svc *services.LeaseService) *LeaseHandler {
	return &LeaseHandler{Svc: svc}
}

// actorFrom resolves the acting user from the request. Identity is an
// ambient input supplied by the caller, not computed here.
func actorFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Actor")); v != "" {
		return v
	}
	return "system"
}

func parseID(r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// writeServiceError maps service sentinels to HTTP error codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrLeaseNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrReceiptNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrDuplicateContractNumber):
		httpx.JSONError(w, http.StatusConflict, "duplicate_contract_number", nil)
	case errors.Is(err, services.ErrOverpayment):
		httpx.JSONError(w, http.StatusConflict, "overpayment", err.Error())
	case errors.Is(err, services.ErrDateOrder):
		httpx.JSONError(w, http.StatusBadRequest, "end_date_before_start_date", nil)
	case errors.Is(err, services.ErrUnknownUnitType):
		httpx.JSONError(w, http.StatusBadRequest, "unknown_unit_type", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

type leaseReq struct {
	ContractNumber      string  `json:"contract_number"`
	Region              string  `json:"region"`
	UnitType            string  `json:"unit_type"`
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	InstallmentsPerYear int     `json:"installments_per_year"`
	Currency            string  `json:"currency"`
	TotalRentalAmount   float64 `json:"total_rental_amount"`
	LandlordBankAccount string  `json:"landlord_bank_account"`
	Notes               string  `json:"notes"`
	PartnerName         string  `json:"partner_name"`
	Representative      string  `json:"representative"`
}

// Create: POST /leases
func (h *LeaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req leaseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	missing := map[string]string{}
	if req.ContractNumber == "" {
		missing["contract_number"] = "required"
	}
	if req.Region == "" {
		missing["region"] = "required"
	}
	if req.StartDate == "" {
		missing["start_date"] = "required"
	}
	if req.EndDate == "" {
		missing["end_date"] = "required"
	}
	if len(missing) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", missing)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"start_date": "expected YYYY-MM-DD"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"end_date": "expected YYYY-MM-DD"})
		return
	}
	lease, err := h.Svc.CreateLease(services.LeaseInput{
		ContractNumber:      req.ContractNumber,
		Region:              req.Region,
		UnitType:            req.UnitType,
		StartDate:           start,
		EndDate:             end,
		InstallmentsPerYear: req.InstallmentsPerYear,
		Currency:            req.Currency,
		TotalRentalAmount:   req.TotalRentalAmount,
		LandlordBankAccount: req.LandlordBankAccount,
		Notes:               req.Notes,
		PartnerName:         req.PartnerName,
		Representative:      req.Representative,
	}, actorFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lease)
}

// List: GET /leases – paginated, optional q and status filters
func (h *LeaseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	leases, total, err := h.Svc.ListLeases(services.ListOptions{
		Limit:  limit,
		Offset: offset,
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_leases", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": leases, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /leases/get?id=...
func (h *LeaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	lease, err := h.Svc.GetLease(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

type leaseUpdateReq struct {
	ContractNumber      *string  `json:"contract_number"`
	Region              *string  `json:"region"`
	UnitType            *string  `json:"unit_type"`
	StartDate           *string  `json:"start_date"`
	EndDate             *string  `json:"end_date"`
	InstallmentsPerYear *int     `json:"installments_per_year"`
	Currency            *string  `json:"currency"`
	TotalRentalAmount   *float64 `json:"total_rental_amount"`
	LandlordBankAccount *string  `json:"landlord_bank_account"`
	Notes               *string  `json:"notes"`
	PartnerName         *string  `json:"partner_name"`
	Representative      *string  `json:"representative"`
}

// Update: POST /leases/update?id=... – partial update
func (h *LeaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req leaseUpdateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	up := services.LeaseUpdate{
		ContractNumber:      req.ContractNumber,
		Region:              req.Region,
		UnitType:            req.UnitType,
		InstallmentsPerYear: req.InstallmentsPerYear,
		Currency:            req.Currency,
		TotalRentalAmount:   req.TotalRentalAmount,
		LandlordBankAccount: req.LandlordBankAccount,
		Notes:               req.Notes,
		PartnerName:         req.PartnerName,
		Representative:      req.Representative,
	}
	if req.StartDate != nil {
		d, err := parseDate(*req.StartDate)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"start_date": "expected YYYY-MM-DD"})
			return
		}
		up.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := parseDate(*req.EndDate)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"end_date": "expected YYYY-MM-DD"})
			return
		}
		up.EndDate = &d
	}
	lease, err := h.Svc.UpdateLease(id, up, actorFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

// Delete: POST /leases/delete?id=... – payments go with the lease
func (h *LeaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Svc.DeleteLease(id, actorFrom(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
