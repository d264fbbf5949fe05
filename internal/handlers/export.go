package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/noptechs/lease-app/internal/httpx"
	"github.com/noptechs/lease-app/internal/models"
	"github.com/noptechs/lease-app/internal/services"

	"github.com/phuslu/log"
	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"Contract Number", "Region", "Unit Type", "Start Date", "End Date",
	"Currency", "Total Rental Amount", "Amount Paid", "Remaining Balance",
	"Days to Expiry", "Renewal Alert", "Lease Status",
}

// Export: GET /leases/export – the full lease register as an XLSX workbook.
func (h *LeaseHandler) Export(w http.ResponseWriter, r *http.Request) {
	var leases []models.Lease
	for offset := 0; ; offset += 200 {
		page, total, err := h.Svc.ListLeases(services.ListOptions{Limit: 200, Offset: offset})
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_leases", nil)
			return
		}
		leases = append(leases, page...)
		if int64(len(leases)) >= total || len(page) == 0 {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Leases"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_export", nil)
		return
	}
	for col, hdr := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, hdr); err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_export", nil)
			return
		}
	}
	for row, l := range leases {
		values := []any{
			l.ContractNumber, l.Region, l.UnitType,
			l.StartDate.Format("2006-01-02"), l.EndDate.Format("2006-01-02"),
			l.Currency, l.TotalRentalAmount, l.AmountPaid, l.RemainingBalance,
			l.DaysToExpiry, l.RenewalAlert, l.LeaseStatus,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "failed_to_build_export", nil)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leases-%s.xlsx"`, time.Now().Format("2006-01-02")))
	if err := f.Write(w); err != nil {
		log.Warn().Err(err).Msg("lease export stream interrupted")
	}
}
