package server

import (
	"net/http"
	"time"

	"github.com/noptechs/lease-app/internal/handlers"
	"github.com/noptechs/lease-app/internal/httpx"
	"github.com/noptechs/lease-app/internal/services"
	"github.com/noptechs/lease-app/internal/storage"

	"github.com/phuslu/log"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, svc *services.LeaseService, store storage.ReceiptStore) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Lease endpoints. List/Create via /leases; get/update/delete take ?id=.
	lh := handlers.NewLeaseHandler(svc)
	mux.HandleFunc("/leases", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			lh.List(w, r)
		case http.MethodPost:
			lh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("GET /leases/get", lh.Get)
	mux.HandleFunc("POST /leases/update", lh.Update)
	mux.HandleFunc("POST /leases/delete", lh.Delete)
	mux.HandleFunc("GET /leases/export", lh.Export)

	// Payment endpoints
	ph := handlers.NewPaymentHandler(svc, store)
	mux.HandleFunc("/payments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ph.List(w, r)
		case http.MethodPost:
			ph.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
	mux.HandleFunc("POST /payments/update", ph.Update)
	mux.HandleFunc("POST /payments/delete", ph.Delete)
	mux.HandleFunc("POST /payments/receipts", ph.UploadReceipt)
	mux.HandleFunc("GET /payments/receipts/download", ph.DownloadReceipt)

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
