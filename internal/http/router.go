package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Pasidu-Mihiranga/Shopshere-sub001/internal/ratelimit"
	"github.com/Pasidu-Mihiranga/Shopshere-sub001/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret      []byte
	Guard          *ratelimit.Guard
	Metrics        *metrics.CheckoutMetrics
	RequestTimeout time.Duration
}

// metricsMiddleware counts requests and latency per route pattern.
func metricsMiddleware(m *metrics.CheckoutMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = r.URL.Path
			}
			m.Requests.WithLabelValues(pattern, strconv.Itoa(ww.Status())).Inc()
			m.LatencyMS.WithLabelValues(pattern).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

func NewRouter(cartHandler *CartHandler, paymentsHandler *PaymentsHandler, checkoutHandler *CheckoutHandler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.Metrics != nil {
		r.Use(metricsMiddleware(cfg.Metrics))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(JWTAuthMiddleware(cfg.JWTSecret))
		if cfg.Guard != nil {
			r.Use(RateGuardMiddleware(cfg.Guard))
		}

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items", cartHandler.UpdateItem)
			r.Delete("/items", cartHandler.RemoveItem)
			r.Post("/discount", cartHandler.ApplyDiscount)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.StartCheckout)
			r.Get("/{checkout_id}", checkoutHandler.GetCheckout)
			r.Post("/{checkout_id}/proof", checkoutHandler.SubmitProof)
			r.Post("/{checkout_id}/approve", checkoutHandler.Approve)
			r.Post("/{checkout_id}/cancel", checkoutHandler.CancelCheckout)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-intent", paymentsHandler.CreateIntent)
			r.Post("/confirm-payment", paymentsHandler.ConfirmPayment)
			r.Post("/create-payment-method", paymentsHandler.CreatePaymentMethod)
			r.Get("/intents/{intent_id}", paymentsHandler.GetIntent)
		})
	})

	return r
}
