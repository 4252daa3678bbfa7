package routes

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"settlechain/gateway/middleware"
	"settlechain/native/agreement"
	"settlechain/native/condition"
	"settlechain/native/did"
	"settlechain/native/settlement"
	"settlechain/native/template"
	"settlechain/native/token"
	"settlechain/observability"
)

// Deps carries the wired engine components consumed by the HTTP surface.
type Deps struct {
	Logger     *slog.Logger
	Conditions *condition.Store
	Agreements *agreement.Store
	Templates  *template.Registry
	Engine     *settlement.Engine
	Ledger     *token.Ledger
	DIDs       *did.Registry
	Auth       *middleware.Authenticator
	Limiter    *middleware.RateLimiter
}

// NewRouter builds the gateway router. Reads are open; mutating routes sit
// behind the authenticator when one is configured.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metricsMiddleware)
	if deps.Limiter != nil {
		r.Use(deps.Limiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/templates/{id}", h.getTemplate)
		v1.Get("/agreements/{id}", h.getAgreement)
		v1.Get("/conditions/{id}", h.getCondition)
		v1.Get("/dids/{did}", h.getDID)
		v1.Get("/balances/{token}/{address}", h.getBalance)
		v1.Post("/ids/agreement", h.deriveAgreementID)
		v1.Post("/ids/condition", h.deriveConditionID)

		v1.Group(func(mut chi.Router) {
			if deps.Auth != nil {
				mut.Use(deps.Auth.Middleware)
			}
			mut.Post("/templates", h.proposeTemplate)
			mut.Post("/templates/{id}/approve", h.approveTemplate)
			mut.Post("/templates/{id}/revoke", h.revokeTemplate)
			mut.Post("/agreements", h.createAgreement)
			mut.Post("/dids", h.registerDID)
			mut.Post("/dids/{did}/providers", h.addProvider)
			mut.Post("/whitelists/{listId}/members", h.addWhitelistMember)
			mut.Post("/conditions/lock-payment/fulfill", h.fulfillLockPayment)
			mut.Post("/conditions/access/fulfill", h.fulfillAccess)
			mut.Post("/conditions/access-proof/fulfill", h.fulfillAccessProof)
			mut.Post("/conditions/compute-execution/fulfill", h.fulfillComputeExecution)
			mut.Post("/conditions/transfer-asset/fulfill", h.fulfillTransferAsset)
			mut.Post("/conditions/escrow-payment/fulfill", h.fulfillEscrowPayment)
			mut.Post("/conditions/sign/fulfill", h.fulfillSign)
			mut.Post("/conditions/hash-lock/fulfill", h.fulfillHashLock)
			mut.Post("/conditions/threshold/fulfill", h.fulfillThreshold)
			mut.Post("/conditions/whitelist/fulfill", h.fulfillWhitelist)
		})
	})

	return r
}

type handlers struct {
	deps Deps
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		observability.Metrics().ObserveHTTP(route, r.Method, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
