package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"assetfund/native/funding"
	"assetfund/observability/metrics"
)

// Server exposes the funding ledger over HTTP. Mutating calls are serialized
// under a single mutex: due-period rollover plus payment application does not
// commute with concurrent writers.
type Server struct {
	engine  *funding.Engine
	log     *slog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	router http.Handler
}

// New constructs the HTTP surface around a wired engine.
func New(engine *funding.Engine, log *slog.Logger, limitPerSec, burst int) *Server {
	if limitPerSec <= 0 {
		limitPerSec = 50
	}
	if burst <= 0 {
		burst = limitPerSec * 2
	}
	srv := &Server{
		engine:  engine,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(limitPerSec), burst),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.throttle)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Post("/token-sets", s.handleAddTokenSet)
		api.Post("/rate-curves", s.handleAddRateCurve)
		api.Post("/asset-types", s.handleAddAssetType)
		api.Get("/asset-types/{id}", s.handleGetAssetType)

		api.Post("/accounts/{addr}/credit", s.handleCreditAccount)
		api.Get("/accounts/{addr}/balance", s.handleBalance)

		api.Post("/assets", s.handleRegisterAsset)
		api.Get("/assets/{id}", s.handleGetAsset)
		api.Get("/assets/{id}/repayment", s.handleGetRepayment)
		api.Get("/assets/{id}/investments/{slot}", s.handleGetInvestment)
		api.Post("/assets/{id}/deliver", s.handleDeliver)
		api.Post("/assets/{id}/invest", s.handleInvest)
		api.Post("/assets/{id}/onboard", s.handleOnboard)
		api.Post("/assets/{id}/cancel", s.handleCancel)
		api.Post("/assets/{id}/repay", s.handleRepay)
		api.Post("/assets/{id}/take-invest", s.handleTakeInvest)
		api.Post("/assets/{id}/take-repayment", s.handleTakeRepayment)
		api.Post("/assets/{id}/investments/{slot}/yield", s.handleTakeYield)
		api.Post("/assets/{id}/claim-deposit", s.handleClaimDeposit)
	})
	return r
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limited"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, funding.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, funding.ErrAssetNotFound),
		errors.Is(err, funding.ErrTypeNotFound),
		errors.Is(err, funding.ErrTokenSetNotFound),
		errors.Is(err, funding.ErrCurveNotFound),
		errors.Is(err, funding.ErrInvestNotFound),
		errors.Is(err, funding.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, funding.ErrWrongStatus),
		errors.Is(err, funding.ErrDepositClaimed),
		errors.Is(err, funding.ErrInvestTaken),
		errors.Is(err, funding.ErrNoInvestment),
		errors.Is(err, funding.ErrNotMature),
		errors.Is(err, funding.ErrNoMatureRepayment):
		return http.StatusConflict
	case errors.Is(err, funding.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) respond(w http.ResponseWriter, op string, err error, payload interface{}) {
	metrics.Funding().RecordOperation(op, err)
	if err != nil {
		if s.log != nil {
			s.log.Warn("operation rejected", "op", op, "error", err.Error())
		}
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func parseID(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, name), 10, 64)
}

func parseSlot(r *http.Request) (uint32, error) {
	slot, err := strconv.ParseUint(chi.URLParam(r, "slot"), 10, 32)
	return uint32(slot), err
}

func decodeBody(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.New("invalid address")
	}
	return common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("invalid decimal amount")
	}
	return v, nil
}
