// Package chi is the HTTP presentation layer: thin JSON handlers over the
// recommendation service with sentinel-to-status error mapping.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	logpkg "github.com/tlsandbox/cohere-globalmart/internal/logger"
	"github.com/tlsandbox/cohere-globalmart/internal/metrics"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/recommend"
)

// Request body limits. Images are base64-expanded downstream, so the upload
// cap stays well below the model's payload ceiling.
const (
	maxJSONBody   = 1 << 20 // 1 MiB
	maxImageBody  = 8 << 20 // 8 MiB
	maxSearchTopK = 20
	maxLookTopK   = 12
)

var homeGenders = map[string]string{"women": "Women", "men": "Men"}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the recommendation operations over HTTP.
type Server struct {
	recs          *recommend.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(recs *recommend.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{recs: recs, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrProductNotFound, http.StatusNotFound, "product_not_found"),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"),
		sentinelHandler(domain.ErrProfileNotFound, http.StatusNotFound, "profile_not_found"),
	}
	return s
}

// Router mounts all routes with the standard middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.Health)
		r.Get("/profile", s.GetProfile)
		r.Get("/cart", s.GetCart)
		r.Post("/cart/add", s.CartAdd)
		r.Post("/cart/remove", s.CartRemove)
		r.Post("/feedback", s.Feedback)
		r.Get("/home-products", s.HomeProducts)
		r.Post("/search", s.Search)
		r.Post("/image-match", s.ImageMatch)
		r.Get("/personalized/{sessionID}", s.Personalized)
		r.Post("/check-match", s.CheckMatch)
		r.Post("/complete-look", s.CompleteLook)
		r.Post("/refine-session", s.RefineSession)
		r.Post("/suggest-session", s.SuggestSession)
	})
	return r
}

type searchRequest struct {
	Query       string `json:"query"`
	ShopperName string `json:"shopper_name"`
	TopK        int    `json:"top_k"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.SearchByText(r.Context(), req.Query, req.ShopperName, clampTopK(req.TopK, maxSearchTopK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// ImageMatch handles POST /api/image-match (multipart upload).
func (s *Server) ImageMatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	if err := r.ParseMultipartForm(maxImageBody); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart request: "+err.Error())
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "image file is required")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing image filename")
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read image: "+err.Error())
		return
	}
	if len(imageBytes) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "uploaded file is empty")
		return
	}

	topK := 10
	if v := r.FormValue("top_k"); v != "" {
		if parsed, convErr := strconv.Atoi(v); convErr == nil {
			topK = parsed
		}
	}
	payload, err := s.recs.SearchByImage(r.Context(), imageBytes, r.FormValue("shopper_name"), clampTopK(topK, maxSearchTopK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Personalized handles GET /api/personalized/{sessionID}.
func (s *Server) Personalized(w http.ResponseWriter, r *http.Request) {
	payload, err := s.recs.GetPersonalized(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type checkMatchRequest struct {
	SessionID string `json:"session_id"`
	ProductID int    `json:"product_id"`
}

// CheckMatch handles POST /api/check-match.
func (s *Server) CheckMatch(w http.ResponseWriter, r *http.Request) {
	var req checkMatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.CheckMatch(r.Context(), req.SessionID, req.ProductID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type completeLookRequest struct {
	SessionID string `json:"session_id"`
	ProductID int    `json:"product_id"`
	TopK      int    `json:"top_k"`
}

// CompleteLook handles POST /api/complete-look.
func (s *Server) CompleteLook(w http.ResponseWriter, r *http.Request) {
	var req completeLookRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	topK := req.TopK
	if topK < 1 {
		topK = 6
	}
	payload, err := s.recs.CompleteTheLook(r.Context(), req.SessionID, req.ProductID, clampTopK(topK, maxLookTopK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type refineSessionRequest struct {
	SessionID  string `json:"session_id"`
	Refinement string `json:"refinement"`
	TopK       int    `json:"top_k"`
}

// RefineSession handles POST /api/refine-session.
func (s *Server) RefineSession(w http.ResponseWriter, r *http.Request) {
	var req refineSessionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.RefineSession(r.Context(), req.SessionID, req.Refinement, clampTopK(req.TopK, maxSearchTopK))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type suggestSessionRequest struct {
	ShopperName string `json:"shopper_name"`
	ProductID   int    `json:"product_id"`
}

// SuggestSession handles POST /api/suggest-session.
func (s *Server) SuggestSession(w http.ResponseWriter, r *http.Request) {
	var req suggestSessionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.CreateSuggestSession(r.Context(), req.ProductID, req.ShopperName)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// HomeProducts handles GET /api/home-products.
func (s *Server) HomeProducts(w http.ResponseWriter, r *http.Request) {
	limit := 24
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 6 {
		limit = 6
	}
	if limit > 60 {
		limit = 60
	}

	gender := ""
	if raw := strings.TrimSpace(r.URL.Query().Get("gender")); raw != "" {
		normalized, ok := homeGenders[strings.ToLower(raw)]
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_failed", "gender must be one of: Women, Men")
			return
		}
		gender = normalized
	}

	products := s.recs.HomeFeed(r.Context(), limit, gender)
	resp := map[string]any{
		"shopper_name": domain.DefaultShopperName,
		"products":     products,
	}
	if gender != "" {
		resp["gender_filter"] = gender
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProfile handles GET /api/profile.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	payload, err := s.recs.GetProfile(r.Context(), r.URL.Query().Get("shopper_name"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// GetCart handles GET /api/cart.
func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	payload, err := s.recs.GetCart(r.Context(), r.URL.Query().Get("shopper_name"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type cartUpdateRequest struct {
	ShopperName string `json:"shopper_name"`
	ProductID   int    `json:"product_id"`
	Quantity    int    `json:"quantity"`
}

// CartAdd handles POST /api/cart/add.
func (s *Server) CartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.AddToCart(r.Context(), req.ShopperName, req.ProductID, req.Quantity)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// CartRemove handles POST /api/cart/remove.
func (s *Server) CartRemove(w http.ResponseWriter, r *http.Request) {
	var req cartUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.RemoveFromCart(r.Context(), req.ShopperName, req.ProductID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

type feedbackRequest struct {
	ShopperName string `json:"shopper_name"`
	EventType   string `json:"event_type"`
	SessionID   string `json:"session_id"`
	ProductID   int    `json:"product_id"`
	EventValue  string `json:"event_value"`
}

// Feedback handles POST /api/feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	payload, err := s.recs.RecordFeedback(r.Context(), req.ShopperName, req.EventType, req.SessionID, req.ProductID, req.EventValue)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// Health handles GET /api/health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := s.recs.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"app":    "globalmart-fashion-assistant",
		"stats":  stats,
	})
}

// Healthz handles GET /healthz (liveness probe).
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidArgument,
		domain.ErrProductNotFound,
		domain.ErrSessionNotFound,
		domain.ErrProfileNotFound,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func clampTopK(topK, ceiling int) int {
	if topK < 1 {
		return topK // service applies per-operation defaults
	}
	if topK > ceiling {
		return ceiling
	}
	return topK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// jsonRecoverer returns JSON instead of a plain text stacktrace on panic.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates
// X-Request-ID. The per-request logger rides the context for handlers that
// want it.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWith(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
