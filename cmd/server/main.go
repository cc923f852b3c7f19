// Package main is the entry point for the token risk engine, a service that
// scores token contracts for honeypot, contract, holder and liquidity risk
// in bulk.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-risk-engine/internal/access"
	"github.com/yourorg/token-risk-engine/internal/batch"
	"github.com/yourorg/token-risk-engine/internal/batchcache"
	"github.com/yourorg/token-risk-engine/internal/circuitbreaker"
	"github.com/yourorg/token-risk-engine/internal/config"
	"github.com/yourorg/token-risk-engine/internal/dedup"
	"github.com/yourorg/token-risk-engine/internal/fetch"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/otel"
	"github.com/yourorg/token-risk-engine/internal/ratelimit"
	"github.com/yourorg/token-risk-engine/internal/security"
	"github.com/yourorg/token-risk-engine/internal/store"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// maxRequestBytes bounds request bodies; larger payloads are rejected
// instead of read.
const maxRequestBytes = 1 << 20

// Server represents the risk engine server instance
type Server struct {
	cfg config.Config

	processor *batch.Processor
	limiter   *ratelimit.Limiter
	cache     *batchcache.Cache
	breaker   *circuitbreaker.CircuitBreaker
	store     store.Store
	integrity *security.IntegrityService

	// inbound throttles HTTP callers; the per-service limiter above guards
	// the upstream provider budget instead.
	inbound *rate.Limiter

	metrics *serverMetrics
	server  *http.Server
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	batchSize       prometheus.Histogram
	itemErrors      *prometheus.CounterVec
	breakerState    prometheus.Gauge
	cacheHits       prometheus.Gauge
	cacheMisses     prometheus.Gauge
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskengine_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskengine_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "riskengine_batch_size",
				Help:    "Number of items per batch request",
				Buckets: []float64{1, 5, 10, 25, 50, 100},
			},
		),
		itemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskengine_item_errors_total",
				Help: "Per-item analysis errors by code",
			},
			[]string{"code"},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskengine_circuit_breaker_state",
				Help: "Provider circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		cacheHits: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskengine_batch_cache_hits",
				Help: "Cumulative batch response cache hits",
			},
		),
		cacheMisses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskengine_batch_cache_misses",
				Help: "Cumulative batch response cache misses",
			},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.batchSize,
		m.itemErrors,
		m.breakerState,
		m.cacheHits,
		m.cacheMisses,
	)

	return m
}

// main is the entry point for the application
func main() {
	setupLogging()

	cfg := config.Load()

	shutdownTracing := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdownTracing()

	server, err := NewServer(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize server: %v", err)
	}
	server.Start()
}

// NewServer wires the analysis pipeline together from configuration.
func NewServer(cfg config.Config) (*Server, error) {
	metrics := registerMetrics()

	breaker := circuitbreaker.New(cfg.BreakerFailureThreshold, cfg.BreakerCooldown).
		WithTripCallback(func(reason string) {
			logrus.Warnf("Provider circuit breaker tripped: %s", reason)
		})

	fetcher := fetch.NewGoPlusClient(cfg.GoPlusURL, breaker)
	limiter := ratelimit.New()
	registry := dedup.New(fetcher, limiter, cfg.ProviderMaxPerMinute).
		WithTimeout(cfg.AnalysisTimeout)

	var st store.Store
	var err error
	if cfg.StorePath != "" {
		st, err = store.OpenBadger(cfg.StorePath, cfg.StoreTTL)
		if err != nil {
			return nil, err
		}
		logrus.WithField("path", cfg.StorePath).Info("Badger score store opened")
	} else {
		st = store.NewMemoryStore(cfg.StoreTTL)
		logrus.Info("Using in-memory score store")
	}

	integrity, err := security.NewIntegrityService(cfg.SigningEnabled)
	if err != nil {
		return nil, err
	}

	cache := batchcache.New()
	processor := batch.NewProcessor(registry, cache, st).WithChunkSize(cfg.ChunkSize)

	logrus.WithFields(logrus.Fields{
		"port":              cfg.Port,
		"provider_budget":   cfg.ProviderMaxPerMinute,
		"analysis_timeout":  cfg.AnalysisTimeout,
		"chunk_size":        cfg.ChunkSize,
		"persistent_store":  cfg.StorePath != "",
		"signing":           cfg.SigningEnabled,
		"breaker_threshold": cfg.BreakerFailureThreshold,
	}).Info("Server initialized")

	return &Server{
		cfg:       cfg,
		processor: processor,
		limiter:   limiter,
		cache:     cache,
		breaker:   breaker,
		store:     st,
		integrity: integrity,
		inbound:   rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		metrics:   metrics,
	}, nil
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/risk", s.handleRisk)            // Single-token analysis
	mux.HandleFunc("/risk/batch", s.handleBatch)     // Bulk analysis
	mux.HandleFunc("/health", s.handleHealth)        // Health check endpoint
	mux.HandleFunc("/status", s.handleStatus)        // Service status endpoint
	mux.HandleFunc("/circuit", s.handleCircuit)      // Circuit breaker status/control
	mux.Handle("/metrics", promhttp.Handler())       // Prometheus metrics endpoint

	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}
	if err := s.store.Close(); err != nil {
		logrus.Errorf("Store close failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// batchRequest is the bulk analysis request body.
type batchRequest struct {
	Tokens []model.BatchItem `json:"tokens"`
}

// handleBatch processes a bulk analysis request.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		s.errorResponse(w, "batch", http.StatusMethodNotAllowed, model.CodeInternalError, "method not allowed")
		return
	}
	if !s.inbound.Allow() {
		s.errorResponse(w, "batch", http.StatusTooManyRequests, model.CodeRateLimited, "too many requests")
		return
	}

	var req batchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.errorResponse(w, "batch", http.StatusRequestEntityTooLarge, model.CodeRequestTooLarge,
				"request body exceeds "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
			return
		}
		s.errorResponse(w, "batch", http.StatusBadRequest, model.CodeInternalError, "invalid request body")
		return
	}

	requestID := uuid.NewString()
	descriptor := access.Resolve(r)
	s.metrics.batchSize.Observe(float64(len(req.Tokens)))

	ctx, span := otel.Tracer().Start(r.Context(), "batch.process")
	defer span.End()

	resp, err := s.processor.Process(ctx, req.Tokens, descriptor.MaxBatchSize, requestID)
	if err != nil {
		otel.RecordError(ctx, err)
		var sizeErr *batch.SizeExceededError
		if errors.As(err, &sizeErr) {
			s.errorResponse(w, "batch", http.StatusBadRequest, model.CodeBatchSizeExceeded, sizeErr.Error())
			return
		}
		s.errorResponse(w, "batch", http.StatusInternalServerError, model.CodeInternalError, err.Error())
		return
	}

	for _, itemErr := range resp.Errors {
		s.metrics.itemErrors.WithLabelValues(itemErr.Code).Inc()
	}
	hits, misses, _ := s.cache.Stats()
	s.metrics.cacheHits.Set(float64(hits))
	s.metrics.cacheMisses.Set(float64(misses))
	s.metrics.breakerState.Set(float64(s.breaker.GetState()))
	s.metrics.requestCounter.WithLabelValues("batch", "success").Inc()
	s.metrics.requestDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	s.writeSigned(w, http.StatusOK, resp)
}

// riskRequest is the single-token request body.
type riskRequest struct {
	Address   string  `json:"address"`
	Chain     string  `json:"chain"`
	Liquidity float64 `json:"liquidity,omitempty"`
}

// handleRisk analyzes one token. It rides the same pipeline as a batch of
// one, so dedup, caching and rate limiting behave identically.
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		s.errorResponse(w, "risk", http.StatusMethodNotAllowed, model.CodeInternalError, "method not allowed")
		return
	}
	if !s.inbound.Allow() {
		s.errorResponse(w, "risk", http.StatusTooManyRequests, model.CodeRateLimited, "too many requests")
		return
	}

	var req riskRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "risk", http.StatusBadRequest, model.CodeInternalError, "invalid request body")
		return
	}

	requestID := uuid.NewString()
	ctx, span := otel.Tracer().Start(r.Context(), "risk.analyze")
	defer span.End()

	item := model.BatchItem{Address: req.Address, Chain: req.Chain, Liquidity: req.Liquidity}
	resp, err := s.processor.Process(ctx, []model.BatchItem{item}, 1, requestID)
	if err != nil {
		otel.RecordError(ctx, err)
		s.errorResponse(w, "risk", http.StatusInternalServerError, model.CodeInternalError, err.Error())
		return
	}

	for _, score := range resp.Results {
		s.metrics.requestCounter.WithLabelValues("risk", "success").Inc()
		s.metrics.requestDuration.WithLabelValues("risk").Observe(time.Since(start).Seconds())
		s.writeSigned(w, http.StatusOK, score)
		return
	}

	// No result means the single item failed; surface its error.
	for _, itemErr := range resp.Errors {
		s.metrics.itemErrors.WithLabelValues(itemErr.Code).Inc()
		s.errorResponse(w, "risk", statusForCode(itemErr.Code), itemErr.Code, itemErr.Message)
		return
	}

	s.errorResponse(w, "risk", http.StatusInternalServerError, model.CodeInternalError, "no result produced")
}

// statusForCode maps item error codes onto HTTP statuses for the
// single-token endpoint.
func statusForCode(code string) int {
	switch code {
	case model.CodeInvalidChain, model.CodeInvalidAddress:
		return http.StatusBadRequest
	case model.CodeRateLimited:
		return http.StatusTooManyRequests
	case model.CodeAnalysisTimeout:
		return http.StatusGatewayTimeout
	case model.CodeAnalysisException:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	hits, misses, size := s.cache.Stats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": version,
		"batch_cache": map[string]interface{}{
			"hits":    hits,
			"misses":  misses,
			"entries": size,
		},
		"provider_limits": s.limiter.Stats(),
		"circuit_state":   s.breaker.GetState().String(),
		"configuration": map[string]interface{}{
			"provider_budget_per_minute": s.cfg.ProviderMaxPerMinute,
			"analysis_timeout":           s.cfg.AnalysisTimeout.String(),
			"chunk_size":                 s.cfg.ChunkSize,
			"signing":                    s.cfg.SigningEnabled,
		},
	})
}

// handleCircuit allows viewing and resetting the provider circuit breaker
func (s *Server) handleCircuit(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"state": s.breaker.GetState().String(),
	}

	if r.Method == http.MethodPost && r.URL.Query().Get("action") == "reset" {
		s.breaker.Reset()
		response["state"] = s.breaker.GetState().String()
		response["message"] = "Circuit breaker reset"
	}

	writeJSON(w, http.StatusOK, response)
}
