// Package http serves the webhook endpoints a deployed agent calls: call
// lifecycle events, function-call tools and a read-only lead listing.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/leads"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/registry"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Config wires a Server. Store is required; everything else is optional.
type Config struct {
	Store    ports.LeadStore
	Locker   ports.DistributedLocker
	Registry *registry.Registry
	// Secret enables signature checks on /webhook.
	Secret  string
	Metrics *Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server handles webhook traffic.
type Server struct {
	store   ports.LeadStore
	locker  ports.DistributedLocker
	tools   *registry.Registry
	secret  string
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	schemas *schemas
}

// NewServer builds a Server and registers the built-in tools on its registry.
// Tools already registered under the same names are replaced.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("lead store is required")
	}
	sc, err := loadSchemas(ctx)
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:   cfg.Store,
		locker:  cfg.Locker,
		tools:   cfg.Registry,
		secret:  cfg.Secret,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
		schemas: sc,
	}
	if s.tools == nil {
		s.tools = registry.NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.registerTools(s.tools)
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Post("/webhook", s.handleWebhook)
	r.Post("/functions/{name}", s.handleFunction)
	r.Get("/leads", s.handleLeads)
	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

// EventAck is the answer to a call event.
type EventAck struct {
	Success bool             `json:"success"`
	Event   domain.EventType `json:"event"`
	Result  any              `json:"result,omitempty"`
	Message string           `json:"message,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	if s.secret != "" {
		if err := Verify(s.secret, body, r.Header.Get(SignatureHeader), s.now()); err != nil {
			s.logger.Warn("Webhook: signature rejected", "error", err)
			s.metrics.EventsTotal.WithLabelValues("unknown", "unauthorized").Inc()
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.schemas.validate(schemaCallEvent, raw); err != nil {
		s.logger.Warn("Webhook: event rejected", "error", err)
		s.metrics.EventsTotal.WithLabelValues("unknown", "invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var ev domain.CallEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("Webhook received", "event", ev.Event, "call_id", ev.CallID, "agent_id", ev.AgentID)
	ack, err := s.HandleEvent(r.Context(), &ev)
	if err != nil {
		s.logger.Error("Webhook: event failed", "event", ev.Event, "call_id", ev.CallID, "error", err)
		s.metrics.EventsTotal.WithLabelValues(string(ev.Event), "error").Inc()
		writeError(w, statusFor(err), "failed to process webhook: "+err.Error())
		return
	}
	s.metrics.EventsTotal.WithLabelValues(string(ev.Event), "ok").Inc()
	writeJSON(w, http.StatusOK, ack)
}

// HandleEvent applies a decoded call event.
func (s *Server) HandleEvent(ctx context.Context, ev *domain.CallEvent) (*EventAck, error) {
	ack := &EventAck{Success: true, Event: ev.Event}
	switch ev.Event {
	case domain.EventCallStarted:
		s.logger.Info("Call started", "from", ev.FromNumber, "to", ev.ToNumber)

	case domain.EventCallEnded, domain.EventCallAnalyzed:
		now := s.now()
		lead, ok := leads.FromCall(ev, now)
		if !ok {
			s.logger.Info("Call ended without a contact name, no lead written", "call_id", ev.CallID)
			return ack, nil
		}
		res, err := leads.Upsert(ctx, s.store, s.locker, lead, now)
		if err != nil {
			return nil, err
		}
		s.countLead(res)
		ack.Result = map[string]any{"lead_id": res.Lead.ID, "created": res.Created}

	case domain.EventFunctionCall:
		if ev.ToolCall == nil || !s.tools.Has(ev.ToolCall.Name) {
			ack.Message = "Function call received"
			return ack, nil
		}
		out, err := s.runTool(ctx, ev.ToolCall.Name, ev.ToolCall.Args)
		if err != nil {
			return nil, err
		}
		ack.Result = out
	}
	return ack, nil
}

func (s *Server) countLead(res *leads.UpsertResult) {
	action := "updated"
	if res.Created {
		action = "created"
	}
	s.metrics.LeadsTotal.WithLabelValues(action).Inc()
	s.logger.Info("Lead "+action, "lead_id", res.Lead.ID, "score", res.Lead.Score, "status", res.Lead.Status)
}

// toolRequest is the body the platform posts to a custom tool URL.
type toolRequest struct {
	Name string            `json:"name"`
	Args map[string]any    `json:"args"`
	Call *domain.CallEvent `json:"call"`
}

func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.tools.Has(name) {
		writeError(w, http.StatusNotFound, "unknown function "+name)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if s.secret != "" {
		if err := Verify(s.secret, body, r.Header.Get(SignatureHeader), s.now()); err != nil {
			s.logger.Warn("Function: signature rejected", "tool", name, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	args, err := unwrapArgs(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.runTool(r.Context(), name, args)
	if err != nil {
		s.logger.Warn("Function failed", "tool", name, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// unwrapArgs accepts either bare arguments or {"args": {...}, "call": {...}}.
// A phone from the wrapping call fills in a missing "phone" argument.
func unwrapArgs(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if _, wrapped := probe["args"]; !wrapped {
		var args map[string]any
		if err := json.Unmarshal(body, &args); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return args, nil
	}

	var req toolRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid tool request: %w", err)
	}
	if req.Args == nil {
		req.Args = map[string]any{}
	}
	if _, ok := req.Args["phone"]; !ok && req.Call != nil {
		number := req.Call.FromNumber
		if req.Call.Direction == "outbound" {
			number = req.Call.ToNumber
		}
		if number != "" {
			req.Args["phone"] = number
		}
	}
	return req.Args, nil
}

func (s *Server) runTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if schema, ok := toolSchemas[name]; ok {
		if err := s.schemas.validate(schema, toJSONValue(args)); err != nil {
			s.metrics.ToolCallsTotal.WithLabelValues(name, "invalid").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
	}
	out, err := s.tools.Execute(ctx, name, args)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()
	return out, err
}

// toJSONValue normalizes args to what encoding/json would decode, so schema
// checks see float64 numbers and plain maps.
func toJSONValue(args map[string]any) any {
	data, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return args
	}
	return v
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("List leads failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(all), "leads": all})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "switchboard",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgs):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLeadNotFound), errors.Is(err, registry.ErrToolNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
