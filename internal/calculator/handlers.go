package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator session API.
type Handler struct {
	store    *Store
	defaults Settings
}

// NewHandler returns a Handler backed by store. defaults apply to sessions
// created without a settings body.
func NewHandler(store *Store, defaults Settings) *Handler {
	return &Handler{store: store, defaults: defaults}
}

// ---------------------------------------------------------------------------
// Handlers — sessions
// ---------------------------------------------------------------------------

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "create_session")
	defer span.End()

	settings := h.defaults
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		observability.RecordError(ctx, span, logger, errorCounter, "create_session", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	s, err := h.store.Create(settings)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "create_session", err.Error(), err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.String("calculator.session.id", s.ID))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator session created",
		zap.String("session_id", s.ID),
		zap.Int("precision", settings.Precision),
		zap.Bool("sound_enabled", settings.SoundEnabled),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusCreated, SessionResponse{ID: s.ID, Snapshot: s.Snapshot()})
}

// GetSession handles GET /calculator/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "get_session")
	defer span.End()

	s, ok := h.session(ctx, span, logger, "get_session", w, r)
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, SessionResponse{ID: s.ID, Snapshot: s.Snapshot()})
}

// DeleteSession handles DELETE /calculator/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "delete_session")
	defer span.End()

	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "delete_session", "session not found", err, statusFor(err), w)
		return
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("calculator session deleted",
		zap.String("session_id", id),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Handler — key events (one child span per key)
// ---------------------------------------------------------------------------

// PressKeys handles POST /calculator/sessions/{id}/keys — applies a sequence
// of key events to the session in order, creating a child span for every key.
// Keys before a rejected key stay applied.
func (h *Handler) PressKeys(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "keys")
	defer span.End()

	s, ok := h.session(ctx, span, logger, "keys", w, r)
	if !ok {
		return
	}

	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "invalid request body", err, http.StatusBadRequest, w)
		return
	}
	if len(req.Keys) == 0 {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", "no keys provided", fmt.Errorf("keys array is empty"), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.keys_count", len(req.Keys)))

	var snap Snapshot
	err := s.Do(func(e *Engine) error {
		defer e.SetObserver(nil)

		for i, key := range req.Keys {
			if err := h.press(ctx, logger, e, i, key); err != nil {
				return err
			}
		}
		snap = e.Snapshot()
		return nil
	})
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "keys", err.Error(), err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.String("calculator.display", snap.Display),
		attribute.String("calculator.state", snap.State.String()),
	)
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator keys applied",
		zap.String("session_id", s.ID),
		zap.Int("keys", len(req.Keys)),
		zap.String("display", snap.Display),
		zap.String("state", snap.State.String()),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusOK, SessionResponse{ID: s.ID, Snapshot: snap})
}

// press applies one key inside its own child span.
func (h *Handler) press(ctx context.Context, logger *zap.Logger, e *Engine, i int, key string) error {
	keyCtx, keySpan := tracer.Start(ctx, fmt.Sprintf("calculator.key.%d", i),
		trace.WithAttributes(
			attribute.Int("calculator.key.index", i),
			attribute.String("calculator.key", key),
			attribute.String("calculator.display.before", e.Display()),
		),
	)
	defer keySpan.End()

	e.SetObserver(eventObserver{ctx: keyCtx, span: keySpan, logger: logger})

	start := time.Now()
	err := e.Press(key)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		keySpan.RecordError(err)
		keySpan.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("key %d: %w", i, err)
	}

	attrs := metric.WithAttributes(attribute.String("operation", keyOperation(key)))
	opsCounter.Add(keyCtx, 1, attrs)
	opsHistogram.Record(keyCtx, elapsed, attrs)

	keySpan.SetAttributes(attribute.String("calculator.display.after", e.Display()))
	keySpan.SetStatus(codes.Ok, "")
	return nil
}

// ---------------------------------------------------------------------------
// Handlers — history and settings
// ---------------------------------------------------------------------------

// History handles GET /calculator/sessions/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "history")
	defer span.End()

	s, ok := h.session(ctx, span, logger, "history", w, r)
	if !ok {
		return
	}

	history := s.History()

	span.SetAttributes(attribute.Int("calculator.history.length", len(history)))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, HistoryResponse{History: history})
}

// SelectHistory handles POST /calculator/sessions/{id}/history/{index}
func (h *Handler) SelectHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "select_history")
	defer span.End()

	s, ok := h.session(ctx, span, logger, "select_history", w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "select_history", "invalid history index", err, http.StatusBadRequest, w)
		return
	}

	var snap Snapshot
	err = s.Do(func(e *Engine) error {
		if err := e.SelectHistory(index); err != nil {
			return err
		}
		snap = e.Snapshot()
		return nil
	})
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "select_history", err.Error(), err, statusFor(err), w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.history.index", index))
	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, SessionResponse{ID: s.ID, Snapshot: snap})
}

// GetSettings handles GET /calculator/sessions/{id}/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "get_settings")
	defer span.End()

	s, ok := h.session(ctx, span, logger, "get_settings", w, r)
	if !ok {
		return
	}

	span.SetStatus(codes.Ok, "")
	handlers.WriteJSON(w, http.StatusOK, s.Snapshot().Settings)
}

// PutSettings handles PUT /calculator/sessions/{id}/settings
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span, logger := h.start(r, "put_settings")
	defer span.End()

	s, ok := h.session(ctx, span, logger, "put_settings", w, r)
	if !ok {
		return
	}

	var patch SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "put_settings", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	var settings Settings
	err := s.Do(func(e *Engine) error {
		settings = patch.Apply(e.Settings())
		return e.SetSettings(settings)
	})
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, "put_settings", err.Error(), err, http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(attribute.Int("calculator.precision", settings.Precision))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator settings updated",
		zap.String("session_id", s.ID),
		zap.String("theme", string(settings.Theme)),
		zap.Bool("sound_enabled", settings.SoundEnabled),
		zap.Int("precision", settings.Precision),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	handlers.WriteJSON(w, http.StatusOK, settings)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// start opens the handler span and returns the trace-correlated logger.
func (h *Handler) start(r *http.Request, opName string) (context.Context, trace.Span, *zap.Logger) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)

	ctx, span := tracer.Start(ctx, "calculator."+opName,
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", observability.RequestIDFromContext(ctx)),
		),
	)
	return ctx, span, logger
}

// session resolves the {id} route parameter, writing the error response when
// the session does not exist.
func (h *Handler) session(ctx context.Context, span trace.Span, logger *zap.Logger, opName string, w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "session not found", err, statusFor(err), w)
		return nil, false
	}
	span.SetAttributes(attribute.String("calculator.session.id", s.ID))
	return s, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrHistoryIndex):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// keyOperation names a key for metric attributes.
func keyOperation(key string) string {
	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	if op := Operator(key); op.Valid() {
		return op.Name()
	}
	switch key {
	case KeyDecimal:
		return "decimal"
	case KeyEquals:
		return "evaluate"
	case KeyClear:
		return "clear"
	case KeySign:
		return "toggle_sign"
	case KeyPercent:
		return "percentage"
	}
	return "digit"
}

// eventObserver records evaluation outcomes on the key span, the metrics and
// the log.
type eventObserver struct {
	ctx    context.Context
	span   trace.Span
	logger *zap.Logger
}

func (o eventObserver) Evaluated(op Operator, entry HistoryEntry) {
	attrs := metric.WithAttributes(attribute.String("operation", op.Name()))
	resultGauge.Record(o.ctx, ParseNumber(entry.Result), attrs)

	o.span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.String("expression", entry.Expression),
		attribute.String("result", entry.Result),
	))

	o.logger.Info("calculator operation completed",
		zap.String("operation", op.Name()),
		zap.String("expression", entry.Expression),
		zap.String("result", entry.Result),
	)
}

func (o eventObserver) Faulted(op Operator, operand, display string) {
	errorCounter.Add(o.ctx, 1, metric.WithAttributes(attribute.String("operation", op.Name())))

	o.span.AddEvent("computation.fault", trace.WithAttributes(
		attribute.String("operand", operand),
		attribute.String("divisor", display),
	))

	o.logger.Warn("division by zero",
		zap.String("operation", op.Name()),
		zap.String("operand", operand),
		zap.String("divisor", display),
	)
}
