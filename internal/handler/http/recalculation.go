package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

// RecalculationRunner starts and pauses background recalculations
type RecalculationRunner interface {
	Start(ctx context.Context, req recalculation.Request) (recalculation.Plan, error)
	Cancel(processID string) bool
}

type RecalculationHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	Latest(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Pause(w http.ResponseWriter, r *http.Request)

	// SSE
	GetStreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type recalculationHandlerImpl struct {
	runner     RecalculationRunner
	recalcSvc  recalculation.Service
	hub        *sse.Hub
	jwtService jwt.Service
	keepalive  time.Duration
}

func NewRecalculationHandler(runner RecalculationRunner, recalcSvc recalculation.Service, hub *sse.Hub, jwtService jwt.Service) RecalculationHandler {
	return &recalculationHandlerImpl{
		runner:     runner,
		recalcSvc:  recalcSvc,
		hub:        hub,
		jwtService: jwtService,
		keepalive:  30 * time.Second,
	}
}

// getUserIDFromContext extracts user_id from JWT context
func getUserIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

// Start accepts a recalculation and runs it in the background. An empty body
// recalculates the default month.
func (h *recalculationHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req recalculation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	plan, err := h.runner.Start(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Recalculation started", recalculation.NewStartResponse(plan))
}

func (h *recalculationHandlerImpl) Latest(w http.ResponseWriter, r *http.Request) {
	progress, err := h.recalcSvc.GetLatestProgress(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, progress)
}

func (h *recalculationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	progress, err := h.recalcSvc.GetProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, progress)
}

// Pause cancels an active run; its checkpoint stays resumable
func (h *recalculationHandlerImpl) Pause(w http.ResponseWriter, r *http.Request) {
	processID := chi.URLParam(r, "id")
	if !h.runner.Cancel(processID) {
		response.NotFound(w, "No active recalculation with this id")
		return
	}

	response.Accepted(w, "Recalculation pausing", map[string]string{"process_id": processID})
}

// GetStreamToken issues a short-lived token for the event stream of one run
func (h *recalculationHandlerImpl) GetStreamToken(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	processID := chi.URLParam(r, "id")
	if _, err := h.recalcSvc.GetProgress(r.Context(), processID); err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateSSEToken(userID, processID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, recalculation.StreamTokenResponse{Token: token, ExpiresIn: expiresIn})
}

// Stream handles the SSE connection that follows one run's checkpoints
func (h *recalculationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	processID := chi.URLParam(r, "id")

	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	if _, err := h.jwtService.ValidateSSEToken(tokenStr, processID); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the snapshot so no checkpoint falls in between
	events, cleanup := h.hub.Subscribe(processID)
	defer cleanup()

	progress, err := h.recalcSvc.GetProgress(r.Context(), processID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	snapshot := recalculation.SummaryOf(progress, false)
	writeEvent(w, "snapshot", snapshot)
	flusher.Flush()
	if !progress.Status.Resumable() && progress.Status != recalculation.StatusInitializing {
		return
	}

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, event.Event, event.Data)
			flusher.Flush()
			if summary, ok := event.Data.(recalculation.Summary); ok && isTerminal(summary.Status) {
				return
			}

		case <-keepalive.C:
			// A full subscriber buffer drops events, so the store has the last word
			if latest, err := h.recalcSvc.GetProgress(r.Context(), processID); err == nil &&
				isTerminal(latest.Status) && latest.UpdatedAt.After(progress.UpdatedAt) {
				writeEvent(w, string(latest.Status), recalculation.SummaryOf(latest, false))
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w io.Writer, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func isTerminal(status recalculation.Status) bool {
	return status == recalculation.StatusCompleted || status == recalculation.StatusFailed || status == recalculation.StatusPaused
}
