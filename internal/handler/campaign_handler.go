package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"sendwave/internal/engine"
	"sendwave/internal/models"
	"sendwave/internal/repository"
)

// CampaignHandler exposes the engine's campaign actions over HTTP. This is
// the programmatic surface the surrounding application layer calls; CRUD
// for campaigns themselves lives elsewhere.
type CampaignHandler struct {
	scheduler *engine.Scheduler
	lifecycle *engine.Lifecycle
	campaigns repository.CampaignRepository
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(scheduler *engine.Scheduler, lifecycle *engine.Lifecycle, campaigns repository.CampaignRepository) *CampaignHandler {
	return &CampaignHandler{
		scheduler: scheduler,
		lifecycle: lifecycle,
		campaigns: campaigns,
	}
}

// ScheduleRequest represents the request to start or schedule a campaign
type ScheduleRequest struct {
	// StartAt defers the start; absent or past means start now
	StartAt *time.Time `json:"start_at,omitempty"`
}

// ScheduleResponse reports the accepted scheduling action
type ScheduleResponse struct {
	CampaignID int                   `json:"campaign_id"`
	Status     models.CampaignStatus `json:"status"`
}

// Schedule handles POST /campaigns/{id}/schedule - starts or schedules a campaign
func (h *CampaignHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	startAt := time.Now().UTC()
	if req.StartAt != nil {
		startAt = req.StartAt.UTC()
	}

	if err := h.scheduler.Schedule(r.Context(), campaignID, startAt); err != nil {
		HandleEngineError(w, err)
		return
	}

	campaign, err := h.campaigns.GetByID(r.Context(), campaignID)
	if err != nil {
		HandleEngineError(w, err)
		return
	}

	WriteAccepted(w, ScheduleResponse{
		CampaignID: campaignID,
		Status:     campaign.Status,
	})
}

// CancelSchedule handles DELETE /campaigns/{id}/schedule - cancels a pending start
func (h *CampaignHandler) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.CancelScheduled(r.Context(), campaignID); err != nil {
		HandleEngineError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{
		"campaign_id": campaignID,
		"status":      models.CampaignStatusDraft,
	})
}

// Pause handles POST /campaigns/{id}/pause
func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.applyLifecycle(w, r, h.lifecycle.Pause, models.CampaignStatusPaused)
}

// Resume handles POST /campaigns/{id}/resume
func (h *CampaignHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.applyLifecycle(w, r, h.lifecycle.Resume, models.CampaignStatusRunning)
}

// Cancel handles POST /campaigns/{id}/cancel
func (h *CampaignHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.applyLifecycle(w, r, h.lifecycle.Cancel, models.CampaignStatusCancelled)
}

// Progress handles GET /campaigns/{id}/progress
func (h *CampaignHandler) Progress(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	campaign, err := h.campaigns.GetWithProgress(r.Context(), campaignID)
	if err != nil {
		HandleEngineError(w, err)
		return
	}

	WriteOK(w, campaign)
}

func (h *CampaignHandler) applyLifecycle(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id int) error, status models.CampaignStatus) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	if err := action(r.Context(), campaignID); err != nil {
		HandleEngineError(w, err)
		return
	}

	WriteOK(w, map[string]interface{}{
		"campaign_id": campaignID,
		"status":      status,
	})
}

// parseCampaignID extracts and validates the campaign ID from the URL
func parseCampaignID(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		WriteValidationError(w, "invalid campaign ID format")
		return 0, false
	}
	if id <= 0 {
		WriteValidationError(w, "campaign ID must be greater than 0")
		return 0, false
	}
	return id, true
}
