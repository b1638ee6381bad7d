package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
	"telemed-server/pkg/logging"
)

// ConsultationHandler exposes the consultation lifecycle over HTTP.
type ConsultationHandler struct {
	Engine     *consultation.Engine
	Repo       consultation.Repository
	RoomSecret string
	Logger     *logging.Logger
}

// NewConsultationHandler creates a new ConsultationHandler.
func NewConsultationHandler(engine *consultation.Engine, repo consultation.Repository, roomSecret string, logger *logging.Logger) *ConsultationHandler {
	return &ConsultationHandler{Engine: engine, Repo: repo, RoomSecret: roomSecret, Logger: logger}
}

// SubmitConsultationRequest is what a patient sends to request a consultation.
type SubmitConsultationRequest struct {
	IssueID  string   `json:"issueId" binding:"required"`
	Symptoms []string `json:"symptoms" binding:"required,min=1"`
	Date     string   `json:"date"`
	Notes    string   `json:"notes"`
}

// Submit handles a patient's consultation request.
func (h *ConsultationHandler) Submit(c *gin.Context) {
	var req SubmitConsultationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	id, err := h.Engine.Submit(c.Request.Context(), consultation.Draft{
		PatientID:   actor.ID,
		PatientName: middleware.GetUserNameFromContext(c),
		IssueID:     req.IssueID,
		Symptoms:    req.Symptoms,
		Date:        req.Date,
		Notes:       req.Notes,
	})
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}

	rec, _ := h.Repo.Get(c.Request.Context(), id)
	utils.Created(c, "Consultation requested successfully", rec)
}

// List returns the caller's consultations, optionally filtered by ?status=.
func (h *ConsultationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	ctx := c.Request.Context()
	var records []models.Consultation
	switch actor.Role {
	case models.RolePatient:
		records = h.Repo.ListByPatient(ctx, actor.ID)
	case models.RoleDoctor:
		records = h.Repo.ListByDoctor(ctx, actor.ID)
	default:
		records = h.Repo.All(ctx)
	}

	if status := c.Query("status"); status != "" {
		if !validStatus(models.ConsultationStatus(status)) {
			utils.BadRequest(c, "Unknown status filter: "+status)
			return
		}
		filtered := make([]models.Consultation, 0, len(records))
		for _, r := range records {
			if r.Status == models.ConsultationStatus(status) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	utils.Success(c, "Consultations fetched successfully", records)
}

// Pending returns the queue of requested consultations, oldest first.
func (h *ConsultationHandler) Pending(c *gin.Context) {
	utils.Success(c, "Pending consultations fetched successfully", h.Engine.PendingQueue(c.Request.Context()))
}

// NextConsultationResponse is the dashboard's "next up" card.
type NextConsultationResponse struct {
	Consultation *models.Consultation `json:"consultation"`
	StartsAt     time.Time            `json:"startsAt"`
	MinutesUntil int                  `json:"minutesUntil"`
	Countdown    string               `json:"countdown"`
	Joinable     bool                 `json:"joinable"`
}

// Next returns the caller's next scheduled consultation.
func (h *ConsultationHandler) Next(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	rec, found := h.Engine.NextUpcoming(c.Request.Context(), actor)
	if !found {
		utils.Success(c, "No upcoming consultation", nil)
		return
	}
	start, err := consultation.ToInstant(rec.Date, rec.TimeSlot, h.Engine.Location())
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}

	now := h.Engine.Now()
	utils.Success(c, "Next consultation fetched successfully", NextConsultationResponse{
		Consultation: rec,
		StartsAt:     start,
		MinutesUntil: consultation.MinutesUntil(now, start),
		Countdown:    consultation.HumanizeCountdown(now, start),
		Joinable:     h.Engine.IsSoon(*rec),
	})
}

// Stats returns per-status counts of the caller's consultations.
func (h *ConsultationHandler) Stats(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	utils.Success(c, "Consultation stats fetched successfully", h.Engine.Stats(c.Request.Context(), actor))
}

// Get returns one consultation the caller is allowed to see.
func (h *ConsultationHandler) Get(c *gin.Context) {
	rec, ok := h.load(c, canView)
	if !ok {
		return
	}
	utils.Success(c, "Consultation fetched successfully", rec)
}

// BookingRequest assigns or moves a consultation into a doctor's slot. Doctors
// book into their own calendar; admins name the doctor.
type BookingRequest struct {
	DoctorID   string `json:"doctorId"`
	DoctorName string `json:"doctorName"`
	Date       string `json:"date" binding:"required"`
	TimeSlot   string `json:"timeSlot" binding:"required"`
}

// Assign books a requested consultation.
func (h *ConsultationHandler) Assign(c *gin.Context) {
	h.book(c, "assigned", func(actor consultation.Actor, rec *models.Consultation) bool {
		return actor.Role == models.RoleAdmin || actor.Role == models.RoleDoctor
	}, h.Engine.Assign)
}

// Reschedule moves a scheduled consultation to another free slot.
func (h *ConsultationHandler) Reschedule(c *gin.Context) {
	h.book(c, "rescheduled", func(actor consultation.Actor, rec *models.Consultation) bool {
		return actor.Role == models.RoleAdmin || (actor.Role == models.RoleDoctor && rec.DoctorID == actor.ID)
	}, h.Engine.Reschedule)
}

type bookFunc func(ctx context.Context, id string, b consultation.Booking) (*models.Consultation, error)

func (h *ConsultationHandler) book(c *gin.Context, verb string, allowed func(consultation.Actor, *models.Consultation) bool, run bookFunc) {
	var req BookingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	rec, ok := h.load(c, allowed)
	if !ok {
		return
	}

	actor, _ := actorFromContext(c)
	booking := consultation.Booking{
		DoctorID:   req.DoctorID,
		DoctorName: req.DoctorName,
		Date:       req.Date,
		TimeSlot:   req.TimeSlot,
	}
	if actor.Role == models.RoleDoctor {
		booking.DoctorID = actor.ID
		booking.DoctorName = middleware.GetUserNameFromContext(c)
	} else if booking.DoctorID == "" || booking.DoctorName == "" {
		utils.BadRequest(c, "doctorId and doctorName are required")
		return
	}

	updated, err := run(c.Request.Context(), rec.ID, booking)
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	utils.Success(c, "Consultation "+verb+" successfully", updated)
}

// CompleteRequest closes a consultation with the doctor's prescription.
type CompleteRequest struct {
	Prescription models.Prescription `json:"prescription"`
	Notes        string              `json:"notes"`
}

// Complete records the prescription on the doctor's own scheduled consultation.
func (h *ConsultationHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	rec, ok := h.load(c, func(actor consultation.Actor, rec *models.Consultation) bool {
		return actor.Role == models.RoleDoctor && rec.DoctorID == actor.ID
	})
	if !ok {
		return
	}

	updated, err := h.Engine.Complete(c.Request.Context(), rec.ID, req.Prescription, req.Notes)
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	utils.Success(c, "Consultation completed successfully", updated)
}

// CancelRequest carries an optional reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel ends a consultation. Patients cancel their own, doctors the ones
// assigned to them, admins any.
func (h *ConsultationHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request payload: "+err.Error())
			return
		}
	}
	rec, ok := h.load(c, canCancel)
	if !ok {
		return
	}

	updated, err := h.Engine.Cancel(c.Request.Context(), rec.ID, req.Reason)
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	utils.Success(c, "Consultation cancelled successfully", updated)
}

// RoomResponse is the opaque pair handed to the video/chat client.
type RoomResponse struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// JoinRoom issues room credentials to a participant inside the join window.
func (h *ConsultationHandler) JoinRoom(c *gin.Context) {
	rec, ok := h.load(c, isParticipant)
	if !ok {
		return
	}
	if rec.Status != models.ConsultationScheduled {
		utils.Conflict(c, "Only scheduled consultations have a room")
		return
	}

	start, err := consultation.ToInstant(rec.Date, rec.TimeSlot, h.Engine.Location())
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	now := h.Engine.Now()
	if !h.Engine.IsSoon(*rec) {
		utils.Forbidden(c, "The room is not open. Consultation starts "+consultation.HumanizeCountdown(now, start))
		return
	}

	actor, _ := actorFromContext(c)
	expires := start.Add(h.Engine.Window().After)
	sessionID := "consultation-" + rec.ID
	token, err := utils.GenerateRoomToken(rec.ID, sessionID, actor.ID, actor.Role, h.RoomSecret, expires.Sub(now))
	if err != nil {
		h.Logger.Error("sign room token", "consultation_id", rec.ID, "error", err)
		utils.InternalServerError(c, "Failed to issue room token")
		return
	}

	h.Logger.Info("room token issued", "consultation_id", rec.ID, "user_id", actor.ID)
	c.JSON(http.StatusOK, utils.ResponseData{
		Status:  http.StatusOK,
		Message: "Room credentials issued",
		Data:    RoomResponse{SessionID: sessionID, Token: token, ExpiresAt: expires},
	})
}

// load fetches :id and applies an access rule. It writes the error response
// itself and reports whether the handler may continue.
func (h *ConsultationHandler) load(c *gin.Context, allowed func(consultation.Actor, *models.Consultation) bool) (*models.Consultation, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}
	rec, found := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if !found {
		utils.NotFound(c, "Consultation not found")
		return nil, false
	}
	if !allowed(actor, rec) {
		utils.Forbidden(c, "You are not allowed to access this consultation")
		return nil, false
	}
	return rec, true
}

// canView lets patients see their own records, doctors their assigned ones and
// the open queue, and admins everything.
func canView(actor consultation.Actor, rec *models.Consultation) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		return rec.DoctorID == actor.ID || rec.Status == models.ConsultationRequested
	case models.RolePatient:
		return rec.PatientID == actor.ID
	}
	return false
}

// canCancel is narrower than canView: the open queue is visible to every
// doctor but only the patient or an admin may withdraw an unassigned request.
func canCancel(actor consultation.Actor, rec *models.Consultation) bool {
	return actor.Role == models.RoleAdmin || isParticipant(actor, rec)
}

func isParticipant(actor consultation.Actor, rec *models.Consultation) bool {
	return (actor.Role == models.RolePatient && rec.PatientID == actor.ID) ||
		(actor.Role == models.RoleDoctor && rec.DoctorID == actor.ID)
}

func validStatus(s models.ConsultationStatus) bool {
	switch s {
	case models.ConsultationRequested, models.ConsultationScheduled, models.ConsultationCompleted, models.ConsultationCancelled:
		return true
	}
	return false
}
