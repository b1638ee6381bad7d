package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemed-server/internal/consultation"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
	"telemed-server/pkg/logging"
)

const roomSecret = "room-secret"

func consultationRouter(t *testing.T) (*gin.Engine, *consultation.Engine) {
	t.Helper()
	engine, repo, _ := newTestEngine(t)
	h := NewConsultationHandler(engine, repo, roomSecret, logging.Discard())

	r := newRouter()
	g := r.Group("/consultations")
	g.POST("", h.Submit)
	g.GET("", h.List)
	g.GET("/pending", h.Pending)
	g.GET("/next", h.Next)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/assign", h.Assign)
	g.PATCH("/:id/reschedule", h.Reschedule)
	g.PATCH("/:id/complete", h.Complete)
	g.PATCH("/:id/cancel", h.Cancel)
	g.POST("/:id/room", h.JoinRoom)
	return r, engine
}

func submitAs(t *testing.T, r *gin.Engine, as user) models.Consultation {
	t.Helper()
	w := do(t, r, http.MethodPost, "/consultations", &as, SubmitConsultationRequest{
		IssueID:  "issue4",
		Symptoms: []string{"knee pain"},
		Date:     "2025-04-14",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec models.Consultation
	decode(t, w, &rec)
	return rec
}

func assignAs(t *testing.T, r *gin.Engine, as user, id, date, slot string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, r, http.MethodPatch, "/consultations/"+id+"/assign", &as, BookingRequest{Date: date, TimeSlot: slot})
}

func TestConsultationLifecycleOverHTTP(t *testing.T) {
	r, _ := consultationRouter(t)

	rec := submitAs(t, r, patient1)
	assert.Equal(t, models.ConsultationRequested, rec.Status)
	assert.Equal(t, "Anand Sharma", rec.PatientName)
	assert.Equal(t, "Joint Pain", rec.IssueName)

	var queue []models.Consultation
	decode(t, do(t, r, http.MethodGet, "/consultations/pending", &doctor1, nil), &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, rec.ID, queue[0].ID)

	w := assignAs(t, r, doctor1, rec.ID, "2025-04-14", "10:00 AM")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var scheduled models.Consultation
	decode(t, w, &scheduled)
	assert.Equal(t, "doc1", scheduled.DoctorID)
	assert.Equal(t, "Dr. Lakshmi Nair", scheduled.DoctorName)

	var next NextConsultationResponse
	decode(t, do(t, r, http.MethodGet, "/consultations/next", &patient1, nil), &next)
	require.NotNil(t, next.Consultation)
	assert.Equal(t, rec.ID, next.Consultation.ID)
	assert.Equal(t, 10, next.MinutesUntil)
	assert.Equal(t, "10 minutes away", next.Countdown)
	assert.True(t, next.Joinable)

	w = do(t, r, http.MethodPost, "/consultations/"+rec.ID+"/room", &patient1, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var room RoomResponse
	decode(t, w, &room)
	assert.Equal(t, "consultation-"+rec.ID, room.SessionID)
	claims, err := utils.ValidateRoomToken(room.Token, roomSecret)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.UserID)
	assert.Equal(t, rec.ID, claims.ConsultationID)

	complete := CompleteRequest{
		Prescription: models.Prescription{
			Medicines: []models.Medicine{{Name: "Turmeric capsules", Dosage: "1 daily"}},
			Advice:    "Gentle exercise",
		},
		Notes: "mild inflammation",
	}
	w = do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/complete", &doctor1, complete)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/complete", &doctor1, complete)
	assert.Equal(t, http.StatusConflict, w.Code)

	var stats consultation.StatusCounts
	decode(t, do(t, r, http.MethodGet, "/consultations/stats", &patient1, nil), &stats)
	assert.Equal(t, consultation.StatusCounts{Total: 1, Completed: 1}, stats)
}

func TestAssignSameSlotConflicts(t *testing.T) {
	r, _ := consultationRouter(t)
	first := submitAs(t, r, patient1)
	second := submitAs(t, r, patient2)

	require.Equal(t, http.StatusOK, assignAs(t, r, doctor1, first.ID, "2025-04-14", "11:00 AM").Code)

	w := assignAs(t, r, doctor1, second.ID, "2025-04-14", "11:00 AM")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = assignAs(t, r, doctor1, second.ID, "2025-04-14", "9:00 AM")
	assert.Equal(t, http.StatusConflict, w.Code, "slot outside the template")

	w = assignAs(t, r, doctor1, second.ID, "2025-04-14", "noonish")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = assignAs(t, r, doctor1, "missing", "2025-04-14", "2:00 PM")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminAssignNamesTheDoctor(t *testing.T) {
	r, _ := consultationRouter(t)
	rec := submitAs(t, r, patient1)

	w := assignAs(t, r, admin, rec.ID, "2025-04-14", "10:00 AM")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/assign", &admin, BookingRequest{
		DoctorID: "doc2", DoctorName: "Dr. Rahul Verma", Date: "2025-04-14", TimeSlot: "10:00 AM",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Consultation
	decode(t, w, &got)
	assert.Equal(t, "doc2", got.DoctorID)
}

func TestRescheduleOnlyByAssignedDoctor(t *testing.T) {
	r, _ := consultationRouter(t)
	rec := submitAs(t, r, patient1)
	require.Equal(t, http.StatusOK, assignAs(t, r, doctor1, rec.ID, "2025-04-14", "10:00 AM").Code)

	body := BookingRequest{Date: "2025-04-16", TimeSlot: "2:00 PM"}
	w := do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/reschedule", &doctor2, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/reschedule", &doctor1, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Consultation
	decode(t, w, &got)
	assert.Equal(t, "2025-04-16", got.Date)
	assert.Equal(t, "2:00 PM", got.TimeSlot)
}

func TestConsultationVisibility(t *testing.T) {
	r, _ := consultationRouter(t)
	rec := submitAs(t, r, patient1)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/consultations/"+rec.ID, &patient1, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/consultations/"+rec.ID, &patient2, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/consultations/"+rec.ID, &doctor2, nil).Code, "doctors see the open queue")
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/consultations/nope", &admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/consultations/"+rec.ID, nil, nil).Code)

	require.Equal(t, http.StatusOK, assignAs(t, r, doctor1, rec.ID, "2025-04-14", "10:00 AM").Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/consultations/"+rec.ID, &doctor2, nil).Code)
}

func TestListConsultationsByRole(t *testing.T) {
	r, _ := consultationRouter(t)
	a := submitAs(t, r, patient1)
	submitAs(t, r, patient2)
	require.Equal(t, http.StatusOK, assignAs(t, r, doctor1, a.ID, "2025-04-14", "10:00 AM").Code)

	var mine []models.Consultation
	decode(t, do(t, r, http.MethodGet, "/consultations", &patient2, nil), &mine)
	assert.Len(t, mine, 1)

	var all []models.Consultation
	decode(t, do(t, r, http.MethodGet, "/consultations?status=requested", &admin, nil), &all)
	assert.Len(t, all, 1)

	var doctors []models.Consultation
	decode(t, do(t, r, http.MethodGet, "/consultations", &doctor1, nil), &doctors)
	require.Len(t, doctors, 1)
	assert.Equal(t, a.ID, doctors[0].ID)

	w := do(t, r, http.MethodGet, "/consultations?status=lost", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitValidation(t *testing.T) {
	r, _ := consultationRouter(t)

	w := do(t, r, http.MethodPost, "/consultations", &patient1, SubmitConsultationRequest{IssueID: "issue1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/consultations", &patient1, SubmitConsultationRequest{IssueID: "issue42", Symptoms: []string{"fever"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/consultations", &patient1, SubmitConsultationRequest{IssueID: "issue1", Symptoms: []string{"fever"}, Date: "next week"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelWithReason(t *testing.T) {
	r, _ := consultationRouter(t)
	rec := submitAs(t, r, patient1)

	w := do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/cancel", &patient2, CancelRequest{Reason: "not mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/cancel", &patient1, CancelRequest{Reason: "feeling better"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Consultation
	decode(t, w, &got)
	assert.Equal(t, models.ConsultationCancelled, got.Status)
	assert.Equal(t, "feeling better", got.CancelReason)

	w = do(t, r, http.MethodPatch, "/consultations/"+rec.ID+"/cancel", &patient1, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCancelPermissions(t *testing.T) {
	r, _ := consultationRouter(t)

	queued := submitAs(t, r, patient1)
	w := do(t, r, http.MethodPatch, "/consultations/"+queued.ID+"/cancel", &doctor2, CancelRequest{Reason: "too busy"})
	assert.Equal(t, http.StatusForbidden, w.Code, "seeing the queue does not allow withdrawing a request")

	w = do(t, r, http.MethodGet, "/consultations/"+queued.ID, &doctor2, nil)
	assert.Equal(t, http.StatusOK, w.Code, "the queue stays visible")

	booked := submitAs(t, r, patient2)
	require.Equal(t, http.StatusOK, assignAs(t, r, doctor1, booked.ID, "2025-04-16", "10:00 AM").Code)

	w = do(t, r, http.MethodPatch, "/consultations/"+booked.ID+"/cancel", &doctor2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPatch, "/consultations/"+booked.ID+"/cancel", &doctor1, CancelRequest{Reason: "doctor unavailable"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPatch, "/consultations/"+queued.ID+"/cancel", &admin, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRoomOutsideJoinWindow(t *testing.T) {
	r, _ := consultationRouter(t)
	rec := submitAs(t, r, patient1)

	w := do(t, r, http.MethodPost, "/consultations/"+rec.ID+"/room", &patient1, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "requested consultations have no room")

	require.Equal(t, http.StatusOK, assignAs(t, r, doctor1, rec.ID, "2025-04-16", "10:00 AM").Code)

	w = do(t, r, http.MethodPost, "/consultations/"+rec.ID+"/room", &patient1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	env := decode(t, w, nil)
	assert.Contains(t, env.Error, "2 days away")

	w = do(t, r, http.MethodPost, "/consultations/"+rec.ID+"/room", &admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "admins are not participants")
}

func TestNextWithoutUpcoming(t *testing.T) {
	r, _ := consultationRouter(t)

	w := do(t, r, http.MethodGet, "/consultations/next", &patient1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "No upcoming consultation", env.Message)
}
