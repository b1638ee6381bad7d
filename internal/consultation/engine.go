package consultation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"telemed-server/internal/models"
	"telemed-server/pkg/logging"
)

var tracer = otel.Tracer("telemed-server/consultation")

// TemplateSource provides a doctor's weekly availability template.
// Unknown doctors yield an error wrapping ErrNotFound.
type TemplateSource interface {
	WeeklyTemplate(ctx context.Context, doctorID string) (models.WeeklyTemplate, error)
}

// Draft is what a patient submits when requesting a consultation.
type Draft struct {
	PatientID   string   `validate:"required"`
	PatientName string   `validate:"required"`
	IssueID     string   `validate:"required"`
	Symptoms    []string `validate:"min=1,dive,required"`
	Date        string
	Notes       string
}

// Booking places a consultation into a doctor's slot.
type Booking struct {
	DoctorID   string `validate:"required"`
	DoctorName string `validate:"required"`
	Date       string `validate:"required"`
	TimeSlot   string `validate:"required"`
}

// Engine enforces the consultation state machine on top of a Repository.
type Engine struct {
	repo      Repository
	catalog   *Catalog
	templates TemplateSource
	locker    SlotLocker
	validate  *validator.Validate
	loc       *time.Location
	window    JoinWindow
	now       func() time.Time
	logger    *logging.Logger
	metrics   *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker replaces the in-process slot locker.
func WithLocker(l SlotLocker) Option { return func(e *Engine) { e.locker = l } }

// WithLocation sets the time zone slot labels are interpreted in.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

// WithJoinWindow overrides DefaultJoinWindow.
func WithJoinWindow(w JoinWindow) Option { return func(e *Engine) { e.window = w } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// NewEngine wires an engine. Without options it uses a LocalLocker, UTC,
// DefaultJoinWindow and time.Now.
func NewEngine(repo Repository, catalog *Catalog, templates TemplateSource, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		catalog:   catalog,
		templates: templates,
		locker:    NewLocalLocker(),
		validate:  validator.New(),
		loc:       time.UTC,
		window:    DefaultJoinWindow,
		now:       time.Now,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location is the time zone slot labels are read in.
func (e *Engine) Location() *time.Location { return e.loc }

// Window is the configured join window.
func (e *Engine) Window() JoinWindow { return e.window }

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.now() }

// Submit validates a patient's draft and stores it as a requested consultation.
func (e *Engine) Submit(ctx context.Context, d Draft) (id string, err error) {
	ctx, span := tracer.Start(ctx, "consultation.submit")
	defer func() { e.finish(span, "submit", id, err) }()

	d.Symptoms = cleanSymptoms(d.Symptoms)
	if err := e.validate.Struct(d); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidRequest, validationMessage(err))
	}

	issue, ok := e.catalog.Get(d.IssueID)
	if !ok {
		return "", fmt.Errorf("%w: unknown health issue %q", ErrInvalidRequest, d.IssueID)
	}
	if issue.Status != models.IssueActive {
		return "", fmt.Errorf("%w: health issue %q is not accepting requests", ErrInvalidRequest, issue.Name)
	}
	if d.Date != "" {
		if _, err := ParseDate(d.Date, e.loc); err != nil {
			return "", err
		}
	}

	return e.repo.Create(ctx, models.Consultation{
		PatientID:     d.PatientID,
		PatientName:   d.PatientName,
		IssueID:       issue.ID,
		IssueName:     issue.Name,
		IssueCategory: issue.Category,
		Symptoms:      d.Symptoms,
		Date:          strings.TrimSpace(d.Date),
		Notes:         d.Notes,
	})
}

// Assign books a requested consultation into a free slot of the doctor.
func (e *Engine) Assign(ctx context.Context, id string, b Booking) (*models.Consultation, error) {
	return e.book(ctx, "assign", id, b, models.ConsultationRequested)
}

// Reschedule moves a scheduled consultation to another free slot. It is the
// only way to change doctor, date or slot once assigned.
func (e *Engine) Reschedule(ctx context.Context, id string, b Booking) (*models.Consultation, error) {
	return e.book(ctx, "reschedule", id, b, models.ConsultationScheduled)
}

func (e *Engine) book(ctx context.Context, transition, id string, b Booking, from models.ConsultationStatus) (rec *models.Consultation, err error) {
	ctx, span := tracer.Start(ctx, "consultation."+transition, trace.WithAttributes(
		attribute.String("consultation.id", id),
		attribute.String("doctor.id", b.DoctorID),
		attribute.String("slot.date", b.Date),
		attribute.String("slot.label", b.TimeSlot),
	))
	defer func() { e.finish(span, transition, id, err) }()

	if err := e.validate.Struct(b); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, validationMessage(err))
	}
	day, err := ParseDate(b.Date, e.loc)
	if err != nil {
		return nil, err
	}
	if _, err := ToInstant(b.Date, b.TimeSlot, e.loc); err != nil {
		return nil, err
	}

	dateKey := day.Format(DateLayout)
	unlock, err := e.locker.Lock(ctx, SlotKey(b.DoctorID, dateKey, b.TimeSlot))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// everything below reads under the slot lock, so a concurrent booking of
	// the same slot, on this or another instance, has either committed or not
	// started
	if err := e.repo.Sync(ctx); err != nil {
		return nil, fmt.Errorf("refresh consultations: %w", err)
	}

	current, ok := e.repo.Get(ctx, id)
	if !ok {
		return nil, fmt.Errorf("%w: consultation %s", ErrNotFound, id)
	}
	if current.Status != from {
		return nil, &TransitionError{ID: id, From: current.Status, Transition: transition}
	}

	template, err := e.templates.WeeklyTemplate(ctx, b.DoctorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: doctor %s has no availability", ErrSlotUnavailable, b.DoctorID)
		}
		return nil, fmt.Errorf("load availability template: %w", err)
	}

	others := withoutID(e.repo.ListByDoctor(ctx, b.DoctorID), id)
	free := AvailableSlots(b.DoctorID, template, day, others)
	slot, ok := matchSlot(free, b.TimeSlot)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s is not free for doctor %s", ErrSlotUnavailable, b.TimeSlot, dateKey, b.DoctorID)
	}

	return e.repo.Update(ctx, id, func(c *models.Consultation) error {
		if c.Status != from {
			return &TransitionError{ID: id, From: c.Status, Transition: transition}
		}
		c.DoctorID = b.DoctorID
		c.DoctorName = b.DoctorName
		c.Date = dateKey
		c.TimeSlot = slot
		c.Status = models.ConsultationScheduled
		return nil
	})
}

// Complete closes a scheduled consultation with the doctor's prescription.
// Notes, when given, replace the record's notes.
func (e *Engine) Complete(ctx context.Context, id string, p models.Prescription, notes string) (rec *models.Consultation, err error) {
	ctx, span := tracer.Start(ctx, "consultation.complete", trace.WithAttributes(attribute.String("consultation.id", id)))
	defer func() { e.finish(span, "complete", id, err) }()

	p.Advice = strings.TrimSpace(p.Advice)
	if err := e.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, validationMessage(err))
	}
	if p.Medicines == nil {
		p.Medicines = []models.Medicine{}
	}

	return e.repo.Update(ctx, id, func(c *models.Consultation) error {
		if c.Status != models.ConsultationScheduled {
			return &TransitionError{ID: id, From: c.Status, Transition: "complete"}
		}
		c.Prescription = &p
		if notes = strings.TrimSpace(notes); notes != "" {
			c.Notes = notes
		}
		c.Status = models.ConsultationCompleted
		return nil
	})
}

// Cancel ends a requested or scheduled consultation. A held slot becomes
// available again.
func (e *Engine) Cancel(ctx context.Context, id, reason string) (rec *models.Consultation, err error) {
	ctx, span := tracer.Start(ctx, "consultation.cancel", trace.WithAttributes(attribute.String("consultation.id", id)))
	defer func() { e.finish(span, "cancel", id, err) }()

	return e.repo.Update(ctx, id, func(c *models.Consultation) error {
		if c.Status.Terminal() {
			return &TransitionError{ID: id, From: c.Status, Transition: "cancel"}
		}
		c.Status = models.ConsultationCancelled
		c.CancelReason = strings.TrimSpace(reason)
		return nil
	})
}

// AvailableSlots returns the doctor's free slots on date.
func (e *Engine) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	day, err := ParseDate(date, e.loc)
	if err != nil {
		return nil, err
	}
	template, err := e.templates.WeeklyTemplate(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots := AvailableSlots(doctorID, template, day, e.repo.ListByDoctor(ctx, doctorID))
	e.metrics.ObserveAvailability(len(slots))
	return slots, nil
}

// NextUpcoming returns the actor's next scheduled consultation, if any.
func (e *Engine) NextUpcoming(ctx context.Context, actor Actor) (*models.Consultation, bool) {
	return NextUpcoming(e.recordsFor(ctx, actor), actor, e.now(), e.loc, e.window)
}

// PendingQueue returns requested consultations, oldest first.
func (e *Engine) PendingQueue(ctx context.Context) []models.Consultation {
	return PendingQueue(e.repo.ListByStatus(ctx, models.ConsultationRequested))
}

// UniquePatients returns the doctor's patient panel.
func (e *Engine) UniquePatients(ctx context.Context, doctorID string) []PatientSummary {
	return UniquePatients(e.repo.ListByDoctor(ctx, doctorID), doctorID)
}

// Schedule returns the doctor's scheduled consultations on date in time order.
func (e *Engine) Schedule(ctx context.Context, doctorID, date string) ([]models.Consultation, error) {
	day, err := ParseDate(date, e.loc)
	if err != nil {
		return nil, err
	}
	return ScheduledOn(e.repo.ListByDoctor(ctx, doctorID), doctorID, day.Format(DateLayout), e.loc), nil
}

// IsSoon reports whether the consultation's room may be joined right now.
func (e *Engine) IsSoon(c models.Consultation) bool {
	return IsSoon(c, e.now(), e.loc, e.window)
}

// Stats counts the actor's consultations by status.
func (e *Engine) Stats(ctx context.Context, actor Actor) StatusCounts {
	return Summarize(e.recordsFor(ctx, actor))
}

func (e *Engine) recordsFor(ctx context.Context, actor Actor) []models.Consultation {
	switch actor.Role {
	case models.RoleDoctor:
		return e.repo.ListByDoctor(ctx, actor.ID)
	case models.RolePatient:
		return e.repo.ListByPatient(ctx, actor.ID)
	default:
		return e.repo.All(ctx)
	}
}

func (e *Engine) finish(span trace.Span, transition, id string, err error) {
	defer span.End()
	e.metrics.ObserveTransition(transition, err)

	if err == nil {
		e.logger.Info("consultation transition", "transition", transition, "consultation_id", id)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var te *TransitionError
	if errors.As(err, &te) {
		// stale client state: worth an alert
		e.logger.Warn("rejected consultation transition",
			"transition", transition, "consultation_id", id, "from", string(te.From), "error", err)
		return
	}
	e.logger.Info("consultation command failed", "transition", transition, "consultation_id", id, "error", err)
}

func cleanSymptoms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func withoutID(records []models.Consultation, id string) []models.Consultation {
	out := records[:0]
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func matchSlot(slots []string, slot string) (string, bool) {
	key := normalizeSlot(slot)
	for _, s := range slots {
		if normalizeSlot(s) == key {
			return s, true
		}
	}
	return "", false
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
