package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"telemed-server/internal/models"
	"telemed-server/pkg/logging"
)

// memStore is a Store that keeps the last saved snapshot.
type memStore struct {
	mu      sync.Mutex
	saved   []models.Consultation
	saves   int
	failing bool
}

func (s *memStore) Load(context.Context) ([]models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Consultation, len(s.saved))
	for i := range s.saved {
		out[i] = s.saved[i].Clone()
	}
	return out, nil
}

func (s *memStore) Save(_ context.Context, all []models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("disk full")
	}
	s.saved = all
	s.saves++
	return nil
}

type staticTemplates map[string]models.WeeklyTemplate

func (t staticTemplates) WeeklyTemplate(_ context.Context, doctorID string) (models.WeeklyTemplate, error) {
	tpl, ok := t[doctorID]
	if !ok {
		return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, doctorID)
	}
	return tpl, nil
}

var weekdaySlots = []string{"10:00 AM", "11:00 AM", "2:00 PM", "3:00 PM"}

func testTemplates() staticTemplates {
	return staticTemplates{
		"doc1": {
			{Day: "Monday", Slots: weekdaySlots},
			{Day: "Wednesday", Slots: weekdaySlots},
			{Day: "Friday", Slots: weekdaySlots},
		},
		"doc2": {
			{Day: "Tuesday", Slots: []string{"9:00 AM", "10:00 AM"}},
		},
	}
}

// fakeClock advances one second per call so createdAt values are ordered.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	engine *Engine
	repo   *MemoryRepository
	store  *memStore
}

// mondayMorning is 09:00 UTC on Monday 2025-04-14.
var mondayMorning = time.Date(2025, 4, 14, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := &memStore{}
	clock := newFakeClock(mondayMorning.Add(-48 * time.Hour))
	repo, err := NewMemoryRepository(context.Background(), store, WithRepositoryClock(clock.Now))
	require.NoError(t, err)

	base := []Option{
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return mondayMorning }),
	}
	engine := NewEngine(repo, NewSeededCatalog(), testTemplates(), append(base, opts...)...)
	return &fixture{engine: engine, repo: repo, store: store}
}

func (f *fixture) submit(t *testing.T, patientID string) string {
	t.Helper()
	id, err := f.engine.Submit(context.Background(), Draft{
		PatientID:   patientID,
		PatientName: "Patient " + patientID,
		IssueID:     "issue1",
		Symptoms:    []string{"headache"},
		Date:        "2025-04-15",
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) assign(t *testing.T, id, date, slot string) *models.Consultation {
	t.Helper()
	rec, err := f.engine.Assign(context.Background(), id, Booking{
		DoctorID: "doc1", DoctorName: "Dr. Lakshmi Nair", Date: date, TimeSlot: slot,
	})
	require.NoError(t, err)
	return rec
}

// sharedStore is a RecordStore several repositories can sit on, standing in
// for the consultations table.
type sharedStore struct {
	mu   sync.Mutex
	rows []models.Consultation
	// afterFind runs once a Find has read a row, before the caller writes.
	afterFind func(id string)
}

func (s *sharedStore) Load(context.Context) ([]models.Consultation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Consultation, len(s.rows))
	for i := range s.rows {
		out[i] = s.rows[i].Clone()
	}
	return out, nil
}

func (s *sharedStore) Save(_ context.Context, all []models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = all
	return nil
}

func (s *sharedStore) Find(_ context.Context, id string) (*models.Consultation, error) {
	s.mu.Lock()
	var found *models.Consultation
	for i := range s.rows {
		if s.rows[i].ID == id {
			rec := s.rows[i].Clone()
			found = &rec
		}
	}
	hook := s.afterFind
	s.mu.Unlock()

	if found == nil {
		return nil, fmt.Errorf("%w: consultation %s", ErrNotFound, id)
	}
	if hook != nil {
		hook(id)
	}
	return found, nil
}

func (s *sharedStore) Insert(_ context.Context, rec models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == rec.ID {
			return fmt.Errorf("duplicate id %s", rec.ID)
		}
	}
	s.rows = append(s.rows, rec.Clone())
	return nil
}

func (s *sharedStore) Replace(_ context.Context, rec models.Consultation, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID != rec.ID {
			continue
		}
		if s.rows[i].Version != version {
			return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
		}
		s.rows[i] = rec.Clone()
		return nil
	}
	return fmt.Errorf("%w: consultation %s", ErrNotFound, rec.ID)
}

// newInstance wires one server instance on top of a shared store.
func newInstance(t *testing.T, store *sharedStore, locker SlotLocker) (*Engine, *MemoryRepository) {
	t.Helper()
	clock := newFakeClock(mondayMorning.Add(-48 * time.Hour))
	repo, err := NewMemoryRepository(context.Background(), store, WithRepositoryClock(clock.Now))
	require.NoError(t, err)
	engine := NewEngine(repo, NewSeededCatalog(), testTemplates(),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return mondayMorning }),
		WithLocker(locker),
	)
	return engine, repo
}
