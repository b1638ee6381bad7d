package consultation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"telemed-server/internal/models"
)

// Store persists the full consultation set. Load is called at startup and
// Save after every mutation.
type Store interface {
	Load(ctx context.Context) ([]models.Consultation, error)
	Save(ctx context.Context, all []models.Consultation) error
}

// RecordStore is a Store shared by several server instances. Writes touch a
// single record: Replace succeeds only while the stored Version still equals
// version and fails with ErrConflict otherwise. Find wraps ErrNotFound for
// unknown ids.
type RecordStore interface {
	Store
	Find(ctx context.Context, id string) (*models.Consultation, error)
	Insert(ctx context.Context, rec models.Consultation) error
	Replace(ctx context.Context, rec models.Consultation, version int64) error
}

// Mutation edits a record in place. Returning an error aborts the update.
type Mutation func(c *models.Consultation) error

// Repository is the consultation record set.
type Repository interface {
	Create(ctx context.Context, draft models.Consultation) (string, error)
	Get(ctx context.Context, id string) (*models.Consultation, bool)
	Update(ctx context.Context, id string, mutate Mutation) (*models.Consultation, error)
	ListByPatient(ctx context.Context, patientID string) []models.Consultation
	ListByDoctor(ctx context.Context, doctorID string) []models.Consultation
	ListByStatus(ctx context.Context, status models.ConsultationStatus) []models.Consultation
	All(ctx context.Context) []models.Consultation
	Sync(ctx context.Context) error
}

// MemoryRepository keeps records in insertion order and writes through to its
// Store on every change. With a plain Store the whole set is saved and the
// in-memory copy is authoritative. With a RecordStore only the changed record
// is written, Update works on the committed row, and Sync pulls in writes
// made by other instances.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []models.Consultation
	index   map[string]int
	store   Store
	shared  RecordStore
	now     func() time.Time
}

// RepositoryOption configures a MemoryRepository.
type RepositoryOption func(*MemoryRepository)

// WithRepositoryClock overrides time.Now for createdAt/updatedAt stamps.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *MemoryRepository) { r.now = now }
}

// NewMemoryRepository loads the existing set from store. A nil store keeps
// everything in memory only.
func NewMemoryRepository(ctx context.Context, store Store, opts ...RepositoryOption) (*MemoryRepository, error) {
	r := &MemoryRepository{
		index: make(map[string]int),
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if rs, ok := store.(RecordStore); ok {
		r.shared = rs
	}
	if store != nil {
		if err := r.load(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Sync replaces the in-memory set with the shared store's committed records.
// It is a no-op unless the store is a RecordStore.
func (r *MemoryRepository) Sync(ctx context.Context) error {
	if r.shared == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// SyncEvery calls Sync on every tick until ctx is done. Failures go to onErr
// and the previous snapshot stays in place.
func (r *MemoryRepository) SyncEvery(ctx context.Context, interval time.Duration, onErr func(error)) {
	if r.shared == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// load must be called with mu held or before r is shared.
func (r *MemoryRepository) load(ctx context.Context) error {
	loaded, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load consultations: %w", err)
	}
	records := make([]models.Consultation, 0, len(loaded))
	index := make(map[string]int, len(loaded))
	for _, rec := range loaded {
		if _, dup := index[rec.ID]; dup {
			return fmt.Errorf("load consultations: duplicate id %s", rec.ID)
		}
		index[rec.ID] = len(records)
		records = append(records, rec.Clone())
	}
	r.records = records
	r.index = index
	return nil
}

// Create stores draft as a new requested record and returns its id.
func (r *MemoryRepository) Create(ctx context.Context, draft models.Consultation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := draft.Clone()
	rec.ID = uuid.New().String()
	rec.Status = models.ConsultationRequested
	now := r.now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if r.shared != nil {
		if err := r.shared.Insert(ctx, rec.Clone()); err != nil {
			return "", fmt.Errorf("save consultation %s: %w", rec.ID, err)
		}
		r.index[rec.ID] = len(r.records)
		r.records = append(r.records, rec)
		return rec.ID, nil
	}

	r.index[rec.ID] = len(r.records)
	r.records = append(r.records, rec)

	if err := r.persist(ctx); err != nil {
		r.records = r.records[:len(r.records)-1]
		delete(r.index, rec.ID)
		return "", err
	}
	return rec.ID, nil
}

// Get returns a copy of the record, or false when the id is unknown. A
// shared store is consulted for ids created by other instances since the
// last Sync.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Consultation, bool) {
	r.mu.RLock()
	i, ok := r.index[id]
	if ok {
		rec := r.records[i].Clone()
		r.mu.RUnlock()
		return &rec, true
	}
	r.mu.RUnlock()

	if r.shared == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.refresh(ctx, id)
	if err != nil {
		return nil, false
	}
	out := rec.Clone()
	return &out, true
}

// Update applies mutate to the record, stamps updatedAt and persists.
// The record is left untouched if mutate or the save fails.
func (r *MemoryRepository) Update(ctx context.Context, id string, mutate Mutation) (*models.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shared != nil {
		return r.updateShared(ctx, id, mutate)
	}

	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: consultation %s", ErrNotFound, id)
	}

	before := r.records[i]
	working := before.Clone()
	if err := mutate(&working); err != nil {
		return nil, err
	}
	// id, owner and creation stamp are immutable
	working.ID = before.ID
	working.PatientID = before.PatientID
	working.PatientName = before.PatientName
	working.CreatedAt = before.CreatedAt
	working.UpdatedAt = r.now().UTC()
	working.Version = before.Version + 1

	r.records[i] = working
	if err := r.persist(ctx); err != nil {
		r.records[i] = before
		return nil, err
	}
	out := working.Clone()
	return &out, nil
}

// updateShared must be called with mu held. The mutation sees the committed
// row, and the write is conditional on its version.
func (r *MemoryRepository) updateShared(ctx context.Context, id string, mutate Mutation) (*models.Consultation, error) {
	before, err := r.refresh(ctx, id)
	if err != nil {
		return nil, err
	}
	working := before.Clone()
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.ID = before.ID
	working.PatientID = before.PatientID
	working.PatientName = before.PatientName
	working.CreatedAt = before.CreatedAt
	working.UpdatedAt = r.now().UTC()
	working.Version = before.Version + 1

	if err := r.shared.Replace(ctx, working.Clone(), before.Version); err != nil {
		return nil, fmt.Errorf("save consultation %s: %w", id, err)
	}
	r.records[r.index[id]] = working
	out := working.Clone()
	return &out, nil
}

// refresh reads one record from the shared store into the arena. mu must be
// held for writing.
func (r *MemoryRepository) refresh(ctx context.Context, id string) (models.Consultation, error) {
	rec, err := r.shared.Find(ctx, id)
	if err != nil {
		return models.Consultation{}, err
	}
	fresh := rec.Clone()
	if i, ok := r.index[id]; ok {
		r.records[i] = fresh
	} else {
		r.index[id] = len(r.records)
		r.records = append(r.records, fresh)
	}
	return fresh, nil
}

// ListByPatient returns the patient's records in insertion order.
func (r *MemoryRepository) ListByPatient(_ context.Context, patientID string) []models.Consultation {
	return r.filter(func(c *models.Consultation) bool { return c.PatientID == patientID })
}

// ListByDoctor returns the records assigned to the doctor in insertion order.
func (r *MemoryRepository) ListByDoctor(_ context.Context, doctorID string) []models.Consultation {
	return r.filter(func(c *models.Consultation) bool { return c.DoctorID == doctorID })
}

// ListByStatus returns the records in the given status in insertion order.
func (r *MemoryRepository) ListByStatus(_ context.Context, status models.ConsultationStatus) []models.Consultation {
	return r.filter(func(c *models.Consultation) bool { return c.Status == status })
}

// All returns every record in insertion order.
func (r *MemoryRepository) All(_ context.Context) []models.Consultation {
	return r.filter(func(*models.Consultation) bool { return true })
}

func (r *MemoryRepository) filter(keep func(*models.Consultation) bool) []models.Consultation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Consultation, 0)
	for i := range r.records {
		if keep(&r.records[i]) {
			out = append(out, r.records[i].Clone())
		}
	}
	return out
}

// persist must be called with mu held.
func (r *MemoryRepository) persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snapshot := make([]models.Consultation, len(r.records))
	for i := range r.records {
		snapshot[i] = r.records[i].Clone()
	}
	if err := r.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save consultations: %w", err)
	}
	return nil
}
