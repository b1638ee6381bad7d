package consultation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"telemed-server/internal/models"
)

// Catalog is the list of health issues patients can request consultations for.
type Catalog struct {
	mu     sync.RWMutex
	issues []models.HealthIssue
}

// NewCatalog returns a catalog holding a copy of issues in the given order.
func NewCatalog(issues []models.HealthIssue) *Catalog {
	c := &Catalog{issues: make([]models.HealthIssue, 0, len(issues))}
	for _, issue := range issues {
		if issue.Status == "" {
			issue.Status = models.IssueActive
		}
		c.issues = append(c.issues, issue)
	}
	return c
}

// NewSeededCatalog returns a catalog with the built-in issue list.
func NewSeededCatalog() *Catalog {
	return NewCatalog(SeedIssues())
}

// SeedIssues returns the issues available on a fresh install.
func SeedIssues() []models.HealthIssue {
	return []models.HealthIssue{
		{ID: "issue1", Name: "Anxiety & Stress", Category: models.CategoryNHM, Description: "Mental health concerns related to anxiety, stress, or depression", Icon: "mental_health"},
		{ID: "issue2", Name: "Chronic Headache", Category: models.CategoryNHM, Description: "Recurring headaches including migraines and tension headaches", Icon: "headache"},
		{ID: "issue3", Name: "Digestive Issues", Category: models.CategoryAyush, Description: "Problems related to digestion, acidity, or gastric discomfort", Icon: "stomach"},
		{ID: "issue4", Name: "Joint Pain", Category: models.CategoryAyush, Description: "Arthritis, joint inflammation, or chronic pain in joints", Icon: "joint"},
		{ID: "issue5", Name: "Sleep Disorders", Category: models.CategoryNHM, Description: "Insomnia, sleep apnea, or irregular sleep patterns", Icon: "sleep"},
		{ID: "issue6", Name: "Skin Conditions", Category: models.CategoryAyush, Description: "Eczema, psoriasis, acne, or other skin-related concerns", Icon: "skin"},
	}
}

// IssueFilter narrows List. Zero values match everything.
type IssueFilter struct {
	Category   models.IssueCategory
	ActiveOnly bool
}

// List returns the issues matching f in catalog order.
func (c *Catalog) List(f IssueFilter) []models.HealthIssue {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.HealthIssue, 0, len(c.issues))
	for _, issue := range c.issues {
		if f.Category != "" && !strings.EqualFold(string(issue.Category), string(f.Category)) {
			continue
		}
		if f.ActiveOnly && issue.Status != models.IssueActive {
			continue
		}
		out = append(out, issue)
	}
	return out
}

// Get looks up an issue by id.
func (c *Catalog) Get(id string) (models.HealthIssue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, issue := range c.issues {
		if issue.ID == id {
			return issue, true
		}
	}
	return models.HealthIssue{}, false
}

// Add appends a new active issue and returns it with its generated id.
func (c *Catalog) Add(name string, category models.IssueCategory, description, icon string) (models.HealthIssue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.HealthIssue{}, fmt.Errorf("%w: issue name is required", ErrInvalidRequest)
	}
	if category != models.CategoryNHM && category != models.CategoryAyush {
		return models.HealthIssue{}, fmt.Errorf("%w: unknown issue category %q", ErrInvalidRequest, category)
	}

	issue := models.HealthIssue{
		ID:          uuid.New().String(),
		Name:        name,
		Category:    category,
		Description: description,
		Icon:        icon,
		Status:      models.IssueActive,
	}

	c.mu.Lock()
	c.issues = append(c.issues, issue)
	c.mu.Unlock()
	return issue, nil
}

// ToggleStatus flips an issue between active and inactive.
func (c *Catalog) ToggleStatus(id string) (models.HealthIssue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.issues {
		if c.issues[i].ID != id {
			continue
		}
		if c.issues[i].Status == models.IssueActive {
			c.issues[i].Status = models.IssueInactive
		} else {
			c.issues[i].Status = models.IssueActive
		}
		return c.issues[i], nil
	}
	return models.HealthIssue{}, fmt.Errorf("%w: health issue %s", ErrNotFound, id)
}
