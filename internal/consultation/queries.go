package consultation

import (
	"sort"
	"time"

	"telemed-server/internal/models"
)

// Actor identifies whose consultations a query is scoped to.
type Actor struct {
	ID   string
	Role models.Role
}

func (a Actor) owns(c *models.Consultation) bool {
	switch a.Role {
	case models.RoleDoctor:
		return c.DoctorID == a.ID
	case models.RolePatient:
		return c.PatientID == a.ID
	default:
		return true
	}
}

// NextUpcoming picks the actor's scheduled consultation with the earliest
// start that has not yet passed the join window's tolerance. Ties go to the
// record created first. Records with unparsable slots are skipped.
func NextUpcoming(records []models.Consultation, actor Actor, now time.Time, loc *time.Location, window JoinWindow) (*models.Consultation, bool) {
	var (
		best      *models.Consultation
		bestStart time.Time
	)
	for i := range records {
		c := &records[i]
		if c.Status != models.ConsultationScheduled || !actor.owns(c) {
			continue
		}
		start, err := ToInstant(c.Date, c.TimeSlot, loc)
		if err != nil {
			continue
		}
		if start.Before(now.Add(-window.After)) {
			continue
		}
		if best == nil || start.Before(bestStart) || (start.Equal(bestStart) && c.CreatedAt.Before(best.CreatedAt)) {
			best, bestStart = c, start
		}
	}
	if best == nil {
		return nil, false
	}
	out := best.Clone()
	return &out, true
}

// PendingQueue returns requested records, oldest createdAt first.
func PendingQueue(records []models.Consultation) []models.Consultation {
	out := make([]models.Consultation, 0, len(records))
	for _, c := range records {
		if c.Status == models.ConsultationRequested {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// IsSoon reports whether a scheduled consultation's room is open at now.
func IsSoon(c models.Consultation, now time.Time, loc *time.Location, window JoinWindow) bool {
	if c.Status != models.ConsultationScheduled || c.TimeSlot == "" {
		return false
	}
	start, err := ToInstant(c.Date, c.TimeSlot, loc)
	if err != nil {
		return false
	}
	return window.Contains(now, start)
}

// ScheduledOn returns the doctor's scheduled consultations on date ordered by
// start time.
func ScheduledOn(records []models.Consultation, doctorID, date string, loc *time.Location) []models.Consultation {
	type timed struct {
		c     models.Consultation
		start time.Time
	}
	var day []timed
	for _, c := range records {
		if c.DoctorID != doctorID || c.Date != date || c.Status != models.ConsultationScheduled {
			continue
		}
		start, err := ToInstant(c.Date, c.TimeSlot, loc)
		if err != nil {
			continue
		}
		day = append(day, timed{c: c, start: start})
	}
	sort.SliceStable(day, func(i, j int) bool { return day[i].start.Before(day[j].start) })

	out := make([]models.Consultation, len(day))
	for i := range day {
		out[i] = day[i].c
	}
	return out
}

// PatientSummary is one row of a doctor's patient panel.
type PatientSummary struct {
	PatientID         string                    `json:"id"`
	PatientName       string                    `json:"name"`
	ConsultationCount int                       `json:"consultationCount"`
	LastConsultation  string                    `json:"lastConsultation"`
	LatestIssue       string                    `json:"latestIssue"`
	Status            models.ConsultationStatus `json:"status"`

	latestUpdated time.Time
}

// UniquePatients groups the doctor's records by patient in first-seen order.
// The latest consultation, by date and then updatedAt, supplies the issue
// and status of each row.
func UniquePatients(records []models.Consultation, doctorID string) []PatientSummary {
	var out []PatientSummary
	pos := make(map[string]int)

	for _, c := range records {
		if c.DoctorID != doctorID {
			continue
		}
		i, seen := pos[c.PatientID]
		if !seen {
			pos[c.PatientID] = len(out)
			out = append(out, PatientSummary{
				PatientID:         c.PatientID,
				PatientName:       c.PatientName,
				ConsultationCount: 1,
				LastConsultation:  c.Date,
				LatestIssue:       c.IssueName,
				Status:            c.Status,
				latestUpdated:     c.UpdatedAt,
			})
			continue
		}

		p := &out[i]
		p.ConsultationCount++
		// YYYY-MM-DD compares correctly as a string
		if c.Date > p.LastConsultation || (c.Date == p.LastConsultation && c.UpdatedAt.After(p.latestUpdated)) {
			p.LastConsultation = c.Date
			p.LatestIssue = c.IssueName
			p.Status = c.Status
			p.latestUpdated = c.UpdatedAt
		}
	}
	if out == nil {
		out = []PatientSummary{}
	}
	return out
}

// StatusCounts tallies consultations per status.
type StatusCounts struct {
	Total     int `json:"total"`
	Requested int `json:"requested"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Summarize counts records by status.
func Summarize(records []models.Consultation) StatusCounts {
	var s StatusCounts
	for _, c := range records {
		s.Total++
		switch c.Status {
		case models.ConsultationRequested:
			s.Requested++
		case models.ConsultationScheduled:
			s.Scheduled++
		case models.ConsultationCompleted:
			s.Completed++
		case models.ConsultationCancelled:
			s.Cancelled++
		}
	}
	return s
}
