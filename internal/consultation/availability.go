package consultation

import (
	"strings"
	"time"

	"telemed-server/internal/models"
)

// AvailableSlots returns the template slots for date's weekday that are not
// held by one of doctorID's scheduled or completed records on that date.
// Template order is preserved. A weekday without a template entry has no slots.
func AvailableSlots(doctorID string, template models.WeeklyTemplate, date time.Time, records []models.Consultation) []string {
	day := dayTemplate(template, date.Weekday())
	if day == nil {
		return []string{}
	}

	dateKey := date.Format(DateLayout)
	booked := make(map[string]struct{})
	for _, rec := range records {
		if rec.DoctorID != doctorID || rec.Date != dateKey || !rec.Status.HoldsSlot() {
			continue
		}
		booked[normalizeSlot(rec.TimeSlot)] = struct{}{}
	}

	out := make([]string, 0, len(day.Slots))
	seen := make(map[string]struct{}, len(day.Slots))
	for _, slot := range day.Slots {
		key := normalizeSlot(slot)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, taken := booked[key]; taken {
			continue
		}
		out = append(out, slot)
	}
	return out
}

func dayTemplate(template models.WeeklyTemplate, weekday time.Weekday) *models.DayTemplate {
	name := weekday.String()
	for i := range template {
		if strings.EqualFold(strings.TrimSpace(template[i].Day), name) {
			return &template[i]
		}
	}
	return nil
}

// normalizeSlot makes "10:00 am" and "10:00 AM" compare equal.
func normalizeSlot(slot string) string {
	return strings.ToUpper(strings.Join(strings.Fields(slot), " "))
}
