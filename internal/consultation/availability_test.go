package consultation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telemed-server/internal/models"
)

func booked(doctorID, date, slot string, status models.ConsultationStatus) models.Consultation {
	return models.Consultation{DoctorID: doctorID, Date: date, TimeSlot: slot, Status: status}
}

func TestAvailableSlots(t *testing.T) {
	monday := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	template := models.WeeklyTemplate{{Day: "Monday", Slots: []string{"10:00 AM", "11:00 AM"}}}

	tests := []struct {
		name    string
		date    time.Time
		records []models.Consultation
		want    []string
	}{
		{
			name: "full template when nothing is booked",
			date: monday,
			want: []string{"10:00 AM", "11:00 AM"},
		},
		{
			name:    "scheduled slot is removed",
			date:    monday,
			records: []models.Consultation{booked("doc1", "2025-04-14", "10:00 AM", models.ConsultationScheduled)},
			want:    []string{"11:00 AM"},
		},
		{
			name:    "completed slot is removed",
			date:    monday,
			records: []models.Consultation{booked("doc1", "2025-04-14", "11:00 AM", models.ConsultationCompleted)},
			want:    []string{"10:00 AM"},
		},
		{
			name: "cancelled and requested records do not hold slots",
			date: monday,
			records: []models.Consultation{
				booked("doc1", "2025-04-14", "10:00 AM", models.ConsultationCancelled),
				booked("doc1", "2025-04-14", "11:00 AM", models.ConsultationRequested),
			},
			want: []string{"10:00 AM", "11:00 AM"},
		},
		{
			name: "other doctors and other dates are ignored",
			date: monday,
			records: []models.Consultation{
				booked("doc2", "2025-04-14", "10:00 AM", models.ConsultationScheduled),
				booked("doc1", "2025-04-21", "11:00 AM", models.ConsultationScheduled),
			},
			want: []string{"10:00 AM", "11:00 AM"},
		},
		{
			name:    "slot labels compare case-insensitively",
			date:    monday,
			records: []models.Consultation{booked("doc1", "2025-04-14", "10:00 am", models.ConsultationScheduled)},
			want:    []string{"11:00 AM"},
		},
		{
			name: "weekday without template entry is empty",
			date: monday.AddDate(0, 0, 1),
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvailableSlots("doc1", template, tt.date, tt.records))
		})
	}
}

func TestAvailableSlotsKeepsTemplateOrderAndDropsDuplicates(t *testing.T) {
	template := models.WeeklyTemplate{{Day: "monday", Slots: []string{"3:00 PM", "9:00 AM", "3:00 PM", "12:00 PM"}}}
	monday := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)

	got := AvailableSlots("doc1", template, monday, nil)
	assert.Equal(t, []string{"3:00 PM", "9:00 AM", "12:00 PM"}, got)
}
