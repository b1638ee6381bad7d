package models

// DayTemplate lists the bookable slot labels for one weekday, e.g.
// {"day": "Monday", "slots": ["10:00 AM", "11:00 AM"]}.
type DayTemplate struct {
	Day   string   `json:"day" binding:"required"`
	Slots []string `json:"slots"`
}

// WeeklyTemplate is a doctor's static weekly availability.
type WeeklyTemplate []DayTemplate
