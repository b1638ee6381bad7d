package models

// ConsultationStatus is the lifecycle state of a consultation request.
type ConsultationStatus string

const (
	ConsultationRequested ConsultationStatus = "requested"
	ConsultationScheduled ConsultationStatus = "scheduled"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s ConsultationStatus) Terminal() bool {
	return s == ConsultationCompleted || s == ConsultationCancelled
}

// HoldsSlot reports whether a record in this state occupies its doctor's slot.
func (s ConsultationStatus) HoldsSlot() bool {
	return s == ConsultationScheduled || s == ConsultationCompleted
}

// Medicine is one line of a prescription.
type Medicine struct {
	Name         string `json:"name" validate:"required"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Prescription is written by the doctor when a consultation is completed.
type Prescription struct {
	Medicines []Medicine `json:"medicines" validate:"dive"`
	Advice    string     `json:"advice" validate:"required"`
	FollowUp  string     `json:"followUp,omitempty"`
}

// Consultation is a patient's request for a consultation and everything that
// happens to it afterwards.
//
// IssueName, IssueCategory and DoctorName are snapshots copied when the record
// is created or assigned. They are kept for historical accuracy and must not
// be replaced with lookups against the catalog or the user table.
type Consultation struct {
	BaseModel
	PatientID     string             `gorm:"size:36;index" json:"patientId"`
	PatientName   string             `gorm:"size:200" json:"patientName"`
	DoctorID      string             `gorm:"size:36;index" json:"doctorId,omitempty"`
	DoctorName    string             `gorm:"size:200" json:"doctorName,omitempty"`
	IssueID       string             `gorm:"size:36" json:"issueId"`
	IssueName     string             `gorm:"size:200" json:"issueName"`
	IssueCategory IssueCategory      `gorm:"size:20" json:"issueCategory"`
	Symptoms      []string           `gorm:"serializer:json;type:text" json:"symptoms"`
	Date          string             `gorm:"size:10;index" json:"date"`
	TimeSlot      string             `gorm:"size:20" json:"timeSlot,omitempty"`
	Status        ConsultationStatus `gorm:"size:20;index" json:"status"`
	Notes         string             `gorm:"type:text" json:"notes,omitempty"`
	Prescription  *Prescription      `gorm:"serializer:json;type:text" json:"prescription,omitempty"`
	CancelReason  string             `gorm:"size:255" json:"cancelReason,omitempty"`
	// Version counts committed writes to the row; shared stores update only
	// when it still matches the value that was read.
	Version int64 `gorm:"not null;default:0" json:"-"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (c Consultation) Clone() Consultation {
	out := c
	if c.Symptoms != nil {
		out.Symptoms = append([]string(nil), c.Symptoms...)
	}
	if c.Prescription != nil {
		p := *c.Prescription
		if p.Medicines != nil {
			p.Medicines = append([]Medicine(nil), p.Medicines...)
		}
		out.Prescription = &p
	}
	return out
}
