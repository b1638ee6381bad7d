package models

// HealthRecordType classifies entries of a patient's health profile.
type HealthRecordType string

const (
	RecordAllergy    HealthRecordType = "allergy"
	RecordCondition  HealthRecordType = "condition"
	RecordMedication HealthRecordType = "medication"
	RecordSurgery    HealthRecordType = "surgery"
)

// HealthRecordDetails holds the optional, type-specific attributes.
type HealthRecordDetails struct {
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Year      string `json:"year,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
	Date      string `json:"date,omitempty"`
}

// HealthRecord is a patient-maintained entry doctors read before a consultation.
type HealthRecord struct {
	BaseModel
	PatientID string               `gorm:"size:36;index" json:"patientId"`
	Type      HealthRecordType     `gorm:"size:20" json:"type"`
	Name      string               `gorm:"size:255;not null" json:"name"`
	Details   *HealthRecordDetails `gorm:"serializer:json;type:text" json:"details,omitempty"`
}
