package models

// MessageType mirrors what the consultation room chat can carry.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

// Message is one entry of a consultation's chat log.
type Message struct {
	BaseModel
	ConsultationID string      `gorm:"size:36;index" json:"consultationId"`
	SenderID       string      `gorm:"size:36;index" json:"senderId"`
	SenderName     string      `gorm:"size:200" json:"senderName"`
	Type           MessageType `gorm:"size:10;default:'text'" json:"type"`
	Content        string      `gorm:"type:text" json:"content"`
}
