package entity

import "time"

// DeliveryState is the derived delivery lifecycle of a note.
type DeliveryState string

const (
	DeliveryStatePending   DeliveryState = "PENDING"
	DeliveryStateDue       DeliveryState = "DUE"
	DeliveryStateDelivered DeliveryState = "DELIVERED"
)

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MediaFile struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

// Note stores its content encrypted; plaintext only exists in memory
// between the API boundary and the cipher.
//
// DeliveredAt doubles as the delivered flag: nil means undelivered,
// non-nil holds the delivery instant. There is no separate boolean to
// fall out of sync with.
type Note struct {
	ID               int64  `gorm:"primaryKey"`
	Title            string `gorm:"not null"`
	EncryptedContent string `gorm:"not null"`
	OwnerID          int64  `gorm:"not null;index"` // References: users(id)

	Recipients []Recipient `gorm:"serializer:json"`
	MediaFiles []MediaFile `gorm:"serializer:json"`

	DeliveryDate      int64  `gorm:"not null;index"`
	ExactTimeDelivery bool   `gorm:"not null;default:false"`
	DeliveredAt       *int64 `gorm:"index"`

	IsPublic      bool `gorm:"not null;default:false"`
	ShareableLink string
	AccessKey     string

	CreatedAt int64 `gorm:"not null"`
	UpdatedAt int64 `gorm:"not null;autoUpdateTime:false"`

	// Relations
	Owner User `gorm:"foreignKey:OwnerID;references:ID"`
}

func (n *Note) IsDelivered() bool {
	return n.DeliveredAt != nil
}

// DueAt returns the instant from which the note counts as due, in epoch
// millis. Notes without exact-time delivery become due at 00:00 UTC of
// their delivery day regardless of the stored time of day.
func (n *Note) DueAt() int64 {
	if n.ExactTimeDelivery {
		return n.DeliveryDate
	}

	t := time.UnixMilli(n.DeliveryDate).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

func (n *Note) State(now int64) DeliveryState {
	switch {
	case n.DeliveredAt != nil:
		return DeliveryStateDelivered
	case now >= n.DueAt():
		return DeliveryStateDue
	default:
		return DeliveryStatePending
	}
}
