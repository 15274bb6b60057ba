package contract

const MaxAttachmentSizeBytes = 30 * 1024 * 1024

var ValidAttachmentFileTypes = []string{"pdf", "png", "jpg", "jpeg", "jfif", "webp", "gif", "mp4", "mp3"}

type RecipientPayload struct {
	Name  string `json:"name" validate:"required,min=1,max=80"`
	Email string `json:"email" validate:"required,email"`
}

type CreateNoteRequest struct {
	Title             string             `json:"title" validate:"required,min=1,max=120"`
	Content           string             `json:"content" validate:"required,max=1000000"`
	DeliveryDate      int64              `json:"delivery_date" validate:"required,gt=0"`
	ExactTimeDelivery bool               `json:"exact_time_delivery"`
	IsPublic          bool               `json:"is_public"`
	Recipients        []RecipientPayload `json:"recipients" validate:"omitempty,max=50,nodupes,dive"`

	// Recipient is the legacy singular field older clients still send.
	// It is folded into Recipients before anything touches storage.
	Recipient *RecipientPayload `json:"recipient" validate:"omitempty"`
}

type UpdateNoteRequest struct {
	Title             *string            `json:"title" validate:"omitempty,min=1,max=120"`
	Content           *string            `json:"content" validate:"omitempty,max=1000000"`
	DeliveryDate      *int64             `json:"delivery_date" validate:"omitempty,gt=0"`
	ExactTimeDelivery *bool              `json:"exact_time_delivery"`
	IsPublic          *bool              `json:"is_public"`
	Recipients        []RecipientPayload `json:"recipients" validate:"omitempty,max=50,nodupes,dive"`
	Recipient         *RecipientPayload  `json:"recipient" validate:"omitempty"`
}

type ShareNoteRequest struct {
	Regenerate bool `json:"regenerate"`
}

type MediaFileResponse struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

type NoteResponse struct {
	ID                int64               `json:"id"`
	Title             string              `json:"title"`
	Content           string              `json:"content,omitempty"`
	Recipients        []RecipientPayload  `json:"recipients"`
	MediaFiles        []MediaFileResponse `json:"media_files"`
	DeliveryDate      string              `json:"delivery_date"`
	ExactTimeDelivery bool                `json:"exact_time_delivery"`
	State             string              `json:"state"`
	DeliveredAt       *string             `json:"delivered_at,omitempty"`
	IsPublic          bool                `json:"is_public"`
	ShareableLink     string              `json:"shareable_link,omitempty"`
	OwnerID           int64               `json:"owner_id"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
}

type ShareNoteResponse struct {
	AccessKey     string `json:"access_key"`
	ShareableLink string `json:"shareable_link"`
}
