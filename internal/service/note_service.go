package service

import (
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"legacynote/internal/contract"
	"legacynote/internal/crypto"
	"legacynote/internal/domain/entity"
	"legacynote/internal/domain/policy"
	"legacynote/internal/infrastructure/aws/storage"
	"legacynote/internal/sharing"
	"legacynote/internal/utils"
	"legacynote/internal/utils/apierror"
	"legacynote/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type NoteRepository interface {
	FindByOwner(ownerID int64) ([]*entity.Note, error)
	FindByID(id int64) (*entity.Note, error)
	Save(note *entity.Note) error
	Delete(note *entity.Note) error
}

type DefaultNoteService struct {
	NoteRepo NoteRepository
	Cipher   *crypto.Cipher
	Links    *sharing.Generator
	S3       storage.S3Client
	Validate *validator.Validate
}

func NewNoteService(
	noteRepo NoteRepository,
	contentCipher *crypto.Cipher,
	links *sharing.Generator,
	s3 storage.S3Client,
	validate *validator.Validate,
) *DefaultNoteService {
	return &DefaultNoteService{
		NoteRepo: noteRepo,
		Cipher:   contentCipher,
		Links:    links,
		S3:       s3,
		Validate: validate,
	}
}

func (n *DefaultNoteService) GetOwnNotes(actor *entity.User) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	notes, err := n.NoteRepo.FindByOwner(actor.ID)
	if err != nil {
		log.Errorf("failed to fetch notes: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.NoteResponse, len(notes))
	for i, note := range notes {
		// Listings never carry content, so nothing is decrypted here.
		resp[i] = toNoteResponse(note, "")
	}
	return resp, nil
}

func (n *DefaultNoteService) GetNoteByID(actor *entity.User, noteID int64) (*contract.NoteResponse, apierror.ErrorResponse) {
	note, apierr := n.findOwnedNote(actor, noteID)
	if apierr != nil {
		return nil, apierr
	}

	content, err := n.Cipher.Decrypt(note.EncryptedContent)
	if err != nil {
		log.Errorf("failed to decrypt note %d: %v", note.ID, err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponse(note, content), nil
}

func (n *DefaultNoteService) CreateNote(actor *entity.User, req *contract.CreateNoteRequest, attachments []*multipart.FileHeader) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	encrypted, err := n.Cipher.Encrypt(req.Content)
	if err != nil {
		log.Errorf("failed to encrypt note content: %v", err)
		return nil, apierror.InternalServerError
	}

	media, apierr := n.uploadAttachments(attachments)
	if apierr != nil {
		return nil, apierr
	}

	now := utils.NowUTC()
	note := &entity.Note{
		ID:                uid.Generate(),
		Title:             req.Title,
		EncryptedContent:  encrypted,
		OwnerID:           actor.ID,
		Recipients:        mergeRecipients(req.Recipients, req.Recipient),
		MediaFiles:        media,
		DeliveryDate:      req.DeliveryDate,
		ExactTimeDelivery: req.ExactTimeDelivery,
		IsPublic:          req.IsPublic,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	policy.NormalizeVisibility(note)

	if err := n.NoteRepo.Save(note); err != nil {
		log.Errorf("failed to save note: %v", err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponse(note, req.Content), nil
}

func (n *DefaultNoteService) UpdateNote(actor *entity.User, noteID int64, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	note, apierr := n.findOwnedNote(actor, noteID)
	if apierr != nil {
		return nil, apierr
	}

	if apierr := checkMutable(note); apierr != nil {
		return nil, apierr
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.DeliveryDate != nil {
		note.DeliveryDate = *req.DeliveryDate
	}
	if req.ExactTimeDelivery != nil {
		note.ExactTimeDelivery = *req.ExactTimeDelivery
	}
	if req.IsPublic != nil {
		note.IsPublic = *req.IsPublic
	}
	if req.Recipients != nil || req.Recipient != nil {
		note.Recipients = mergeRecipients(req.Recipients, req.Recipient)
	}

	content := ""
	if req.Content != nil {
		// Every content change discards the previous ciphertext.
		encrypted, err := n.Cipher.Encrypt(*req.Content)
		if err != nil {
			log.Errorf("failed to re-encrypt note %d: %v", note.ID, err)
			return nil, apierror.InternalServerError
		}
		note.EncryptedContent = encrypted
		content = *req.Content
	}

	policy.NormalizeVisibility(note)
	note.UpdatedAt = utils.NowUTC()

	if err := n.NoteRepo.Save(note); err != nil {
		log.Errorf("failed to update note: %v", err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponse(note, content), nil
}

func (n *DefaultNoteService) DeleteNote(actor *entity.User, noteID int64) apierror.ErrorResponse {
	note, apierr := n.findOwnedNote(actor, noteID)
	if apierr != nil {
		return apierr
	}

	if apierr := checkMutable(note); apierr != nil {
		return apierr
	}

	for _, media := range note.MediaFiles {
		if err := n.S3.DeleteFile(media.FileURL); err != nil {
			log.Errorf("failed to delete attachment %s of note %d: %v", media.FileURL, note.ID, err)
		}
	}

	if err := n.NoteRepo.Delete(note); err != nil {
		log.Errorf("failed to delete note: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

// ShareNote returns the note's capability link, generating it on first
// call. An existing link is reused unless regenerate is set, in which
// case the old access key silently stops working.
func (n *DefaultNoteService) ShareNote(actor *entity.User, noteID int64, regenerate bool) (*contract.ShareNoteResponse, apierror.ErrorResponse) {
	note, apierr := n.findOwnedNote(actor, noteID)
	if apierr != nil {
		return nil, apierr
	}

	if note.AccessKey != "" && !regenerate {
		return &contract.ShareNoteResponse{
			AccessKey:     note.AccessKey,
			ShareableLink: note.ShareableLink,
		}, nil
	}

	key, err := n.Links.NewKey()
	if err != nil {
		log.Errorf("failed to generate access key for note %d: %v", note.ID, err)
		return nil, apierror.InternalServerError
	}

	note.AccessKey = key
	note.ShareableLink = n.Links.URL(note.ID, key)
	note.IsPublic = true
	note.UpdatedAt = utils.NowUTC()

	if err := n.NoteRepo.Save(note); err != nil {
		log.Errorf("failed to persist share link for note %d: %v", note.ID, err)
		return nil, apierror.InternalServerError
	}

	return &contract.ShareNoteResponse{
		AccessKey:     note.AccessKey,
		ShareableLink: note.ShareableLink,
	}, nil
}

// AccessSharedNote serves the capability-URL read path. Requester
// identity is optional; access keys work without any authentication.
func (n *DefaultNoteService) AccessSharedNote(noteID int64, req policy.AccessRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	note, err := n.NoteRepo.FindByID(noteID)
	if err != nil {
		log.Errorf("failed to fetch note: %v", err)
		return nil, apierror.InternalServerError
	}

	if note == nil {
		return nil, apierror.NotFoundError
	}

	decision := policy.CheckAccess(note, req, utils.NowUTC())
	switch decision.Verdict {
	case policy.AccessNotYetAvailable:
		return nil, apierror.NewNotYetAvailable(utils.FormatEpoch(decision.DeliveryDate))
	case policy.AccessAllowed:
		// fall through
	default:
		// Denied requesters cannot probe for note existence.
		return nil, apierror.NotFoundError
	}

	content, err := n.Cipher.Decrypt(note.EncryptedContent)
	if err != nil {
		log.Errorf("failed to decrypt note %d: %v", note.ID, err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponse(note, content), nil
}

func (n *DefaultNoteService) findOwnedNote(actor *entity.User, noteID int64) (*entity.Note, apierror.ErrorResponse) {
	note, err := n.NoteRepo.FindByID(noteID)
	if err != nil {
		log.Errorf("failed to fetch note: %v", err)
		return nil, apierror.InternalServerError
	}

	// Non-owners get a 404, not a 403, so note IDs stay unguessable.
	if note == nil || note.OwnerID != actor.ID {
		return nil, apierror.NotFoundError
	}
	return note, nil
}

func (n *DefaultNoteService) uploadAttachments(attachments []*multipart.FileHeader) ([]entity.MediaFile, apierror.ErrorResponse) {
	media := make([]entity.MediaFile, 0, len(attachments))
	for _, fileHeader := range attachments {
		if apierr := checkAttachment(fileHeader); apierr != nil {
			return nil, apierr
		}

		data, apierr := readAttachment(fileHeader)
		if apierr != nil {
			return nil, apierr
		}

		ext := filepath.Ext(fileHeader.Filename)
		key, err := n.S3.UploadFile(data, uuid.NewString()+ext)
		if err != nil {
			log.Errorf("failed to upload attachment: %v", err)
			return nil, apierror.InternalServerError
		}

		media = append(media, entity.MediaFile{
			FileName: fileHeader.Filename,
			FileURL:  key,
			FileType: mime.TypeByExtension(ext),
			FileSize: fileHeader.Size,
		})
	}
	return media, nil
}

func checkMutable(note *entity.Note) apierror.ErrorResponse {
	now := utils.NowUTC()
	if policy.CanMutate(note, now) {
		return nil
	}

	if note.IsDelivered() {
		return apierror.NoteDeliveredError
	}
	return apierror.NotePastDueError
}

func checkAttachment(fileHeader *multipart.FileHeader) apierror.ErrorResponse {
	if fileHeader.Size > contract.MaxAttachmentSizeBytes {
		return apierror.NewAttachmentTooLargeError(contract.MaxAttachmentSizeBytes)
	}

	if strings.TrimSpace(fileHeader.Filename) == "" {
		return apierror.MissingFileNameError
	}

	if ext, ok := utils.CheckFileExt(fileHeader.Filename, contract.ValidAttachmentFileTypes); !ok {
		return apierror.NewInvalidFileExtError(ext)
	}
	return nil
}

func readAttachment(fileHeader *multipart.FileHeader) ([]byte, apierror.ErrorResponse) {
	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("failed to open attachment: %v", err)
		return nil, apierror.InternalServerError
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("failed to read attachment: %v", err)
		return nil, apierror.InternalServerError
	}
	return data, nil
}

// mergeRecipients folds the legacy singular recipient into the
// normalized slice, deduplicating by email.
func mergeRecipients(recipients []contract.RecipientPayload, legacy *contract.RecipientPayload) []entity.Recipient {
	merged := make([]entity.Recipient, 0, len(recipients)+1)
	seen := make(map[string]bool, len(recipients)+1)

	all := recipients
	if legacy != nil {
		all = append(all, *legacy)
	}

	for _, r := range all {
		email := strings.ToLower(strings.TrimSpace(r.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		merged = append(merged, entity.Recipient{
			Name:  strings.TrimSpace(r.Name),
			Email: email,
		})
	}
	return merged
}

func toNoteResponse(note *entity.Note, content string) *contract.NoteResponse {
	recipients := make([]contract.RecipientPayload, len(note.Recipients))
	for i, r := range note.Recipients {
		recipients[i] = contract.RecipientPayload{Name: r.Name, Email: r.Email}
	}

	media := make([]contract.MediaFileResponse, len(note.MediaFiles))
	for i, m := range note.MediaFiles {
		media[i] = contract.MediaFileResponse{
			FileName: m.FileName,
			FileURL:  m.FileURL,
			FileType: m.FileType,
			FileSize: m.FileSize,
		}
	}

	var deliveredAt *string
	if note.DeliveredAt != nil {
		formatted := utils.FormatEpoch(*note.DeliveredAt)
		deliveredAt = &formatted
	}

	return &contract.NoteResponse{
		ID:                note.ID,
		Title:             note.Title,
		Content:           content,
		Recipients:        recipients,
		MediaFiles:        media,
		DeliveryDate:      utils.FormatEpoch(note.DeliveryDate),
		ExactTimeDelivery: note.ExactTimeDelivery,
		State:             string(note.State(utils.NowUTC())),
		DeliveredAt:       deliveredAt,
		IsPublic:          note.IsPublic,
		ShareableLink:     note.ShareableLink,
		OwnerID:           note.OwnerID,
		CreatedAt:         utils.FormatEpoch(note.CreatedAt),
		UpdatedAt:         utils.FormatEpoch(note.UpdatedAt),
	}
}
