package policy

import (
	"crypto/subtle"

	"legacynote/internal/domain/entity"
)

// AccessVerdict is the outcome of a share-access check.
type AccessVerdict int

const (
	AccessDenied AccessVerdict = iota
	AccessAllowed
	AccessNotYetAvailable
)

type AccessRequest struct {
	AccessKey      string
	RequesterID    int64
	RequesterEmail string
}

type AccessDecision struct {
	Verdict AccessVerdict
	// DeliveryDate is populated on AccessNotYetAvailable so callers can
	// tell the requester when the note unlocks.
	DeliveryDate int64
}

// CanMutate reports whether the owner may still edit or delete the note.
// Delivery is the point of no return; a past-due note that the scheduler
// has not picked up yet is already locked (the "processing" window).
func CanMutate(note *entity.Note, now int64) bool {
	if note.IsDelivered() {
		return false
	}
	return now < note.DueAt()
}

// NormalizeVisibility enforces the recipients-imply-public rule: emailed
// recipients reach the note through its link without logging in, so a
// note with recipients cannot stay private.
func NormalizeVisibility(note *entity.Note) {
	if len(note.Recipients) > 0 {
		note.IsPublic = true
	}
}

// CheckAccess decides whether a requester may read a note.
//
// Owners and recipients always may, even before the delivery date.
// Access-key holders and the public only after the note is due; before
// that they learn the delivery date, never the content.
func CheckAccess(note *entity.Note, req AccessRequest, now int64) AccessDecision {
	if req.RequesterID != 0 && req.RequesterID == note.OwnerID {
		return AccessDecision{Verdict: AccessAllowed}
	}

	if req.RequesterEmail != "" && isRecipient(note, req.RequesterEmail) {
		return AccessDecision{Verdict: AccessAllowed}
	}

	if !keyMatches(note, req.AccessKey) && !note.IsPublic {
		return AccessDecision{Verdict: AccessDenied}
	}

	if now < note.DueAt() {
		return AccessDecision{
			Verdict:      AccessNotYetAvailable,
			DeliveryDate: note.DeliveryDate,
		}
	}
	return AccessDecision{Verdict: AccessAllowed}
}

func isRecipient(note *entity.Note, email string) bool {
	for _, r := range note.Recipients {
		if r.Email == email {
			return true
		}
	}
	return false
}

func keyMatches(note *entity.Note, key string) bool {
	if note.AccessKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(note.AccessKey), []byte(key)) == 1
}
