package policy_test

import (
	"testing"
	"time"

	"legacynote/internal/domain/entity"
	"legacynote/internal/domain/policy"

	"github.com/stretchr/testify/assert"
)

var baseTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC).UnixMilli()

func millis(offset time.Duration) int64 {
	return baseTime + offset.Milliseconds()
}

func exactNote() *entity.Note {
	return &entity.Note{
		ID:                1,
		OwnerID:           100,
		DeliveryDate:      baseTime,
		ExactTimeDelivery: true,
	}
}

func TestCanMutate(t *testing.T) {
	t.Run("future note is mutable", func(t *testing.T) {
		note := exactNote()
		assert.True(t, policy.CanMutate(note, millis(-time.Hour)))
	})

	t.Run("delivered note is frozen", func(t *testing.T) {
		note := exactNote()
		deliveredAt := millis(time.Minute)
		note.DeliveredAt = &deliveredAt
		assert.False(t, policy.CanMutate(note, millis(2*time.Minute)))
	})

	t.Run("past due but unprocessed is frozen", func(t *testing.T) {
		// The scheduler has not flipped the note yet, but its delivery
		// window has opened; the owner can no longer touch it.
		note := exactNote()
		assert.False(t, policy.CanMutate(note, millis(time.Second)))
	})

	t.Run("day-granularity note locks at midnight", func(t *testing.T) {
		note := exactNote()
		note.ExactTimeDelivery = false

		midnight := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC).UnixMilli()
		assert.False(t, policy.CanMutate(note, midnight))
		assert.True(t, policy.CanMutate(note, midnight-1))
	})
}

func TestNormalizeVisibility(t *testing.T) {
	note := exactNote()
	policy.NormalizeVisibility(note)
	assert.False(t, note.IsPublic, "no recipients must not force publicity")

	note.Recipients = []entity.Recipient{{Name: "Ana", Email: "ana@example.com"}}
	policy.NormalizeVisibility(note)
	assert.True(t, note.IsPublic)

	// Never flips back.
	note.Recipients = nil
	policy.NormalizeVisibility(note)
	assert.True(t, note.IsPublic)
}

func TestCheckAccess_Owner(t *testing.T) {
	note := exactNote()

	decision := policy.CheckAccess(note, policy.AccessRequest{RequesterID: 100}, millis(-time.Hour))
	assert.Equal(t, policy.AccessAllowed, decision.Verdict, "owner reads even before delivery")
}

func TestCheckAccess_Recipient(t *testing.T) {
	note := exactNote()
	note.Recipients = []entity.Recipient{{Name: "Ana", Email: "ana@example.com"}}

	decision := policy.CheckAccess(note, policy.AccessRequest{RequesterEmail: "ana@example.com"}, millis(-time.Hour))
	assert.Equal(t, policy.AccessAllowed, decision.Verdict, "recipient reads even before delivery")
}

func TestCheckAccess_KeyHolderBeforeDue(t *testing.T) {
	note := exactNote()
	note.AccessKey = "secret-key"

	decision := policy.CheckAccess(note, policy.AccessRequest{AccessKey: "secret-key"}, millis(-time.Hour))
	assert.Equal(t, policy.AccessNotYetAvailable, decision.Verdict)
	assert.Equal(t, note.DeliveryDate, decision.DeliveryDate)
}

func TestCheckAccess_KeyHolderAfterDue(t *testing.T) {
	note := exactNote()
	note.AccessKey = "secret-key"

	decision := policy.CheckAccess(note, policy.AccessRequest{AccessKey: "secret-key"}, millis(time.Minute))
	assert.Equal(t, policy.AccessAllowed, decision.Verdict)
}

func TestCheckAccess_WrongKey(t *testing.T) {
	note := exactNote()
	note.AccessKey = "secret-key"

	decision := policy.CheckAccess(note, policy.AccessRequest{AccessKey: "guessed"}, millis(time.Minute))
	assert.Equal(t, policy.AccessDenied, decision.Verdict)
}

func TestCheckAccess_EmptyKeyNeverMatches(t *testing.T) {
	// A note that never generated a link must not match an empty key.
	note := exactNote()

	decision := policy.CheckAccess(note, policy.AccessRequest{}, millis(time.Minute))
	assert.Equal(t, policy.AccessDenied, decision.Verdict)
}

func TestCheckAccess_PublicNote(t *testing.T) {
	note := exactNote()
	note.IsPublic = true

	early := policy.CheckAccess(note, policy.AccessRequest{}, millis(-time.Hour))
	assert.Equal(t, policy.AccessNotYetAvailable, early.Verdict)

	late := policy.CheckAccess(note, policy.AccessRequest{}, millis(time.Minute))
	assert.Equal(t, policy.AccessAllowed, late.Verdict)
}
