package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legacynote/internal/crypto"
	"legacynote/internal/domain/entity"
	"legacynote/internal/infrastructure/mail"
	"legacynote/internal/service/jobs"
	"legacynote/internal/sharing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deliveryTime = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC).UnixMilli()

type fakeNoteRepo struct {
	mu         sync.Mutex
	notes      map[int64]*entity.Note
	claims     map[int64]int
	denyClaims bool
	saveCalls  int
}

func newFakeNoteRepo(notes ...*entity.Note) *fakeNoteRepo {
	m := make(map[int64]*entity.Note, len(notes))
	for _, n := range notes {
		m[n.ID] = n
	}
	return &fakeNoteRepo{notes: m, claims: map[int64]int{}}
}

func (f *fakeNoteRepo) FindUndeliveredBefore(cutoff int64) ([]*entity.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []*entity.Note
	for _, n := range f.notes {
		if n.DeliveredAt == nil && n.DeliveryDate <= cutoff {
			due = append(due, n)
		}
	}
	return due, nil
}

func (f *fakeNoteRepo) ClaimDelivery(id int64, now int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.denyClaims {
		return false, nil
	}

	note, ok := f.notes[id]
	if !ok || note.DeliveredAt != nil {
		return false, nil
	}

	note.DeliveredAt = &now
	f.claims[id]++
	return true, nil
}

func (f *fakeNoteRepo) Save(note *entity.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	f.notes[note.ID] = note
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []*mail.Message
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]error{}}
}

func (f *fakeSender) Send(_ context.Context, msg *mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, msg)
	if err, ok := f.failFor[msg.To]; ok {
		return err
	}
	return nil
}

func (f *fakeSender) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.To
	}
	return out
}

func newScheduler(t *testing.T, repo *fakeNoteRepo, sender *fakeSender) *jobs.DeliveryScheduler {
	t.Helper()

	cipher, err := crypto.NewCipher(bytes.Repeat([]byte{0x11}, crypto.KeySize))
	require.NoError(t, err)

	links := sharing.NewGenerator("https://legacynote.app")
	return jobs.NewDeliveryScheduler(repo, cipher, links, sender, time.Minute)
}

func encrypted(t *testing.T, plaintext string) string {
	t.Helper()

	cipher, err := crypto.NewCipher(bytes.Repeat([]byte{0x11}, crypto.KeySize))
	require.NoError(t, err)

	out, err := cipher.Encrypt(plaintext)
	require.NoError(t, err)
	return out
}

func dueNote(t *testing.T, recipients ...entity.Recipient) *entity.Note {
	return &entity.Note{
		ID:                1,
		Title:             "Dear future me",
		EncryptedContent:  encrypted(t, "open when ready"),
		OwnerID:           100,
		Recipients:        recipients,
		DeliveryDate:      deliveryTime,
		ExactTimeDelivery: true,
	}
}

func TestRunCycle_ExactTimeBoundary(t *testing.T) {
	note := dueNote(t, entity.Recipient{Name: "Ana", Email: "ana@example.com"})
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	// One millisecond early: not due yet.
	sched.RunCycle(context.Background(), deliveryTime-1)
	assert.Empty(t, sender.recipients())
	assert.Nil(t, note.DeliveredAt)

	// One millisecond late: due.
	sched.RunCycle(context.Background(), deliveryTime+1)
	assert.Equal(t, []string{"ana@example.com"}, sender.recipients())
	assert.NotNil(t, note.DeliveredAt)
}

func TestRunCycle_DayGranularityNote(t *testing.T) {
	note := dueNote(t, entity.Recipient{Name: "Ana", Email: "ana@example.com"})
	note.ExactTimeDelivery = false
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	// 00:30 on the delivery day: due despite the 10:00 stored time.
	halfPastMidnight := time.Date(2026, 6, 1, 0, 30, 0, 0, time.UTC).UnixMilli()
	sched.RunCycle(context.Background(), halfPastMidnight)
	assert.NotNil(t, note.DeliveredAt)
}

func TestRunCycle_TwoRecipientsOneTransition(t *testing.T) {
	note := dueNote(t,
		entity.Recipient{Name: "Ana", Email: "ana@example.com"},
		entity.Recipient{Name: "Bo", Email: "bo@example.com"},
	)
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	now := deliveryTime + 1
	sched.RunCycle(context.Background(), now)
	sched.RunCycle(context.Background(), now+60_000)

	assert.ElementsMatch(t, []string{"ana@example.com", "bo@example.com"}, sender.recipients())
	assert.Equal(t, 1, repo.claims[note.ID], "exactly one delivered transition")
	require.NotNil(t, note.DeliveredAt)
	assert.Equal(t, now, *note.DeliveredAt)
}

func TestRunCycle_PartialSendFailure(t *testing.T) {
	note := dueNote(t,
		entity.Recipient{Name: "Ana", Email: "ana@example.com"},
		entity.Recipient{Name: "Bo", Email: "bo@example.com"},
	)
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sender.failFor["ana@example.com"] = errors.New("smtp timeout")
	sched := newScheduler(t, repo, sender)

	sched.RunCycle(context.Background(), deliveryTime+1)

	// No short-circuit: both sends attempted despite the first failing,
	// and the note stays delivered per the documented policy.
	assert.ElementsMatch(t, []string{"ana@example.com", "bo@example.com"}, sender.recipients())
	assert.NotNil(t, note.DeliveredAt)
}

func TestRunCycle_DecryptFailureLeavesNoteDue(t *testing.T) {
	note := dueNote(t, entity.Recipient{Name: "Ana", Email: "ana@example.com"})
	note.EncryptedContent = "not-even-base64!!!"
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	sched.RunCycle(context.Background(), deliveryTime+1)

	assert.Empty(t, sender.recipients())
	assert.Nil(t, note.DeliveredAt, "undecryptable note must stay due for retry")

	// And it is retried on the next cycle.
	sched.RunCycle(context.Background(), deliveryTime+60_001)
	assert.Nil(t, note.DeliveredAt)
}

func TestRunCycle_LostClaimSkipsSends(t *testing.T) {
	note := dueNote(t, entity.Recipient{Name: "Ana", Email: "ana@example.com"})
	repo := newFakeNoteRepo(note)
	repo.denyClaims = true
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	sched.RunCycle(context.Background(), deliveryTime+1)

	assert.Empty(t, sender.recipients(), "losing the claim means another instance delivers")
}

func TestRunCycle_NoRecipients(t *testing.T) {
	note := dueNote(t)
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	sched.RunCycle(context.Background(), deliveryTime+1)

	assert.NotNil(t, note.DeliveredAt)
	assert.Empty(t, sender.recipients())
	assert.Empty(t, note.AccessKey, "no recipients, no implicit share link")
}

func TestRunCycle_GeneratesShareLinkForRecipients(t *testing.T) {
	note := dueNote(t, entity.Recipient{Name: "Ana", Email: "ana@example.com"})
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	sched.RunCycle(context.Background(), deliveryTime+1)

	assert.NotEmpty(t, note.AccessKey)
	assert.True(t, note.IsPublic)
	assert.Contains(t, note.ShareableLink, "/shared/1/")
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTMLBody, note.ShareableLink)
}

func TestRunCycle_KeepsExistingShareLink(t *testing.T) {
	note := dueNote(t, entity.Recipient{Name: "Ana", Email: "ana@example.com"})
	note.AccessKey = "existing-key"
	note.ShareableLink = "https://legacynote.app/shared/1/existing-key"
	repo := newFakeNoteRepo(note)
	sender := newFakeSender()
	sched := newScheduler(t, repo, sender)

	sched.RunCycle(context.Background(), deliveryTime+1)

	assert.Equal(t, "existing-key", note.AccessKey)
	assert.Zero(t, repo.saveCalls, "an existing link must not be regenerated")
}
