package jobs

import (
	"context"
	"time"

	"legacynote/internal/crypto"
	"legacynote/internal/domain/entity"
	"legacynote/internal/infrastructure/mail"
	"legacynote/internal/sharing"
	"legacynote/internal/utils"

	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval = time.Minute

	// Notes without exact-time delivery become due at midnight UTC, which
	// can precede their stored timestamp by up to a day. The SQL prefilter
	// uses this margin; the precise check happens against Note.DueAt.
	duePrefilterMargin = 24 * time.Hour

	// Bounded fan-out so a big backlog cannot overwhelm the mail relay.
	maxConcurrentNotes = 4
)

type NoteRepository interface {
	FindUndeliveredBefore(cutoff int64) ([]*entity.Note, error)
	ClaimDelivery(id int64, now int64) (bool, error)
	Save(note *entity.Note) error
}

// DeliveryScheduler is the background task that turns due notes into
// sent emails. One instance per process; multiple processes coordinate
// through the atomic claim, never through shared memory.
type DeliveryScheduler struct {
	noteRepo NoteRepository
	cipher   *crypto.Cipher
	links    *sharing.Generator
	sender   mail.Sender
	interval time.Duration
}

func NewDeliveryScheduler(
	noteRepo NoteRepository,
	contentCipher *crypto.Cipher,
	links *sharing.Generator,
	sender mail.Sender,
	interval time.Duration,
) *DeliveryScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &DeliveryScheduler{
		noteRepo: noteRepo,
		cipher:   contentCipher,
		links:    links,
		sender:   sender,
		interval: interval,
	}
}

func (d *DeliveryScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Info("Delivery scheduler cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping delivery scheduler...")
			return
		case <-ticker.C:
			d.RunCycle(ctx, utils.NowUTC())
		}
	}
}

// RunCycle scans for due notes and delivers each one independently. A
// failing note never aborts the others.
func (d *DeliveryScheduler) RunCycle(ctx context.Context, now int64) {
	notes, err := d.noteRepo.FindUndeliveredBefore(now + duePrefilterMargin.Milliseconds())
	if err != nil {
		log.Errorf("Scheduler: failed to fetch due notes: %v", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentNotes)

	for _, note := range notes {
		if now < note.DueAt() {
			continue
		}

		g.Go(func() error {
			d.deliver(ctx, note, now)
			return nil
		})
	}
	_ = g.Wait()
}

// deliver runs the per-note sequence: decrypt, claim, link, send.
//
// The claim is the single serialization point. It happens after
// decryption (so undecryptable notes stay due and retry next cycle) and
// before sending (so concurrent schedulers cannot double-send). Send
// failures after a won claim are logged and do not revert it.
func (d *DeliveryScheduler) deliver(ctx context.Context, note *entity.Note, now int64) {
	content, err := d.cipher.Decrypt(note.EncryptedContent)
	if err != nil {
		log.Errorf("Scheduler: cannot decrypt note %d, leaving it due: %v", note.ID, err)
		return
	}

	claimed, err := d.noteRepo.ClaimDelivery(note.ID, now)
	if err != nil {
		log.Errorf("Scheduler: failed to claim note %d: %v", note.ID, err)
		return
	}
	if !claimed {
		// Another scheduler instance won this note.
		return
	}
	note.DeliveredAt = &now

	if len(note.Recipients) == 0 {
		log.Infof("Scheduler: note %d delivered (no recipients)", note.ID)
		return
	}

	shareURL, err := d.ensureShareLink(note)
	if err != nil {
		// Blocks only the link side-channel; recipients still get the content.
		log.Errorf("Scheduler: failed to ensure share link for note %d: %v", note.ID, err)
	}

	for _, rcpt := range note.Recipients {
		msg := mail.NoteDelivery(rcpt.Name, rcpt.Email, note.Title, content, shareURL)
		if err := d.sender.Send(ctx, msg); err != nil {
			log.Errorf("Scheduler: failed to send note %d to %s: %v", note.ID, rcpt.Email, err)
		}
	}

	log.Infof("Scheduler: note %d delivered to %d recipient(s)", note.ID, len(note.Recipients))
}

func (d *DeliveryScheduler) ensureShareLink(note *entity.Note) (string, error) {
	if note.AccessKey != "" {
		return note.ShareableLink, nil
	}

	key, err := d.links.NewKey()
	if err != nil {
		return "", err
	}

	note.AccessKey = key
	note.ShareableLink = d.links.URL(note.ID, key)
	note.IsPublic = true
	note.UpdatedAt = utils.NowUTC()

	if err := d.noteRepo.Save(note); err != nil {
		return "", err
	}
	return note.ShareableLink, nil
}
