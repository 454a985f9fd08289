package wizard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/blob"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/lock"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/pricing"
)

// OrderWriter persists a new order and returns its key.
type OrderWriter interface {
	AddOrder(ctx context.Context, o *models.Order) (string, error)
}

type Submitter struct {
	Drafts *Drafts
	Files  blob.Uploader // print files
	Proofs blob.Uploader // payment screenshots
	Orders OrderWriter
	Locks  lock.Locker
	Log    *zap.Logger

	now func() time.Time
}

func (s *Submitter) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Submit uploads the draft's files, prices it and stores the order. On
// success the draft moves to StageConfirmed.
//
// Steps run in order and stop at the first failure. Blobs uploaded before a
// failed write stay in the blob store.
func (s *Submitter) Submit(ctx context.Context, draftID string, principal *identity.Principal) (*Confirmation, error) {
	d, ok := s.Drafts.Get(draftID)
	if !ok {
		return nil, ErrDraftNotFound
	}
	if d.Stage == StageConfirmed {
		return nil, ErrSubmissionInFlight
	}
	if err := checkSubmittable(d); err != nil {
		return nil, err
	}
	if principal == nil {
		return nil, ErrAuthRequired
	}

	// The mark keeps the draft frozen for the whole submission, however long
	// the uploads take.
	d, err := s.Drafts.BeginSubmit(draftID)
	if err != nil {
		return nil, err
	}
	confirmed := false
	defer func() {
		if !confirmed {
			s.Drafts.EndSubmit(draftID)
		}
	}()

	release, err := s.Locks.Acquire(ctx, draftID)
	if errors.Is(err, lock.ErrHeld) {
		return nil, ErrSubmissionInFlight
	}
	if err != nil {
		return nil, err
	}
	defer release()

	log := s.Log.With(zap.String("draft", draftID), zap.String("user", principal.Email))

	fileURLs := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		url, err := upload(ctx, s.Files, f)
		if err != nil {
			log.Error("File upload failed", zap.String("file", f.Name), zap.Error(err))
			return nil, &UploadError{File: f.Name, Err: err}
		}
		fileURLs = append(fileURLs, url)
	}

	var proofURL, txID *string
	if d.PaymentMethod == models.PaymentQR {
		url, err := upload(ctx, s.Proofs, *d.Proof)
		if err != nil {
			log.Error("Payment proof upload failed", zap.Error(err))
			return nil, &UploadError{File: d.Proof.Name, Proof: true, Err: err}
		}
		tx := d.TransactionID
		proofURL, txID = &url, &tx
	}

	now := s.clock()
	order := models.Order{
		UserID:          principal.Email,
		Files:           fileURLs,
		PrintSpec:       d.Spec,
		PaymentMethod:   d.PaymentMethod,
		TransactionID:   txID,
		PaymentProofURL: proofURL,
		TotalCost:       pricing.Total(d.Spec),
		Status:          models.StatusPending,
		CreatedAt:       now.UTC(),
	}

	key, err := s.Orders.AddOrder(ctx, &order)
	if err != nil {
		orphaned := append([]string(nil), fileURLs...)
		if proofURL != nil {
			orphaned = append(orphaned, *proofURL)
		}
		log.Error("Order write failed; uploaded blobs left in place", zap.Strings("orphaned", orphaned), zap.Error(err))
		return nil, &PersistenceError{Orphaned: orphaned, Err: err}
	}
	order.ID = key

	conf := Confirmation{
		Reference: Reference(now),
		OrderKey:  key,
		Total:     order.TotalCost,
		Order:     order,
	}
	s.Drafts.Confirm(draftID, conf)
	confirmed = true
	log.Info("Order placed",
		zap.String("order", key),
		zap.String("reference", conf.Reference),
		zap.Int("total", conf.Total),
	)
	return &conf, nil
}

// Reference is the short order code shown to the customer: "ORD" and the
// last six digits of the Unix millisecond clock.
func Reference(t time.Time) string {
	return fmt.Sprintf("ORD%06d", t.UnixMilli()%1_000_000)
}

func checkSubmittable(d Draft) error {
	if d.Stage != StagePay {
		return &ValidationError{Field: "stage", Message: "Please complete the previous steps first."}
	}
	if err := d.checkFiles(); err != nil {
		return err
	}
	if err := d.checkSpec(); err != nil {
		return err
	}
	return d.checkPayment()
}

func upload(ctx context.Context, u blob.Uploader, f File) (string, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	return u.Upload(ctx, f.Name, f.ContentType, r)
}
