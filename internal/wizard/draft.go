// Package wizard drives the four-step order flow: choose files, specify the
// print job, pay, and confirm.
package wizard

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

type Stage int

const (
	StageUpload Stage = iota + 1
	StageSpecify
	StagePay
	StageConfirmed
)

func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageSpecify:
		return "specify"
	case StagePay:
		return "pay"
	case StageConfirmed:
		return "confirmed"
	}
	return "unknown"
}

// File is an upload staged on local disk until submission.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Path        string
}

// Confirmation is shown once an order is stored. Reference is the short code
// shown to the customer; OrderKey is the stored record's key.
type Confirmation struct {
	Reference string
	OrderKey  string
	Total     int
	Order     models.Order
}

// Draft is an order being assembled.
type Draft struct {
	ID            string
	Stage         Stage
	Files         []File
	Spec          models.PrintSpec
	PaymentMethod models.PaymentMethod
	Proof         *File
	TransactionID string
	Confirmation  *Confirmation

	// Submitting is set while Submit runs; the draft cannot change until it
	// is cleared.
	Submitting bool
}

func newDraft(id string) *Draft {
	return &Draft{
		ID:            id,
		Stage:         StageUpload,
		Spec:          models.DefaultPrintSpec(),
		PaymentMethod: models.PaymentQR,
	}
}

var validate = validator.New()

// Next advances one stage when the current stage's requirements are met.
// Confirmation is reached only by submitting, so Next on Pay or Confirmed
// does nothing.
func (d *Draft) Next() error {
	switch d.Stage {
	case StageUpload:
		if err := d.checkFiles(); err != nil {
			return err
		}
	case StageSpecify:
		if err := d.checkSpec(); err != nil {
			return err
		}
	default:
		return nil
	}
	d.Stage++
	return nil
}

// Back returns to the previous stage keeping everything entered so far.
func (d *Draft) Back() {
	if d.Stage > StageUpload && d.Stage < StageConfirmed {
		d.Stage--
	}
}

func (d *Draft) checkFiles() error {
	if len(d.Files) == 0 {
		return &ValidationError{Field: "files", Message: "Please upload at least one file to continue."}
	}
	return nil
}

func (d *Draft) checkSpec() error {
	if err := validate.Struct(d.Spec); err != nil {
		var field string
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field = verrs[0].Field()
		}
		return &ValidationError{Field: field, Message: specMessage(field)}
	}
	return nil
}

func (d *Draft) checkPayment() error {
	switch d.PaymentMethod {
	case models.PaymentPickup:
		return nil
	case models.PaymentQR:
		if d.Proof == nil || strings.TrimSpace(d.TransactionID) == "" {
			return &ValidationError{Field: "payment", Message: "Please provide payment screenshot and transaction ID."}
		}
		return nil
	}
	return &ValidationError{Field: "paymentMethod", Message: "Please choose a payment method."}
}

func specMessage(field string) string {
	switch field {
	case "Copies":
		return "Copies must be between 1 and 1000."
	case "EstimatedPages":
		return "Estimated pages must be between 1 and 10000."
	case "AdditionalInstructions":
		return "Additional instructions are too long."
	case "":
		return "Please check the print specification."
	}
	return "Please choose a valid " + strings.ToLower(field[:1]) + field[1:] + "."
}

// clone returns a copy that shares no slices with d.
func (d *Draft) clone() Draft {
	c := *d
	c.Files = append([]File(nil), d.Files...)
	if d.Proof != nil {
		p := *d.Proof
		c.Proof = &p
	}
	if d.Confirmation != nil {
		conf := *d.Confirmation
		c.Confirmation = &conf
	}
	return c
}
