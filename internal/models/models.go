package models

import (
	"errors"
	"time"
)

type PrintType string

const (
	PrintBW    PrintType = "bw"
	PrintColor PrintType = "color"
)

type BindType string

const (
	BindNone   BindType = "none"
	BindSpiral BindType = "spiral"
	BindStaple BindType = "staple"
)

type PaperSize string

const (
	PaperA4     PaperSize = "a4"
	PaperA3     PaperSize = "a3"
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
)

type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

type PaymentMethod string

const (
	PaymentQR     PaymentMethod = "qr"     // bank transfer via QR code, proof uploaded
	PaymentPickup PaymentMethod = "pickup" // pay at collection
)

// Order statuses. Only "pending" is written by the web app; the other two
// are set by shop staff.
const (
	StatusPending    = "pending"
	StatusProcessing = "Processing"
	StatusCompleted  = "Completed"
)

// PrintSpec is what the customer chose on the specification step.
type PrintSpec struct {
	PrintType              PrintType   `json:"printType" validate:"oneof=bw color"`
	BindType               BindType    `json:"bindType" validate:"oneof=none spiral staple"`
	PaperSize              PaperSize   `json:"paperSize" validate:"oneof=a4 a3 letter legal"`
	Orientation            Orientation `json:"orientation" validate:"oneof=portrait landscape"`
	Copies                 int         `json:"copies" validate:"min=1,max=1000"`
	EstimatedPages         int         `json:"estimatedPages" validate:"min=1,max=10000"`
	Confidential           bool        `json:"confidential"`
	DoubleSided            bool        `json:"doubleSided"`
	AdditionalInstructions string      `json:"additionalInstructions" validate:"max=2000"`
}

// DefaultPrintSpec mirrors the initial state of the order form.
func DefaultPrintSpec() PrintSpec {
	return PrintSpec{
		PrintType:      PrintBW,
		BindType:       BindNone,
		PaperSize:      PaperA4,
		Orientation:    Portrait,
		Copies:         1,
		EstimatedPages: 1,
	}
}

type Order struct {
	ID     string   `json:"-"`      // document key, filled on read
	UserID string   `json:"userId"` // owner's personal email
	Files  []string `json:"files"`
	PrintSpec
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	TransactionID   *string       `json:"transactionId"`
	PaymentProofURL *string       `json:"paymentProofUrl"`
	TotalCost       int           `json:"totalCost"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Pages is the number of sheets the order prints across all copies.
func (o Order) Pages() int {
	return o.EstimatedPages * o.Copies
}

type UserProfile struct {
	FullName           string `json:"fullName"`
	PersonalEmail      string `json:"personalEmail"`
	InstitutionalEmail string `json:"institutionalEmail"`
	College            string `json:"college"`
	Department         string `json:"department"`
	ClassName          string `json:"className"`
	RollNumber         string `json:"rollNumber"`
	YearOfEnrollment   string `json:"yearOfEnrollment"`
	YearOfGraduation   string `json:"yearOfGraduation"`
	Birthday           string `json:"birthday"`
	PhoneNumber        string `json:"phoneNumber"`
	TotalOrders        int    `json:"totalOrders"`
	TotalAmountSpent   int    `json:"totalAmountSpent"`
	TotalPagesPrinted  int    `json:"totalPagesPrinted"`
}

// ProfileUpdate carries a partial profile. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName           *string `json:"fullName,omitempty"`
	InstitutionalEmail *string `json:"institutionalEmail,omitempty"`
	College            *string `json:"college,omitempty"`
	Department         *string `json:"department,omitempty"`
	ClassName          *string `json:"className,omitempty"`
	RollNumber         *string `json:"rollNumber,omitempty"`
	YearOfEnrollment   *string `json:"yearOfEnrollment,omitempty"`
	YearOfGraduation   *string `json:"yearOfGraduation,omitempty"`
	Birthday           *string `json:"birthday,omitempty"`
	PhoneNumber        *string `json:"phoneNumber,omitempty"`
	TotalOrders        *int    `json:"totalOrders,omitempty"`
	TotalAmountSpent   *int    `json:"totalAmountSpent,omitempty"`
	TotalPagesPrinted  *int    `json:"totalPagesPrinted,omitempty"`
}

// Apply merges the non-nil fields of u into p.
func (u ProfileUpdate) Apply(p *UserProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FullName, u.FullName)
	set(&p.InstitutionalEmail, u.InstitutionalEmail)
	set(&p.College, u.College)
	set(&p.Department, u.Department)
	set(&p.ClassName, u.ClassName)
	set(&p.RollNumber, u.RollNumber)
	set(&p.YearOfEnrollment, u.YearOfEnrollment)
	set(&p.YearOfGraduation, u.YearOfGraduation)
	set(&p.Birthday, u.Birthday)
	set(&p.PhoneNumber, u.PhoneNumber)
	if u.TotalOrders != nil {
		p.TotalOrders = *u.TotalOrders
	}
	if u.TotalAmountSpent != nil {
		p.TotalAmountSpent = *u.TotalAmountSpent
	}
	if u.TotalPagesPrinted != nil {
		p.TotalPagesPrinted = *u.TotalPagesPrinted
	}
}

// Account is a sign-in identity held by the local auth provider.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt hash
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is a signed-in user as the auth provider sees it.
type Identity struct {
	UID   string
	Email string
}

// IdentityEvent reports a sign-in or sign-out for UID.
type IdentityEvent struct {
	UID      string
	Email    string
	SignedIn bool
}

// ErrInvalidCredentials is the identity provider's rejection of an email and
// password pair.
var ErrInvalidCredentials = errors.New("auth: invalid email or password")

// ValidationError is returned for user input that fails a precondition.
// Field names the offending input when there is one.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
