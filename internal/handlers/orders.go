package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/pricing"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/wizard"
)

// maxFilesPerRequest bounds one upload request to this many files of
// MaxUploadSize each.
const maxFilesPerRequest = 10

type OrderHandler struct {
	*Base
	Drafts        *wizard.Drafts
	Submitter     *wizard.Submitter
	MaxUploadSize int64
}

type option struct {
	Value string
	Label string
}

var (
	printTypeOptions = []option{{"bw", "Black & White"}, {"color", "Color"}}
	bindTypeOptions  = []option{{"none", "No Binding"}, {"spiral", "Spiral Binding"}, {"staple", "Staple"}}
	paperOptions     = []option{{"a4", "A4"}, {"a3", "A3"}, {"letter", "Letter"}, {"legal", "Legal"}}
	orientOptions    = []option{{"portrait", "Portrait"}, {"landscape", "Landscape"}}
)

// currentDraft returns the visitor's draft, starting a new one when the
// session has none or it has expired.
func (h *OrderHandler) currentDraft(w http.ResponseWriter, r *http.Request) wizard.Draft {
	session := h.session(r)
	if id, _ := session.Values[keyDraft].(string); id != "" {
		if d, ok := h.Drafts.Get(id); ok {
			return d
		}
	}
	d := h.Drafts.Create()
	session.Values[keyDraft] = d.ID
	h.save(w, r, session)
	return d
}

func (h *OrderHandler) OrderForm(w http.ResponseWriter, r *http.Request) {
	d := h.currentDraft(w, r)
	h.render(w, r, "order.html", map[string]interface{}{
		"Draft":        d,
		"Stage":        int(d.Stage),
		"Quote":        pricing.Compute(d.Spec.PrintType, d.Spec.BindType, d.Spec.PaperSize, d.Spec.EstimatedPages, d.Spec.Copies),
		"PrintTypes":   printTypeOptions,
		"BindTypes":    bindTypeOptions,
		"PaperSizes":   paperOptions,
		"Orientations": orientOptions,
		"MaxUploadMB":  h.MaxUploadSize >> 20,
	})
}

func (h *OrderHandler) AddFiles(w http.ResponseWriter, r *http.Request) {
	d := h.currentDraft(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize*maxFilesPerRequest)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.toastError(r, "Upload Failed", fmt.Sprintf("Files are too large. Max %d MB each.", h.MaxUploadSize>>20))
		redirect(w, r, "/order")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.toastError(r, "No Files", "Please choose at least one file.")
		redirect(w, r, "/order")
		return
	}

	added := 0
	for _, fh := range headers {
		if err := h.stage(d.ID, fh, h.Drafts.StageFile); err != nil {
			h.stageFailed(r, fh.Filename, err)
			continue
		}
		added++
	}
	if added > 0 {
		h.toastSuccess(r, "Files Added", fmt.Sprintf("%d file(s) added successfully.", added))
	}
	redirect(w, r, "/order")
}

func (h *OrderHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	d := h.currentDraft(w, r)
	i, err := strconv.Atoi(r.FormValue("index"))
	if err == nil {
		err = h.Drafts.RemoveFile(d.ID, i)
	}
	switch {
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		h.wizardFailed(r, err)
	case err != nil:
		h.toastError(r, "Error", "Could not remove that file.")
	}
	redirect(w, r, "/order")
}

// Next advances the wizard. On the payment step it submits the order.
func (h *OrderHandler) Next(w http.ResponseWriter, r *http.Request) {
	d := h.currentDraft(w, r)

	var err error
	switch d.Stage {
	case wizard.StageUpload:
		_, err = h.Drafts.Update(d.ID, func(d *wizard.Draft) error { return d.Next() })
	case wizard.StageSpecify:
		err = h.saveSpec(r, d.ID)
		if err == nil {
			_, err = h.Drafts.Update(d.ID, func(d *wizard.Draft) error { return d.Next() })
		}
	case wizard.StagePay:
		h.submit(w, r, d.ID)
		return
	case wizard.StageConfirmed:
		err = wizard.ErrSubmissionInFlight
	}
	if err != nil {
		h.wizardFailed(r, err)
	}
	redirect(w, r, "/order")
}

func (h *OrderHandler) Back(w http.ResponseWriter, r *http.Request) {
	d := h.currentDraft(w, r)
	if _, err := h.Drafts.Update(d.ID, func(d *wizard.Draft) error {
		d.Back()
		return nil
	}); err != nil {
		h.wizardFailed(r, err)
	}
	redirect(w, r, "/order")
}

// Reset discards the draft, including after a confirmed order.
func (h *OrderHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	if id, _ := session.Values[keyDraft].(string); id != "" {
		if err := h.Drafts.Discard(id); err != nil {
			h.wizardFailed(r, err)
			redirect(w, r, "/order")
			return
		}
	}
	delete(session.Values, keyDraft)
	h.save(w, r, session)
	redirect(w, r, "/order")
}

// Quote prices the query parameters for the live calculator.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote := pricing.ComputeFromStrings(q.Get("printType"), q.Get("bindType"), q.Get("paperSize"), q.Get("estimatedPages"), q.Get("copies"))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(quote); err != nil {
		h.Log.Error("Failed to encode quote", zap.Error(err))
	}
}

func (h *OrderHandler) submit(w http.ResponseWriter, r *http.Request, draftID string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.toastError(r, "Upload Failed", fmt.Sprintf("Payment screenshot is too large. Max %d MB.", h.MaxUploadSize>>20))
		redirect(w, r, "/order")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	method := models.PaymentMethod(r.FormValue("paymentMethod"))
	txID := strings.TrimSpace(r.FormValue("transactionId"))
	if _, err := h.Drafts.Update(draftID, func(d *wizard.Draft) error {
		if method != "" {
			d.PaymentMethod = method
		}
		d.TransactionID = txID
		return nil
	}); err != nil {
		h.wizardFailed(r, err)
		redirect(w, r, "/order")
		return
	}

	if r.MultipartForm != nil {
		if proofs := r.MultipartForm.File["paymentProof"]; len(proofs) > 0 {
			fh := proofs[0]
			if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
				h.toastError(r, "Invalid Screenshot", "The payment screenshot must be an image.")
				redirect(w, r, "/order")
				return
			}
			if err := h.stage(draftID, fh, h.Drafts.StageProof); err != nil {
				h.stageFailed(r, fh.Filename, err)
				redirect(w, r, "/order")
				return
			}
		}
	}

	if _, err := h.Submitter.Submit(r.Context(), draftID, identity.PrincipalFromContext(r.Context())); err != nil {
		h.wizardFailed(r, err)
		redirect(w, r, "/order")
		return
	}
	h.toastSuccess(r, "Success", "Order placed successfully!")
	redirect(w, r, "/order")
}

func (h *OrderHandler) saveSpec(r *http.Request, draftID string) error {
	copies, err := strconv.Atoi(strings.TrimSpace(r.FormValue("copies")))
	if err != nil {
		return &wizard.ValidationError{Field: "Copies", Message: "Copies must be a whole number."}
	}
	pages, err := strconv.Atoi(strings.TrimSpace(r.FormValue("estimatedPages")))
	if err != nil {
		return &wizard.ValidationError{Field: "EstimatedPages", Message: "Estimated pages must be a whole number."}
	}

	_, err = h.Drafts.Update(draftID, func(d *wizard.Draft) error {
		d.Spec = models.PrintSpec{
			PrintType:              models.PrintType(r.FormValue("printType")),
			BindType:               models.BindType(r.FormValue("bindType")),
			PaperSize:              models.PaperSize(r.FormValue("paperSize")),
			Orientation:            models.Orientation(r.FormValue("orientation")),
			Copies:                 copies,
			EstimatedPages:         pages,
			Confidential:           r.FormValue("confidential") != "",
			DoubleSided:            r.FormValue("doubleSided") != "",
			AdditionalInstructions: strings.TrimSpace(r.FormValue("additionalInstructions")),
		}
		return nil
	})
	return err
}

type stageFunc func(id, name, contentType string, r io.Reader) (wizard.File, error)

func (h *OrderHandler) stage(draftID string, fh *multipart.FileHeader, fn stageFunc) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = fn(draftID, fh.Filename, contentType, f)
	return err
}

func (h *OrderHandler) stageFailed(r *http.Request, name string, err error) {
	switch {
	case errors.Is(err, wizard.ErrFileTooLarge):
		h.toastError(r, "File Too Large", fmt.Sprintf("%s is larger than %d MB.", name, h.MaxUploadSize>>20))
		return
	case errors.Is(err, wizard.ErrSubmissionInFlight), errors.Is(err, wizard.ErrDraftNotFound):
		h.wizardFailed(r, err)
		return
	}
	h.Log.Error("Failed to stage upload", zap.String("file", name), zap.Error(err))
	h.toastError(r, "Upload Failed", "Could not read "+name+". Please try again.")
}

// wizardFailed turns a wizard error into an error toast.
func (h *OrderHandler) wizardFailed(r *http.Request, err error) {
	var (
		verr *wizard.ValidationError
		uerr *wizard.UploadError
		perr *wizard.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		switch verr.Field {
		case "files":
			h.toastError(r, "No Files", verr.Message)
		case "payment":
			h.toastError(r, "Payment Incomplete", verr.Message)
		default:
			h.toastError(r, "Check Your Order", verr.Message)
		}
	case errors.Is(err, wizard.ErrAuthRequired):
		h.toastError(r, "Authentication Required", "Please log in to submit order.")
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		h.toastInfo(r, "Please Wait", "Your order is already being submitted.")
	case errors.Is(err, wizard.ErrDraftNotFound):
		h.toastError(r, "Order Expired", "Your order draft expired. Please start again.")
	case errors.As(err, &uerr) && uerr.Proof:
		h.toastError(r, "Upload Failed", "Error uploading payment screenshot. Please try again.")
	case errors.As(err, &uerr):
		h.toastError(r, "Upload Failed", "Error uploading files. Please try again.")
	case errors.As(err, &perr):
		h.toastError(r, "Database Error", "Failed to save your order. Please try again.")
	default:
		h.Log.Error("Unexpected order error", zap.Error(err))
		h.toastError(r, "Error", "An unexpected error occurred. Please try again.")
	}
}
