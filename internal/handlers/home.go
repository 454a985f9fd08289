package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/dashboard"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HomeHandler struct {
	*Base
	Dashboard *dashboard.Service
	DB        Pinger
}

// Index shows the landing page to visitors and an overview to signed-in
// customers.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := identity.FromContext(r.Context())
	if !ok {
		h.render(w, r, "home.html", nil)
		return
	}

	orders, err := h.Dashboard.Load(r.Context(), sess.Principal.Email)
	if err != nil {
		h.toastError(r, "Error", "Could not load your orders.")
	}
	h.render(w, r, "home_user.html", map[string]interface{}{
		"Stats":  dashboard.Summarize(orders),
		"Recent": dashboard.Recent(orders, dashboard.RecentLimit),
	})
}

type faq struct {
	Question string
	Answer   string
}

var faqs = []faq{
	{"How do I place a print order?", "Log in to your account, open New Order, upload your files, fill in your printing details, choose a payment method and place the order."},
	{"What formats are supported for upload?", "We support PDF, DOCX, JPG, and PNG formats. Keep each file under the upload limit for quick uploads."},
	{"How is pricing calculated?", "Pricing is based on the number of pages, print type (black & white or color), binding options, and paper size. You'll see the total cost before confirming your order."},
	{"Can I cancel my order?", "Orders cannot be cancelled once placed as we begin processing immediately to ensure quick turnaround times."},
	{"Can I pay later?", "Yes! Choose the 'Pay at Pickup' option during checkout and pay when you collect your prints."},
	{"How long does it take to process my order?", "Most orders are ready within an hour. Check your dashboard for the current status."},
	{"What if there's an issue with my print quality?", "If you're not satisfied, contact us and we'll reprint your order at no extra cost."},
	{"Can I print confidential documents?", "Yes, tick the 'Confidential' option when placing the order. These documents are handled with extra care and privacy."},
	{"Do you offer bulk printing discounts?", "Pricing is standardized for now."},
	{"How do I track my order status?", "Your dashboard lists every order with its current status."},
}

func (h *HomeHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "about.html", nil)
}

func (h *HomeHandler) FAQ(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "faq.html", map[string]interface{}{"FAQs": faqs})
}

func (h *HomeHandler) PrivacyPolicy(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "privacy_policy.html", nil)
}

func (h *HomeHandler) TermsOfService(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "terms_of_service.html", nil)
}

func (h *HomeHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.Error("Health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
