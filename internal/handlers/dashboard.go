package handlers

import (
	"net/http"
	"time"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/dashboard"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

type DashboardHandler struct {
	*Base
	Service  *dashboard.Service
	Location *time.Location
}

// Dashboard shows the overview tab (statistics and recent orders) or the
// orders tab (filterable list).
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := identity.FromContext(r.Context())

	orders, err := h.Service.Load(r.Context(), sess.Principal.Email)
	if err != nil {
		h.toastError(r, "Error", "Could not load your orders.")
	}

	q := r.URL.Query()
	tab := q.Get("tab")
	if tab != "orders" {
		tab = "overview"
	}

	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	criteria, err := dashboard.ParseCriteria(q.Get("from"), q.Get("to"), q.Get("status"), loc)
	if err != nil {
		h.toastError(r, "Invalid Filter", "Dates must look like 2024-01-31.")
		criteria = dashboard.Criteria{Status: q.Get("status")}
	}

	h.render(w, r, "dashboard.html", map[string]interface{}{
		"Tab":      tab,
		"Stats":    dashboard.Summarize(orders),
		"Recent":   dashboard.Recent(orders, dashboard.RecentLimit),
		"Filtered": dashboard.Filter(orders, criteria),
		"From":     q.Get("from"),
		"To":       q.Get("to"),
		"Status":   criteria.Status,
		"Statuses": []string{models.StatusPending, models.StatusProcessing, models.StatusCompleted},
	})
}
