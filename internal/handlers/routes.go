package handlers

import (
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
)

// Router groups the handlers NewRouter mounts.
type Router struct {
	Base      *Base
	Auth      *AuthHandler
	Home      *HomeHandler
	Dashboard *DashboardHandler
	Orders    *OrderHandler
	Limiter   *RateLimiter
	Static    fs.FS  // contents of /static/
	UploadDir string // served under /uploads/ when non-empty
}

// NewRouter wires every route. The order wizard is open to visitors; only the
// final submission needs a signed-in customer.
func NewRouter(rt Router) *mux.Router {
	r := mux.NewRouter()
	limit := func(h http.HandlerFunc) http.HandlerFunc {
		if rt.Limiter == nil {
			return h
		}
		return rt.Limiter.Middleware(h)
	}
	auth := rt.Base.RequireAuth

	r.HandleFunc("/", rt.Home.Index).Methods(http.MethodGet)
	r.HandleFunc("/about", rt.Home.About).Methods(http.MethodGet)
	r.HandleFunc("/faq", rt.Home.FAQ).Methods(http.MethodGet)
	r.HandleFunc("/privacy-policy", rt.Home.PrivacyPolicy).Methods(http.MethodGet)
	r.HandleFunc("/terms-of-service", rt.Home.TermsOfService).Methods(http.MethodGet)
	r.HandleFunc("/healthz", rt.Home.Healthz).Methods(http.MethodGet)

	r.HandleFunc("/login", rt.Auth.LoginGet).Methods(http.MethodGet)
	r.HandleFunc("/login", limit(rt.Auth.LoginPost)).Methods(http.MethodPost)
	r.HandleFunc("/signup", rt.Auth.SignupGet).Methods(http.MethodGet)
	r.HandleFunc("/signup", limit(rt.Auth.SignupPost)).Methods(http.MethodPost)
	r.HandleFunc("/logout", rt.Auth.Logout).Methods(http.MethodPost)
	r.HandleFunc("/forgot-password", rt.Auth.ForgotPasswordGet).Methods(http.MethodGet)
	r.HandleFunc("/forgot-password", limit(rt.Auth.ForgotPasswordPost)).Methods(http.MethodPost)
	r.HandleFunc("/reset-password", rt.Auth.ResetPasswordGet).Methods(http.MethodGet)
	r.HandleFunc("/reset-password", limit(rt.Auth.ResetPasswordPost)).Methods(http.MethodPost)

	r.HandleFunc("/dashboard", auth(rt.Dashboard.Dashboard)).Methods(http.MethodGet)
	r.HandleFunc("/profile", auth(rt.Auth.ProfileGet)).Methods(http.MethodGet)
	r.HandleFunc("/profile", auth(rt.Auth.ProfilePost)).Methods(http.MethodPost)

	r.HandleFunc("/order", rt.Orders.OrderForm).Methods(http.MethodGet)
	r.HandleFunc("/order/quote", rt.Orders.Quote).Methods(http.MethodGet)
	r.HandleFunc("/order/files", rt.Orders.AddFiles).Methods(http.MethodPost)
	r.HandleFunc("/order/files/remove", rt.Orders.RemoveFile).Methods(http.MethodPost)
	r.HandleFunc("/order/next", rt.Orders.Next).Methods(http.MethodPost)
	r.HandleFunc("/order/back", rt.Orders.Back).Methods(http.MethodPost)
	r.HandleFunc("/order/reset", rt.Orders.Reset).Methods(http.MethodPost)

	r.HandleFunc("/toasts/dismiss", rt.Base.DismissToast).Methods(http.MethodPost)

	if rt.Static != nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(filesOnly{http.FS(rt.Static)})))
	}
	if rt.UploadDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(filesOnly{http.Dir(rt.UploadDir)})))
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rt.Base.renderStatus(w, req, http.StatusNotFound, "not_found.html", nil)
	})
	return r
}

// filesOnly hides directories so the file server never lists them.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
