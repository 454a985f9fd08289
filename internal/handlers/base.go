package handlers

import (
	"bytes"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/notify"
)

const sessionName = "printease-session"

// Session keys
const (
	keySessionID = "sid"
	keyToken     = "token"
	keyDraft     = "draft"
)

// Base carries what every handler needs to render pages and raise toasts.
type Base struct {
	SessionStore sessions.Store
	Templates    *TemplateCache
	Toasts       *notify.Registry
	Trays        *notify.Trays
	Log          *zap.Logger
}

// session returns the visitor's cookie session. A cookie that fails to decode
// yields a fresh session.
func (b *Base) session(r *http.Request) *sessions.Session {
	session, err := b.SessionStore.Get(r, sessionName)
	if err != nil {
		b.Log.Debug("Discarding unreadable session cookie", zap.Error(err))
	}
	return session
}

func (b *Base) save(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := session.Save(r, w); err != nil {
		b.Log.Error("Failed to save session", zap.Error(err))
	}
}

// audience is the toast routing key of the visitor, set by SessionMiddleware.
func (b *Base) audience(r *http.Request) string {
	sid, _ := b.session(r).Values[keySessionID].(string)
	return sid
}

func (b *Base) toastSuccess(r *http.Request, title, description string) {
	b.Toasts.Success(b.audience(r), title, description)
}

func (b *Base) toastError(r *http.Request, title, description string) {
	b.Toasts.Error(b.audience(r), title, description)
}

func (b *Base) toastInfo(r *http.Request, title, description string) {
	b.Toasts.Show(notify.Toast{Audience: b.audience(r), Title: title, Description: description})
}

func redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// render executes a page with the data every page expects.
func (b *Base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	b.renderStatus(w, r, http.StatusOK, name, data)
}

func (b *Base) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["CsrfField"] = csrf.TemplateField(r)
	data["CsrfToken"] = csrf.Token(r)
	data["Toasts"] = b.Trays.Visible(b.audience(r))
	data["Path"] = r.URL.Path

	sess, ok := identity.FromContext(r.Context())
	data["IsAuthenticated"] = ok
	data["Session"] = sess

	// Render fully before writing so a template error never leaves a
	// half-written page.
	var buf bytes.Buffer
	if err := b.Templates.Render(&buf, name, data); err != nil {
		b.Log.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// RequireAuth sends visitors without a signed-in session to the login page.
func (b *Base) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); !ok {
			b.Log.Debug("Unauthenticated request redirected to login", zap.String("path", r.URL.Path))
			b.toastError(r, "Authentication Required", "Please log in to continue.")
			redirect(w, r, "/login")
			return
		}
		next(w, r)
	}
}

// DismissToast hides one toast early.
func (b *Base) DismissToast(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	b.Trays.Dismiss(b.audience(r), id)
	if r.Header.Get("Accept") == "application/json" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	back := r.FormValue("return")
	if back == "" || back[0] != '/' || (len(back) > 1 && back[1] == '/') {
		back = "/"
	}
	redirect(w, r, back)
}

// SessionMiddleware gives every visitor a session ID and resolves a stored
// identity token into the request context.
func SessionMiddleware(b *Base, ids *identity.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := b.session(r)
			dirty := false
			if sid, _ := session.Values[keySessionID].(string); sid == "" {
				session.Values[keySessionID] = uuid.New().String()
				dirty = true
			}

			if token, _ := session.Values[keyToken].(string); token != "" {
				s, err := ids.Resolve(r.Context(), token)
				if err != nil {
					b.Log.Debug("Dropping stale identity token", zap.Error(err))
					delete(session.Values, keyToken)
					dirty = true
				} else {
					r = r.WithContext(identity.WithSession(r.Context(), s))
				}
			}

			if dirty {
				b.save(w, r, session)
			}
			next.ServeHTTP(w, r)
		})
	}
}
