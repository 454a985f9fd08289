package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/identity"
	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

type AuthHandler struct {
	*Base
	Identity *identity.Manager
}

func (h *AuthHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.FromContext(r.Context()); ok {
		redirect(w, r, "/")
		return
	}
	h.render(w, r, "login.html", nil)
}

func (h *AuthHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	sess, err := h.Identity.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, identity.ErrAuthentication) {
			h.Log.Info("Login failed", zap.String("email", email), zap.Error(err))
			h.toastError(r, "Login Failed", err.Error())
		} else {
			h.Log.Error("Login error", zap.String("email", email), zap.Error(err))
			h.toastError(r, "Login Failed", "Something went wrong. Please try again.")
		}
		redirect(w, r, "/login")
		return
	}

	h.signIn(w, r, sess)
	name := email
	if sess.Profile != nil && sess.Profile.FullName != "" {
		name = sess.Profile.FullName
	}
	h.toastSuccess(r, "Welcome back", "Signed in as "+name+".")
	redirect(w, r, "/")
}

func (h *AuthHandler) SignupGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.FromContext(r.Context()); ok {
		redirect(w, r, "/")
		return
	}
	h.render(w, r, "signup.html", nil)
}

func (h *AuthHandler) SignupPost(w http.ResponseWriter, r *http.Request) {
	req := identity.SignupRequest{
		FullName:           strings.TrimSpace(r.FormValue("fullName")),
		Email:              strings.TrimSpace(r.FormValue("email")),
		Password:           r.FormValue("password"),
		ConfirmPassword:    r.FormValue("confirmPassword"),
		InstitutionalEmail: strings.TrimSpace(r.FormValue("institutionalEmail")),
		College:            strings.TrimSpace(r.FormValue("college")),
		Department:         strings.TrimSpace(r.FormValue("department")),
		ClassName:          strings.TrimSpace(r.FormValue("className")),
		RollNumber:         strings.TrimSpace(r.FormValue("rollNumber")),
		YearOfEnrollment:   strings.TrimSpace(r.FormValue("yearOfEnrollment")),
		YearOfGraduation:   strings.TrimSpace(r.FormValue("yearOfGraduation")),
		Birthday:           strings.TrimSpace(r.FormValue("birthday")),
		PhoneNumber:        strings.TrimSpace(r.FormValue("phoneNumber")),
	}

	sess, err := h.Identity.Signup(r.Context(), req)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr) && verr.Field == "ConfirmPassword":
			h.toastError(r, "Password Mismatch", "Passwords do not match. Please try again.")
		case errors.As(err, &verr):
			h.toastError(r, "Sign Up Failed", verr.Message)
		default:
			h.Log.Info("Signup failed", zap.String("email", req.Email), zap.Error(err))
			h.toastError(r, "Sign Up Failed", err.Error())
		}
		redirect(w, r, "/signup")
		return
	}

	h.signIn(w, r, sess)
	h.toastSuccess(r, "Account Created", "Welcome to PrintEase! Your account has been created successfully.")
	redirect(w, r, "/")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.session(r)
	token, _ := session.Values[keyToken].(string)
	if err := h.Identity.Logout(r.Context(), token); err != nil {
		h.Log.Error("Sign-out failed", zap.Error(err))
	}
	delete(session.Values, keyToken)
	delete(session.Values, keyDraft)
	h.save(w, r, session)
	h.toastSuccess(r, "Logged out", "Logged out successfully!")
	redirect(w, r, "/login")
}

func (h *AuthHandler) ForgotPasswordGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "forgot_password.html", nil)
}

func (h *AuthHandler) ForgotPasswordPost(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if err := h.Identity.RequestPasswordReset(r.Context(), email); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.toastError(r, "Reset Failed", verr.Message)
		} else {
			h.Log.Error("Password reset request failed", zap.Error(err))
			h.toastError(r, "Reset Failed", "Could not send the reset email. Please try again.")
		}
		redirect(w, r, "/forgot-password")
		return
	}
	h.toastSuccess(r, "Reset Email Sent", "Check your email for the password reset link.")
	redirect(w, r, "/forgot-password")
}

func (h *AuthHandler) ResetPasswordGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "reset_password.html", map[string]interface{}{
		"Code": r.URL.Query().Get("code"),
	})
}

func (h *AuthHandler) ResetPasswordPost(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	err := h.Identity.ResetPassword(r.Context(), code, r.FormValue("password"), r.FormValue("confirmPassword"))
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			h.toastError(r, "Reset Failed", verr.Message)
		} else {
			h.Log.Info("Password reset failed", zap.Error(err))
			h.toastError(r, "Reset Failed", err.Error())
		}
		redirect(w, r, "/reset-password?code="+url.QueryEscape(code))
		return
	}
	h.toastSuccess(r, "Password Updated", "You can now log in with your new password.")
	redirect(w, r, "/login")
}

func (h *AuthHandler) ProfileGet(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "profile.html", nil)
}

func (h *AuthHandler) ProfilePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.toastError(r, "Update Failed", "Invalid form data.")
		redirect(w, r, "/profile")
		return
	}

	field := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}
		v := strings.TrimSpace(r.PostForm.Get(name))
		return &v
	}
	update := models.ProfileUpdate{
		FullName:           field("fullName"),
		InstitutionalEmail: field("institutionalEmail"),
		College:            field("college"),
		Department:         field("department"),
		ClassName:          field("className"),
		RollNumber:         field("rollNumber"),
		YearOfEnrollment:   field("yearOfEnrollment"),
		YearOfGraduation:   field("yearOfGraduation"),
		Birthday:           field("birthday"),
		PhoneNumber:        field("phoneNumber"),
	}

	if err := h.Identity.UpdateProfile(r.Context(), identity.PrincipalFromContext(r.Context()), update); err != nil {
		h.Log.Error("Profile update failed", zap.Error(err))
		h.toastError(r, "Update Failed", "Could not save your profile. Please try again.")
		redirect(w, r, "/profile")
		return
	}
	h.toastSuccess(r, "Profile Updated", "Your details have been saved.")
	redirect(w, r, "/profile")
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	session := h.session(r)
	session.Values[keyToken] = sess.Token
	h.save(w, r, session)
	h.Log.Info("Signed in", zap.String("uid", sess.Principal.UID))
}
