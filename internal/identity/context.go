package identity

import "context"

type sessionKey struct{}

// WithSession stores the signed-in session in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// PrincipalFromContext returns the signed-in principal or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	s, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	p := s.Principal
	return &p
}
