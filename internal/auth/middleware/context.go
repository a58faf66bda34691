package auth

import "context"

type subjectKey struct{}

// WithSubject stores the token subject, which is the id of the caller's
// session or console in the server registry.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
