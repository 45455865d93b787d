// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Brainbase Contributors

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/brainbase-dev/brainbase/internal/policy"
	bberr "github.com/brainbase-dev/brainbase/pkg/errors"
)

// Caller identity headers, trusted only behind an authenticating proxy
// and only when explicitly enabled in configuration.
const (
	HeaderRole      = "x-brainbase-role"
	HeaderProjects  = "x-brainbase-projects"
	HeaderClearance = "x-brainbase-clearance"
)

// AccessProvider derives the caller's access context from a request.
// Swapping the provider is how deployments change their trust boundary
// without touching handlers.
type AccessProvider interface {
	Access(r *http.Request) (policy.AccessContext, error)
}

// HeaderAccessProvider reads the caller identity from request headers.
// It must sit behind a proxy that strips and re-issues these headers;
// the configuration flag guarding it exists so a bare deployment cannot
// be talked into trusting client-supplied identity.
type HeaderAccessProvider struct{}

func (HeaderAccessProvider) Access(r *http.Request) (policy.AccessContext, error) {
	role := policy.NormalizeRole(r.Header.Get(HeaderRole))
	if role == "" {
		return policy.AccessContext{}, bberr.New(bberr.CodeAuthUnauthenticated, "authentication required")
	}
	return policy.AccessContext{
		Role:         role,
		ProjectCodes: splitCSV(r.Header.Get(HeaderProjects)),
		Clearance:    normalizeCSV(r.Header.Get(HeaderClearance)),
	}, nil
}

// DenyAllAccessProvider rejects every request. It is the default when
// insecure headers are disabled and no other provider is wired.
type DenyAllAccessProvider struct{}

func (DenyAllAccessProvider) Access(*http.Request) (policy.AccessContext, error) {
	return policy.AccessContext{}, bberr.New(bberr.CodeAuthUnauthenticated, "authentication required")
}

type accessContextKey struct{}

// accessFrom returns the access context injected by the middleware.
func accessFrom(ctx context.Context) policy.AccessContext {
	access, _ := ctx.Value(accessContextKey{}).(policy.AccessContext)
	return access
}

// accessMiddleware resolves the caller identity once per request and
// injects it into the request context. Requests the provider rejects
// never reach a handler.
func (s *Server) accessMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || isGoneRead(r) {
			next.ServeHTTP(w, r)
			return
		}

		access, err := s.access.Access(r)
		if err != nil {
			writeErrorJSON(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accessContextKey{}, access)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isGoneRead matches the removed legacy reads, which answer 410 to any
// caller; asking for identity first would hide the real status.
func isGoneRead(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	switch r.URL.Path {
	case "/decisions", "/raci", "/events":
		return true
	}
	return false
}

func writeErrorJSON(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(bberr.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeCSV(raw string) []string {
	values := splitCSV(raw)
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
