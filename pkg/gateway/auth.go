package gateway

import (
	"context"
	"fmt"
	"net"
)

// Authorizer decides whether a remote address may open a session.
type Authorizer interface {
	Allow(ctx context.Context, remoteAddr string) error
}

// NewAuthorizer returns an allowlist over hosts, or an authorizer that admits
// everyone when hosts is empty.
func NewAuthorizer(hosts []string) Authorizer {
	if len(hosts) == 0 {
		return NoopAuthorizer{}
	}
	return AllowlistAuthorizer{Allowed: hosts}
}

type NoopAuthorizer struct{}

func (NoopAuthorizer) Allow(context.Context, string) error { return nil }

// AllowlistAuthorizer admits remote addresses whose host, or full host:port,
// is listed.
type AllowlistAuthorizer struct {
	Allowed []string
}

func (a AllowlistAuthorizer) Allow(_ context.Context, remoteAddr string) error {
	if len(a.Allowed) == 0 {
		return nil
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	for _, addr := range a.Allowed {
		if addr == remoteAddr || addr == host {
			return nil
		}
	}
	return fmt.Errorf("remote address not allowed: %s", remoteAddr)
}
