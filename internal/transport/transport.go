// Package transport defines the message contract the health scheduler speaks
// to reach a bridge, modelled as a small Go interface rather than a concrete
// stanza-over-XMPP implementation (SPEC_FULL.md §6). This lets the scheduler
// be driven in tests by a fake that never opens a socket.
package transport

import (
	"context"

	"github.com/google/uuid"
)

// ReplyKind distinguishes a successful stanza reply from an error one.
type ReplyKind int

const (
	// ReplyResult marks a successful, well-formed reply.
	ReplyResult ReplyKind = iota
	// ReplyError marks an error reply; Condition carries the error kind.
	ReplyError
)

// Error condition strings a Reply may carry, mirroring the vocabulary an
// XMPP <error/> stanza would use (SPEC_FULL.md §4.3, §7).
const (
	ConditionInternalServerError = "internal_server_error"
	ConditionServiceUnavailable  = "service_unavailable"
)

// Stanza is the payload sent to a bridge. The health scheduler only ever
// sends a health-check request, but the interface is shaped generically so a
// future caller isn't boxed in.
type Stanza struct {
	// ID correlates a Stanza to its Reply the way an XMPP IQ's id attribute
	// does. NewStanza fills this in with a fresh UUID; a zero-value Stanza
	// literal leaves it empty.
	ID string
	// Kind identifies the request type, e.g. "health-check".
	Kind string
}

// NewStanza builds a Stanza of the given kind, tagged with a fresh
// correlation ID.
func NewStanza(kind string) Stanza {
	return Stanza{ID: uuid.NewString(), Kind: kind}
}

// Reply is what comes back from a bridge, or what the caller synthesizes on
// failure.
type Reply struct {
	Kind      ReplyKind
	Condition string // populated when Kind == ReplyError
}

// Requester is the transport contract a caller depends on to reach a bridge.
// Implementations own the underlying connection (XMPP component connection,
// in a full focus deployment); this package only describes the shape.
type Requester interface {
	// Request sends req addressed to target and blocks for a reply or the
	// context's deadline, whichever comes first. A context deadline expiry
	// surfaces as ctx.Err(), not as a Reply — callers distinguish "no
	// answer in time" from "answered with an error" this way.
	Request(ctx context.Context, target string, req Stanza) (Reply, error)

	// Connected reports whether the underlying channel is currently up.
	// A probe should be skipped entirely while this is false rather than
	// counted as a failed health check.
	Connected() bool
}

// HealthCheckKind identifies the stanza the health scheduler sends. Callers
// build a fresh stanza per probe with NewStanza(HealthCheckKind) so each
// attempt gets its own correlation ID.
const HealthCheckKind = "health-check"
