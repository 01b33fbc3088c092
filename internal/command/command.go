package command

import (
	"context"
)

// Replier sends a text response to the channel a command was invoked from
type Replier interface {
	Reply(ctx context.Context, content string) error
}

// Invocation describes who invoked a command and where
type Invocation struct {
	AuthorID   string
	AuthorName string
	ChannelID  string
	MessageID  string
	Replier    Replier
}

// Reply responds in the invoking channel
func (inv *Invocation) Reply(ctx context.Context, content string) error {
	return inv.Replier.Reply(ctx, content)
}

// Handler runs a command with the raw argument text that followed its name
type Handler interface {
	Invoke(ctx context.Context, inv *Invocation, args string) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, inv *Invocation, args string) error

// Invoke calls f(ctx, inv, args)
func (f HandlerFunc) Invoke(ctx context.Context, inv *Invocation, args string) error {
	return f(ctx, inv, args)
}

// Command is a named handler
type Command struct {
	Name        string
	Description string
	Handler     Handler
}

// NotAuthorizedMessage is the reply sent when a restricted command is refused
const NotAuthorizedMessage = "Not authorized"

type ownerOnly struct {
	ownerID string
	inner   Handler
}

// OwnerOnly restricts h to the configured owner. Anyone else gets a rejection
// reply and h is not invoked. An empty ownerID rejects everyone.
func OwnerOnly(ownerID string, h Handler) Handler {
	return &ownerOnly{ownerID: ownerID, inner: h}
}

// Authorized reports whether the invocation comes from the owner
func (o *ownerOnly) Authorized(inv *Invocation) bool {
	return o.ownerID != "" && inv.AuthorID == o.ownerID
}

func (o *ownerOnly) Invoke(ctx context.Context, inv *Invocation, args string) error {
	if !o.Authorized(inv) {
		return inv.Reply(ctx, NotAuthorizedMessage)
	}
	return o.inner.Invoke(ctx, inv, args)
}
