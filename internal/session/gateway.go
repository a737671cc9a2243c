package session

import (
	"context"

	"github.com/roach88/formsession/internal/document"
)

// Gateway is the durable backend of a session: "write this whole document,
// tell me whether it worked".
//
// Save must treat each call as a full replace of the stored state for
// doc.ID and must be idempotent when retried with an unchanged document.
// Implemented by *store.Store (SQLite) and testutil.RecordingGateway.
type Gateway interface {
	Save(ctx context.Context, doc document.Document) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, doc document.Document) error

// Save calls f.
func (f GatewayFunc) Save(ctx context.Context, doc document.Document) error {
	return f(ctx, doc)
}
