package ports

import (
	"context"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

// AuthGateway is the email/password side of the gateway. The session
// manager delegates every credential decision to it.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password string) (*domain.Identity, error)
	SignIn(ctx context.Context, email, password string) (*domain.Identity, error)
	// DeleteIdentity removes an identity whose profile row could not be created.
	DeleteIdentity(ctx context.Context, id string) error
}

// TokenIssuer signs bearer tokens binding an identity to a server session.
type TokenIssuer interface {
	IssueToken(identity *domain.Identity, sessionID string) (string, error)
}
