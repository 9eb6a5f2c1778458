package domain

import "context"

//go:generate mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks

// Gateway authenticates principals. Every error it returns is a *ProviderError.
type Gateway interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	CreateUserWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignInWithRedirect(ctx context.Context, provider Provider, redirectURI string) (*Redirect, error)
	CompleteRedirect(ctx context.Context, provider Provider, req CallbackRequest) (*Identity, error)
	SignOut(ctx context.Context, uid string) error
}
