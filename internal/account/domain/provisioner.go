package domain

import "context"

//go:generate mockgen -source=provisioner.go -destination=../mocks/mock_provisioner.go -package=mocks

// CompanyProvisioner creates the company linked to a trader profile.
type CompanyProvisioner interface {
	CreateCompany(ctx context.Context, form Form, draft Draft) error
}
