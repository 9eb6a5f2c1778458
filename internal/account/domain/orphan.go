package domain

import (
	"context"
	"time"

	iddomain "github.com/smallbiznis/tradesmap/internal/identity/domain"
)

// Orphan is an identity created without a profile because the sync pipeline
// failed after sign-up.
type Orphan struct {
	Identity iddomain.Identity
	Stage    string
	Reason   string
	At       time.Time
}

// OrphanRepository reads accounts that have no profile row. It survives restarts,
// unlike the failure details the service keeps in memory.
type OrphanRepository interface {
	ListOrphans(ctx context.Context, limit int) ([]Orphan, error)
	FindOrphan(ctx context.Context, uid string) (*Orphan, error)
}
