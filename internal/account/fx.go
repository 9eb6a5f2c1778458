package account

import (
	"github.com/smallbiznis/tradesmap/internal/account/repository"
	"github.com/smallbiznis/tradesmap/internal/account/service"
	"github.com/smallbiznis/tradesmap/internal/account/session"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	session.Module,
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
