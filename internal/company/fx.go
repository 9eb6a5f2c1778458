package company

import (
	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/tradesmap/internal/account/domain"
	"github.com/smallbiznis/tradesmap/internal/clock"
	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/smallbiznis/tradesmap/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("company.service",
	fx.Provide(newProvisioner),
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	GenID   *snowflake.Node
	Trades  *config.TradeCatalogHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

func newProvisioner(p Params) accountdomain.CompanyProvisioner {
	if !p.Config.ProvisioningEnabled() {
		p.Log.Info("company provisioning disabled")
		return NewNoopProvisioner()
	}

	return NewDatabaseProvisioner(p.DB, p.GenID, p.Trades, p.Clock, p.Metrics, p.Log)
}
