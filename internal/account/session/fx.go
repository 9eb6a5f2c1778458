package session

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("account.session",
	fx.Provide(NewManager),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.StopHook(func(context.Context) error {
		m.Close()
		return nil
	}))
}
