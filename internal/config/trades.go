package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Trade is one entry of the trade catalog offered to trader accounts.
type Trade struct {
	Code  string `mapstructure:"code"`
	Label string `mapstructure:"label"`
}

type TradeCatalog struct {
	Trades []Trade `mapstructure:"trades"`
}

func DefaultTradeCatalog() TradeCatalog {
	return TradeCatalog{
		Trades: []Trade{
			{Code: "builder", Label: "Builder"},
			{Code: "carpenter", Label: "Carpenter"},
			{Code: "electrician", Label: "Electrician"},
			{Code: "gardener", Label: "Gardener"},
			{Code: "painter", Label: "Painter & Decorator"},
			{Code: "plasterer", Label: "Plasterer"},
			{Code: "plumber", Label: "Plumber"},
			{Code: "roofer", Label: "Roofer"},
		},
	}
}

// Contains reports whether code names a trade in the catalog.
func (c TradeCatalog) Contains(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, t := range c.Trades {
		if strings.ToLower(t.Code) == code {
			return true
		}
	}
	return false
}

type TradeCatalogHolder struct {
	current atomic.Value // holds TradeCatalog
}

// NewStaticTradeCatalogHolder returns a holder that never reloads.
func NewStaticTradeCatalogHolder(catalog TradeCatalog) *TradeCatalogHolder {
	holder := &TradeCatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func NewTradeCatalogHolder(cfg Config, log *zap.Logger) (*TradeCatalogHolder, error) {
	log = log.Named("config.trades")
	v := viper.New()

	if cfg.TradesConfigPath != "" {
		v.SetConfigFile(filepath.Clean(cfg.TradesConfigPath))
	} else {
		v.SetConfigName("trades")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/tradesmap")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TRADESMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
		v.SetDefault("catalog.trades", DefaultTradeCatalog().Trades)
	}

	var catalog TradeCatalog
	if err := v.UnmarshalKey("catalog", &catalog); err != nil {
		return nil, err
	}
	if err := validateTradeCatalog(catalog); err != nil {
		return nil, err
	}

	holder := NewStaticTradeCatalogHolder(catalog)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TradeCatalog
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Warn("trade catalog reload failed", zap.Error(err))
			return
		}
		if err := validateTradeCatalog(updated); err != nil {
			log.Warn("invalid trade catalog ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("trade catalog reloaded", zap.String("file", e.Name), zap.Int("trades", len(updated.Trades)))
	})

	return holder, nil
}

func (h *TradeCatalogHolder) Get() TradeCatalog {
	return h.current.Load().(TradeCatalog)
}

func validateTradeCatalog(catalog TradeCatalog) error {
	if len(catalog.Trades) == 0 {
		return errors.New("catalog.trades cannot be empty")
	}
	seen := make(map[string]struct{}, len(catalog.Trades))
	for _, t := range catalog.Trades {
		code := strings.ToLower(strings.TrimSpace(t.Code))
		if code == "" {
			return errors.New("catalog.trades code cannot be empty")
		}
		if _, ok := seen[code]; ok {
			return errors.New("catalog.trades code must be unique: " + code)
		}
		seen[code] = struct{}{}
	}
	return nil
}
