package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FiscalDefaults seeds a professional's settings until they save their own profile.
type FiscalDefaults struct {
	Regime         string
	EnpapPercent   string
	EnpapToPatient bool
	DueDays        int
	InvoicePrefix  string
}

func DefaultFiscalDefaults() FiscalDefaults {
	return FiscalDefaults{
		Regime:         "RF19",
		EnpapPercent:   "2.00",
		EnpapToPatient: true,
		DueDays:        30,
		InvoicePrefix:  "",
	}
}

// EnpapPercentDecimal parses EnpapPercent. Validated snapshots never fail.
func (f FiscalDefaults) EnpapPercentDecimal() decimal.Decimal {
	pct, err := decimal.NewFromString(f.EnpapPercent)
	if err != nil {
		return decimal.Zero
	}
	return pct
}

type FiscalDefaultsHolder struct {
	current atomic.Value // holds FiscalDefaults
}

// NewStaticFiscalDefaultsHolder returns a holder that never reloads.
func NewStaticFiscalDefaultsHolder(defaults FiscalDefaults) *FiscalDefaultsHolder {
	holder := &FiscalDefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func NewFiscalDefaultsHolder(cfg Config, log *zap.Logger) (*FiscalDefaultsHolder, error) {
	log = log.Named("config.fiscal")
	v := viper.New()

	if cfg.FiscalConfigPath != "" {
		v.SetConfigFile(cfg.FiscalConfigPath)
	} else {
		v.SetConfigName("fiscal")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/parcella")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PARCELLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFiscalDefaults()
	v.SetDefault("fiscal.regime", defaults.Regime)
	v.SetDefault("fiscal.enpapPercent", defaults.EnpapPercent)
	v.SetDefault("fiscal.enpapToPatient", defaults.EnpapToPatient)
	v.SetDefault("fiscal.dueDays", defaults.DueDays)
	v.SetDefault("fiscal.invoicePrefix", defaults.InvoicePrefix)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	current := readFiscalDefaults(v)
	if err := ValidateFiscalDefaults(current); err != nil {
		return nil, err
	}

	holder := NewStaticFiscalDefaultsHolder(current)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readFiscalDefaults(v)
		if err := ValidateFiscalDefaults(updated); err != nil {
			log.Warn("invalid fiscal defaults ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("fiscal defaults reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// readFiscalDefaults reads key by key so defaults apply to keys missing from the file.
func readFiscalDefaults(v *viper.Viper) FiscalDefaults {
	return FiscalDefaults{
		Regime:         strings.TrimSpace(v.GetString("fiscal.regime")),
		EnpapPercent:   strings.TrimSpace(v.GetString("fiscal.enpapPercent")),
		EnpapToPatient: v.GetBool("fiscal.enpapToPatient"),
		DueDays:        v.GetInt("fiscal.dueDays"),
		InvoicePrefix:  strings.TrimSpace(v.GetString("fiscal.invoicePrefix")),
	}
}

func (h *FiscalDefaultsHolder) Get() FiscalDefaults {
	return h.current.Load().(FiscalDefaults)
}

// ValidateFiscalDefaults rejects snapshots the calculator would refuse.
func ValidateFiscalDefaults(f FiscalDefaults) error {
	switch strings.ToUpper(strings.TrimSpace(f.Regime)) {
	case "RF01", "RF19":
	default:
		return fmt.Errorf("fiscal.regime %q is not supported", f.Regime)
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(f.EnpapPercent))
	if err != nil {
		return fmt.Errorf("fiscal.enpapPercent: %w", err)
	}
	if pct.IsNegative() {
		return errors.New("fiscal.enpapPercent must not be negative")
	}
	if f.DueDays < 0 {
		return errors.New("fiscal.dueDays must not be negative")
	}
	return nil
}
