package bot

import (
	"time"

	"github.com/alanyoungcy/orderbot/internal/domain"
	"github.com/alanyoungcy/orderbot/internal/strategy"
)

const (
	DefaultInterval   = time.Second
	DefaultCooldown   = 5 * time.Second
	DefaultStatsEvery = 60
	DefaultLeaseTTL   = 30 * time.Second
)

// Profile parametrises one Loop: what it trades, under which limits and
// with which policy.
type Profile struct {
	Name        string
	Environment domain.Environment
	Mode        domain.Mode
	IsMainnet   bool
	Limits      domain.RiskLimits
	Symbols     []string
	Policy      strategy.Policy

	Interval time.Duration
	Cooldown time.Duration
	// StatsEvery is the loop period of the development stats log line.
	StatsEvery int64
	LeaseTTL   time.Duration

	HasPrivateKey bool
	HasAPIKey     bool
}

func (p Profile) withDefaults() Profile {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.Cooldown <= 0 {
		p.Cooldown = DefaultCooldown
	}
	if p.StatsEvery <= 0 {
		p.StatsEvery = DefaultStatsEvery
	}
	if p.LeaseTTL <= 0 {
		p.LeaseTTL = DefaultLeaseTTL
	}
	if p.Policy == nil {
		p.Policy = strategy.Noop{}
	}
	if p.Mode == "" {
		p.Mode = domain.ModeLive
	}
	return p
}

// initialChecks returns a warning for every suspicious combination of
// credentials, environment, network and paper trading. None of them block
// startup.
func initialChecks(p Profile) []string {
	var warnings []string
	if p.Mode == domain.ModeLive && !p.HasPrivateKey {
		warnings = append(warnings, "private key missing while paper trading is disabled; live orders will fail")
	}
	if p.Environment == domain.EnvProduction && !p.HasAPIKey {
		warnings = append(warnings, "API key missing in production")
	}
	if p.Environment == domain.EnvProduction && p.Mode == domain.ModePaper {
		warnings = append(warnings, "paper trading enabled in production")
	}
	if p.Environment == domain.EnvDevelopment && p.IsMainnet {
		warnings = append(warnings, "mainnet enabled in development")
	}
	if p.Environment == domain.EnvProduction && !p.IsMainnet {
		warnings = append(warnings, "production is pointed at testnet")
	}
	return warnings
}
