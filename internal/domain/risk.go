package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Environment is the deployment stage a bot runs in.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// ParseEnvironment maps a config string (including the dev/prod shorthands)
// to an Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return EnvDevelopment, nil
	case "staging", "stage":
		return EnvStaging, nil
	case "production", "prod":
		return EnvProduction, nil
	}
	return "", fmt.Errorf("unknown environment %q", s)
}

// Mode selects whether orders reach the exchange.
type Mode string

const (
	ModeLive  Mode = "live"
	ModePaper Mode = "paper"
)

// RiskReason identifies which risk check denied an intent.
type RiskReason string

const (
	ReasonPositionSizeExceeded   RiskReason = "position_size_exceeded"
	ReasonRiskLimitExceeded      RiskReason = "risk_limit_exceeded"
	ReasonEnvironmentCapExceeded RiskReason = "environment_cap_exceeded"
	ReasonErrorCircuitOpen       RiskReason = "error_circuit_open"
)

// RiskLimits is the per-run snapshot of risk configuration for one bot.
//
// MaxPositionSize caps the absolute net position per instrument after the
// order; RiskLimitValue caps the notional (quantity * price) of a single
// order. They are independent limits.
type RiskLimits struct {
	MaxPositionSize      decimal.Decimal
	RiskLimitValue       decimal.Decimal
	Environment          Environment
	MaxConsecutiveErrors int
	DevQuantityCap       decimal.Decimal
}
