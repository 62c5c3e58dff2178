package config

import "maps"

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	// Exchange
	redact(&out.Exchange.APIKey)
	redact(&out.Exchange.APISecret)

	// Wallet
	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)

	// Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	redact(&out.Redis.URL)
	redact(&out.Redis.Password)

	// S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	redact(&out.Notify.SlackWebhookURL)
	redact(&out.Notify.DiscordWebhookURL)
	redact(&out.Notify.TelegramToken)

	// Server
	redact(&out.Server.APIKey)

	// Profiles are deep-copied; the redacted value shares no slices or
	// maps with cfg.
	if cfg.Profiles != nil {
		out.Profiles = make([]ProfileConfig, len(cfg.Profiles))
		for i, p := range cfg.Profiles {
			p.Symbols = append([]string(nil), p.Symbols...)
			p.Params = maps.Clone(p.Params)
			out.Profiles[i] = p
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
