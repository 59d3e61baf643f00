package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/jazzyauth/internal/flagx"
	"github.com/dmitrijs2005/jazzyauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Interval fields
// use timex.Duration so both "30m" and integer nanoseconds are accepted.
// Zero values are treated as "not set" and do not override the defaults.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	GRPCAddr        string         `json:"grpc_addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	SecretKey       string         `json:"secret_key"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl"`
	OTPTTL          timex.Duration `json:"otp_ttl"`
	ResetTokenTTL   timex.Duration `json:"reset_token_ttl"`
	ExposeCodes     *bool          `json:"expose_codes"`
	RedisAddr       string         `json:"redis_addr"`
	LockTTL         timex.Duration `json:"lock_ttl"`
	SMTPHost        string         `json:"smtp_host"`
	SMTPPort        int            `json:"smtp_port"`
	SMTPUsername    string         `json:"smtp_username"`
	SMTPPassword    string         `json:"smtp_password"`
	SMTPFrom        string         `json:"smtp_from"`
	NotifyQueueSize int            `json:"notify_queue_size"`
	ReaperInterval  timex.Duration `json:"reaper_interval"`
	OTelEndpoint    string         `json:"otel_endpoint"`
	LogLevel        string         `json:"log_level"`
}

// parseJson loads configuration values from the file named by -c/-config
// (or JAZZYAUTH_CONFIG). When neither is given nothing is loaded.
func parseJson(config *Config) error {
	path := flagx.ConfigPath()
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.OTelEndpoint, c.OTelEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenTTL.Duration > 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration > 0 {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.OTPTTL.Duration > 0 {
		config.OTPTTL = c.OTPTTL.Duration
	}
	if c.ResetTokenTTL.Duration > 0 {
		config.ResetTokenTTL = c.ResetTokenTTL.Duration
	}
	if c.LockTTL.Duration > 0 {
		config.LockTTL = c.LockTTL.Duration
	}
	if c.ReaperInterval.Duration > 0 {
		config.ReaperInterval = c.ReaperInterval.Duration
	}
	if c.SMTPPort > 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.NotifyQueueSize > 0 {
		config.NotifyQueueSize = c.NotifyQueueSize
	}
	if c.ExposeCodes != nil {
		config.ExposeCodes = *c.ExposeCodes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
