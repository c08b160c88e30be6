// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	sweepOnce            = pflag.Bool("sweep", false, "Runs the sweeper once and exits")
	validLogLevels       = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers         = []string{"sqlite", "postgres"}
	validTransports      = []string{"smtp", "amqp"}
	requiredMailSettings = map[string][]string{
		"smtp": {"mail.host", "mail.port", "mail.sender_address"},
		"amqp": {"mail.amqp_url"},
	}
)

// SweepOnly reports whether the process should run one sweep and exit
func SweepOnly() bool {
	return *sweepOnce
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:5173"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("jwt.ttl", "720h")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "filehub.db")

	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.presign_ttl", "15m")
	v.SetDefault("storage.path_style", false)

	v.SetDefault("upload.max_size", 50)
	v.SetDefault("upload.allowed_types", []string{})

	v.SetDefault("quota.max_storage", 1024)

	v.SetDefault("mail.transport", "smtp")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.workers", 4)
	v.SetDefault("mail.timeout", "30s")

	v.SetDefault("invite.ttl", "0s")
	v.SetDefault("invite.retention", "720h")

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.rate_burst", 20)
	v.SetDefault("security.argon.memory", 64*1024)
	v.SetDefault("security.argon.iterations", 3)
	v.SetDefault("security.argon.parallelism", 2)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("sweep.interval", "1h")
	v.SetDefault("sweep.grace", "24h")

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		fmt.Println("[WARNING]: No config.toml found, using defaults and environment variables")
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetDuration("jwt.ttl") <= 0 {
		return errors.New("jwt.ttl must be a positive duration")
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	for _, key := range []string{"storage.access_key_id", "storage.secret_access_key", "storage.bucket"} {
		if v.GetString(key) == "" {
			return fmt.Errorf("%s can't be empty", key)
		}
	}

	if v.GetDuration("storage.presign_ttl") <= 0 {
		return errors.New("storage.presign_ttl must be a positive duration")
	}

	if v.GetInt64("upload.max_size") <= 0 {
		return errors.New("max upload size must be bigger than 0")
	}

	if v.GetInt64("quota.max_storage") < 0 {
		return errors.New("quota.max_storage can't be negative")
	}

	// Memory is in KiB and argon2 needs at least 8 KiB per lane
	parallelism := v.GetInt("security.argon.parallelism")
	if parallelism < 1 || parallelism > 255 {
		return errors.New("security.argon.parallelism must be between 1 and 255")
	}

	if v.GetInt("security.argon.iterations") < 1 {
		return errors.New("security.argon.iterations must be at least 1")
	}

	if v.GetInt("security.argon.memory") < 8*parallelism {
		return errors.New("security.argon.memory is too low for the configured parallelism")
	}

	transport := v.GetString("mail.transport")
	if !slices.Contains(validTransports, transport) {
		return errors.New("invalid mail transport provided")
	}

	for _, key := range requiredMailSettings[transport] {
		if v.GetString(key) == "" {
			return fmt.Errorf("%s is required for the %s mail transport", key, transport)
		}
	}

	if v.GetString("invite.base_url") == "" {
		v.Set("invite.base_url", defaultBaseURL())
	}

	if v.GetString("vapi.secret") == "" {
		fmt.Println("[WARNING]: vapi.secret is not set. The voice assistant endpoint is disabled")
	}

	if v.GetString("admin.secret") == "" {
		fmt.Println("[WARNING]: admin.secret is not set. Admin accounts can't be created")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Some public endpoints won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	// Sizes are configured in MiB
	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	v.Set("quota.max_storage", v.GetInt64("quota.max_storage")<<20)
	return nil
}

func defaultBaseURL() string {
	scheme := "http"
	if v.GetBool("host.ssl.enabled") {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, v.GetString("host.domain"))
}
