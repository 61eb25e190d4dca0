package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
	"skemino-client/internal/util"
)

// DemoUser is a registered account on the demo backend
type DemoUser struct {
	Email        string `yaml:"email"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"passwordHash"`
	Rating       int    `yaml:"rating"`
}

// Config provides configuration for the Skèmino client and the demo backend
type Config struct {
	loaded bool

	Server struct {
		URL           string `yaml:"url" envconfig:"url"`
		WebsocketPath string `yaml:"websocketPath" envconfig:"websocket_path"`
		GuestPath     string `yaml:"guestPath" envconfig:"guest_path"`
		LoginPath     string `yaml:"loginPath" envconfig:"login_path"`
	} `yaml:"server"`

	Credentials struct {
		// File is where a remembered token is stored
		File string `yaml:"file" envconfig:"file"`
	} `yaml:"credentials"`

	Realtime struct {
		HeartbeatSeconds     int `yaml:"heartbeatSeconds" envconfig:"heartbeat_seconds"`
		ReconnectAttempts    int `yaml:"reconnectAttempts" envconfig:"reconnect_attempts"`
		ReconnectDelayMillis int `yaml:"reconnectDelayMillis" envconfig:"reconnect_delay_millis"`
		MaxReconnectMillis   int `yaml:"maxReconnectMillis" envconfig:"max_reconnect_millis"`
		ErrorCoolDownSeconds int `yaml:"errorCoolDownSeconds" envconfig:"error_cool_down_seconds"`
	} `yaml:"realtime"`

	Log struct {
		Level             string `yaml:"level" envconfig:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" envconfig:"disable_access_logs"`
	} `yaml:"log"`

	Demo struct {
		Addr            string     `yaml:"addr" envconfig:"addr"`
		JWTSecret       string     `yaml:"jwtSecret" envconfig:"jwt_secret"`
		HandSize        int        `yaml:"handSize" envconfig:"hand_size"`
		ClockSeconds    int        `yaml:"clockSeconds" envconfig:"clock_seconds"`
		DealDelayMillis int        `yaml:"dealDelayMillis" envconfig:"deal_delay_millis"`
		RecaptchaSecret string     `yaml:"recaptchaSecret" envconfig:"recaptcha_secret"`
		Users           []DemoUser `yaml:"users" ignored:"true"`
	} `yaml:"demo"`
}

var config Config

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	var cfg Config
	cfg.Server.URL = "http://localhost:5000"
	cfg.Server.WebsocketPath = "/ws"
	cfg.Server.GuestPath = "/auth/guest"
	cfg.Server.LoginPath = "/auth/login"
	cfg.Credentials.File = ".skemino-token"
	cfg.Realtime.HeartbeatSeconds = 5
	cfg.Realtime.ReconnectAttempts = 5
	cfg.Realtime.ReconnectDelayMillis = 1000
	cfg.Realtime.MaxReconnectMillis = 5000
	cfg.Realtime.ErrorCoolDownSeconds = 10
	cfg.Log.Level = "info"
	cfg.Demo.Addr = ":5000"
	cfg.Demo.JWTSecret = "change-me"
	cfg.Demo.HandSize = 5
	cfg.Demo.ClockSeconds = 600
	cfg.Demo.DealDelayMillis = 150

	return cfg
}

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration
// A missing config file is not an error, the defaults are used instead
func Load() error {
	cfg := DefaultConfig()

	configFile := util.Getenv("SKEMINO_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	} else {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return err
		}
	}

	if err := envconfig.Process("skemino", &cfg); err != nil {
		return err
	}

	cfg.loaded = true
	config = cfg
	return nil
}
