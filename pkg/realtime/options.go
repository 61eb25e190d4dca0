package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"skemino-client/internal/config"
)

// Options configures a Client
type Options struct {
	// URL is the server base URL; http(s) schemes are mapped to ws(s)
	URL           string
	WebsocketPath string

	HeartbeatInterval time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ErrorCoolDown     time.Duration

	Dialer *websocket.Dialer
}

// DefaultOptions returns the options of the default configuration
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// OptionsFromConfig maps the server and realtime sections of the config
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		URL:               cfg.Server.URL,
		WebsocketPath:     cfg.Server.WebsocketPath,
		HeartbeatInterval: time.Duration(cfg.Realtime.HeartbeatSeconds) * time.Second,
		ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
		ReconnectDelay:    time.Duration(cfg.Realtime.ReconnectDelayMillis) * time.Millisecond,
		MaxReconnectDelay: time.Duration(cfg.Realtime.MaxReconnectMillis) * time.Millisecond,
		ErrorCoolDown:     time.Duration(cfg.Realtime.ErrorCoolDownSeconds) * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.WebsocketPath == "" {
		o.WebsocketPath = def.WebsocketPath
	}

	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = def.HeartbeatInterval
	}

	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = def.ReconnectDelay
	}

	if o.MaxReconnectDelay < o.ReconnectDelay {
		o.MaxReconnectDelay = o.ReconnectDelay
	}

	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	}

	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{
			HandshakeTimeout: time.Second * 10,
		}
	}

	return o
}

// newBackOff returns the reconnect schedule: the delay doubles from ReconnectDelay,
// is capped at MaxReconnectDelay and stops after ReconnectAttempts.
func (o Options) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.ReconnectDelay
	b.MaxInterval = o.MaxReconnectDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithMaxRetries(b, uint64(o.ReconnectAttempts))
}
