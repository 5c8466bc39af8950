package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/dhkiller350/cyber-chat/internal/client/session"
	"github.com/dhkiller350/cyber-chat/internal/client/transport"
	pkgconfig "github.com/dhkiller350/cyber-chat/pkg/config"
)

type Config struct {
	Server    ServerConfig
	Session   session.Config
	Transport transport.Config
	Log       LogConfig
}

type ServerConfig struct {
	URL string
}

type LogConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "client")
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.url", "ws://localhost:8088/ws")
	v.SetDefault("transport.dial_timeout", "10s")
	v.SetDefault("transport.reconnect_min", "1s")
	v.SetDefault("transport.reconnect_max", "30s")
	v.SetDefault("session.ping_interval", "5s")
	v.SetDefault("session.typing_debounce", "1s")
	v.SetDefault("session.kick_notice_delay", "3s")
	v.SetDefault("session.ban_notice_delay", "5s")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")

	v.BindEnv("server.url", "CYBERCHAT_URL")
	v.BindEnv("log.level", "CYBERCHAT_LOG_LEVEL")
	v.BindEnv("log.file", "CYBERCHAT_LOG_FILE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Transport.URL = v.GetString("server.url")
	cfg.Transport.DialTimeout = parseDuration(v, "transport.dial_timeout", 10*time.Second)
	cfg.Transport.ReconnectMin = parseDuration(v, "transport.reconnect_min", time.Second)
	cfg.Transport.ReconnectMax = parseDuration(v, "transport.reconnect_max", 30*time.Second)
	cfg.Session.PingInterval = parseDuration(v, "session.ping_interval", 5*time.Second)
	cfg.Session.TypingDebounce = parseDuration(v, "session.typing_debounce", time.Second)
	cfg.Session.KickNoticeDelay = parseDuration(v, "session.kick_notice_delay", 3*time.Second)
	cfg.Session.BanNoticeDelay = parseDuration(v, "session.ban_notice_delay", 5*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
