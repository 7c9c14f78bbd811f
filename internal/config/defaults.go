package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		API: APIConfig{
			BaseURL:  "https://v2.asknestor.me",
			TokenEnv: "NESTOR_AUTH_TOKEN",
		},
		Outbox: OutboxConfig{
			DBPath: "~/.nestor/outbox.db",
		},
		Relay: RelayConfig{
			Host: "127.0.0.1",
			Port: 9090,
			Path: "/teams/{teamID}/responses",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
