// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the fully resolved daemon configuration. The same struct is
// decoded from the YAML file; fields absent from the file keep their defaults.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir   string          `yaml:"dataDir"`
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	OTP       OTPConfig       `yaml:"otp"`
	Session   SessionConfig   `yaml:"session"`
	Identity  IdentityConfig  `yaml:"identity"`
	Policy    PolicyConfig    `yaml:"policy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type APIConfig struct {
	Listen          string        `yaml:"listen"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	LoginRateLimit  int           `yaml:"loginRateLimit"` // attempts per minute per client IP
	OTPRate         float64       `yaml:"otpRate"`        // verify attempts per second per principal
	OTPBurst        int           `yaml:"otpBurst"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // memory|sqlite|badger
	Path    string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OTPConfig struct {
	Backend     string        `yaml:"backend"` // memory|redis
	TTL         time.Duration `yaml:"ttl"`
	MaxAttempts int           `yaml:"maxAttempts"`
	DevCode     string        `yaml:"devCode"`
}

type SessionConfig struct {
	Backend      string        `yaml:"backend"` // memory|redis
	TTL          time.Duration `yaml:"ttl"`
	CookieSecure bool          `yaml:"cookieSecure"`
}

type IdentityConfig struct {
	// UsersFile is a YAML directory of users. Empty selects the demo accounts.
	UsersFile string `yaml:"usersFile"`
}

type PolicyConfig struct {
	ParentGate ParentGateConfig `yaml:"parentGate"`
}

// ParentGateConfig decides when an approval must be confirmed by the parent.
type ParentGateConfig struct {
	Mode    string `yaml:"mode"`    // reviewer|always|never
	MinDays int    `yaml:"minDays"` // force the gate for leaves spanning at least this many days; 0 disables
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"` // grpc|http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Backend names shared by otp and session.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Parent gate modes.
const (
	GateReviewer = "reviewer"
	GateAlways   = "always"
	GateNever    = "never"
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() AppConfig {
	return AppConfig{
		DataDir: "data",
		Log:     LogConfig{Level: "info", Service: "leavegate"},
		API: APIConfig{
			Listen:          ":8080",
			LoginRateLimit:  10,
			OTPRate:         0.5,
			OTPBurst:        5,
			ShutdownTimeout: 15 * time.Second,
		},
		Store:   StoreConfig{Backend: "sqlite"},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		OTP:     OTPConfig{Backend: BackendMemory, TTL: 10 * time.Minute, MaxAttempts: 5},
		Session: SessionConfig{Backend: BackendMemory, TTL: 12 * time.Hour},
		Policy:  PolicyConfig{ParentGate: ParentGateConfig{Mode: GateReviewer}},
		Telemetry: TelemetryConfig{
			Environment:  "production",
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// UsesRedis reports whether any component needs a redis connection.
func (c AppConfig) UsesRedis() bool {
	return c.OTP.Backend == BackendRedis || c.Session.Backend == BackendRedis
}
