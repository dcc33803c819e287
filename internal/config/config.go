package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvironmentProduction = "production"

// minSecretLength is the shortest HS512 key accepted in production.
const minSecretLength = 32

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// TrustedProxies feeds gin's ClientIP, which is recorded per session.
	TrustedProxies []string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
	MaxAvatarSize int64
}

type PasswordConfig struct {
	Time    uint32
	Memory  uint32
	Threads uint8
}

type SecurityConfig struct {
	AccessSecret string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	RememberTTL  time.Duration
	Issuer       string
	Password     PasswordConfig

	// GeneratedSecret is set when Validate had to mint an ephemeral secret.
	GeneratedSecret bool `mapstructure:"-"`
}

type CookieConfig struct {
	Domain string
	Path   string
	Secure bool
}

type EventsConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type WorkerConfig struct {
	PruneSchedule    string
	SessionRetention time.Duration
	LogLevel         string
}

type SeedConfig struct {
	RootEmail    string
	RootPassword string
	RootName     string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Cookies          CookieConfig
	Events           EventsConfig
	Worker           WorkerConfig
	Seed             SeedConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CINEID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks start-up invariants. In production a missing or short
// access secret is fatal; elsewhere an ephemeral random secret is minted so
// tokens never verify across restarts.
func (c *AppConfig) Validate() error {
	var errs []error

	secret := strings.TrimSpace(c.Security.AccessSecret)
	switch {
	case c.IsProduction() && secret == "":
		errs = append(errs, errors.New("security.accesssecret is required in production"))
	case c.IsProduction() && len(secret) < minSecretLength:
		errs = append(errs, fmt.Errorf("security.accesssecret must be at least %d bytes in production", minSecretLength))
	case secret == "":
		generated, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate access secret: %w", err)
		}
		c.Security.AccessSecret = generated
		c.Security.GeneratedSecret = true
	}

	if c.Security.AccessTTL <= 0 || c.Security.RefreshTTL <= 0 || c.Security.RememberTTL <= 0 {
		errs = append(errs, errors.New("security ttls must be positive"))
	} else if c.Security.AccessTTL >= c.Security.RefreshTTL {
		errs = append(errs, errors.New("security.accessttl must be shorter than security.refreshttl"))
	}

	if c.IsProduction() {
		c.Cookies.Secure = true
	}
	if c.Cookies.Path == "" {
		c.Cookies.Path = "/auth"
	}

	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.trustedproxies", []string{})

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketavatars", "cineid-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxavatarsize", 2<<20)

	v.SetDefault("security.accesssecret", "")
	v.SetDefault("security.accessttl", "15m")
	v.SetDefault("security.refreshttl", "720h")   // 30 days
	v.SetDefault("security.rememberttl", "2160h") // 90 days
	v.SetDefault("security.issuer", "cineid")
	v.SetDefault("security.password.time", 3)
	v.SetDefault("security.password.memory", 64*1024)
	v.SetDefault("security.password.threads", 2)

	v.SetDefault("cookies.domain", "")
	v.SetDefault("cookies.path", "/auth")
	v.SetDefault("cookies.secure", false)

	v.SetDefault("events.stream", "identity:events")
	v.SetDefault("events.group", "identity-audit")
	v.SetDefault("events.consumer", "worker-1")
	v.SetDefault("events.claiminterval", "30s")

	v.SetDefault("worker.pruneschedule", "0 0 3 * * *")
	v.SetDefault("worker.sessionretention", "720h")
	v.SetDefault("worker.loglevel", "info")

	v.SetDefault("seed.rootemail", "")
	v.SetDefault("seed.rootpassword", "")
	v.SetDefault("seed.rootname", "Root")

	v.SetDefault("allowcorsorigins", []string{})
}
