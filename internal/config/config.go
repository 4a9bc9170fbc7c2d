package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"sathi/internal/payments"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Env         string `env:"ENV" envDefault:"development"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	APIURL      string `env:"EXTERNAL_URL" envDefault:"http://localhost:8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`

	DB          DBConfig          `envPrefix:"DB_"`
	Redis       RedisConfig       `envPrefix:"REDIS_"`
	Auth        AuthConfig        `envPrefix:"AUTH_"`
	RateLimiter RateLimiterConfig `envPrefix:"RATELIMITER_"`
	Mail        MailConfig
	Reconcile   ReconcileConfig `envPrefix:"RECONCILE_"`

	CloudinaryURL   string   `env:"CLOUDINARY_URL"`
	HashIDsSalt     string   `env:"HASHIDS_SALT" envDefault:"sathi"`
	ExpoAccessToken string   `env:"EXPO_ACCESS_TOKEN"`
	AdminPushTokens []string `env:"ADMIN_PUSH_TOKENS" envSeparator:","`
	// ReturnHosts are the hosts a donor may be sent back to, on top of FRONTEND_URL.
	ReturnHosts []string `env:"RETURN_HOSTS" envSeparator:","`

	Turnstile TurnstileConfig `envPrefix:"TURNSTILE_"`

	Esewa      GatewayConfig    `envPrefix:"ESEWA_"`
	Khalti     GatewayConfig    `envPrefix:"KHALTI_"`
	IMEPay     IMEPayConfig     `envPrefix:"IMEPAY_"`
	ConnectIPS ConnectIPSConfig `envPrefix:"CONNECTIPS_"`
}

type DBConfig struct {
	Addr        string `env:"ADDR,required,notEmpty"`
	MaxConns    int32  `env:"MAX_CONNS" envDefault:"10"`
	MaxIdleTime string `env:"MAX_IDLE_TIME" envDefault:"15m"`
}

type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	GuardTTL time.Duration `env:"GUARD_TTL" envDefault:"30s"`
}

type AuthConfig struct {
	BasicUser    string        `env:"BASIC_USER"`
	BasicPass    string        `env:"BASIC_PASS"`
	TokenSecret  string        `env:"TOKEN_SECRET,required,notEmpty"`
	TokenExp     time.Duration `env:"TOKEN_EXP" envDefault:"12h"`
	TokenIss     string        `env:"TOKEN_ISS" envDefault:"sathi"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int           `env:"REQUESTS_COUNT" envDefault:"60"`
	TimeFrame            time.Duration `env:"TIME_FRAME" envDefault:"1m"`
	Enabled              bool          `env:"ENABLED" envDefault:"true"`
}

type MailConfig struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	FromEmail string `env:"MAIL_FROM" envDefault:"noreply@sathi.org.np"`
}

type ReconcileConfig struct {
	Schedule string        `env:"SCHEDULE" envDefault:"@every 10m"`
	MinAge   time.Duration `env:"MIN_AGE" envDefault:"15m"`
	MaxAge   time.Duration `env:"MAX_AGE" envDefault:"72h"`
	Batch    int           `env:"BATCH" envDefault:"50"`
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
}

type TurnstileConfig struct {
	SecretKey        string `env:"SECRET_KEY"`
	ExpectedHostname string `env:"EXPECTED_HOSTNAME"`
}

// GatewayConfig holds what every gateway needs. Empty MerchantID disables
// the gateway.
type GatewayConfig struct {
	MerchantID  string `env:"MERCHANT_ID"`
	SecretKey   string `env:"SECRET_KEY"`
	Environment string `env:"ENVIRONMENT" envDefault:"sandbox"`
}

type IMEPayConfig struct {
	GatewayConfig
	APIUser     string `env:"API_USER"`
	APIPassword string `env:"API_PASSWORD"`
	Module      string `env:"MODULE"`
}

type ConnectIPSConfig struct {
	GatewayConfig
	AppID       string `env:"APP_ID"`
	AppName     string `env:"APP_NAME"`
	AppPassword string `env:"APP_PASSWORD"`
}

func (g GatewayConfig) Enabled() bool {
	return g.MerchantID != "" && g.SecretKey != ""
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for name, g := range map[string]GatewayConfig{
		"ESEWA":      c.Esewa,
		"KHALTI":     c.Khalti,
		"IMEPAY":     c.IMEPay.GatewayConfig,
		"CONNECTIPS": c.ConnectIPS.GatewayConfig,
	} {
		switch payments.Environment(g.Environment) {
		case payments.Sandbox, payments.Production:
		default:
			return fmt.Errorf("%s_ENVIRONMENT must be sandbox or production, got %q", name, g.Environment)
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AllowedReturnHosts is the FRONTEND_URL host plus RETURN_HOSTS.
func (c *Config) AllowedReturnHosts() []string {
	hosts := append([]string(nil), c.ReturnHosts...)
	if u, err := url.Parse(c.FrontendURL); err == nil && u.Hostname() != "" {
		hosts = append(hosts, u.Hostname())
	}
	return hosts
}

// CallbackURL is the return endpoint registered with a gateway.
func (c *Config) CallbackURL(p payments.Provider) string {
	return strings.TrimRight(c.APIURL, "/") + "/v1/payments/" + string(p) + "/return"
}

// Credentials builds adapter credentials for p.
func (c *Config) Credentials(p payments.Provider) payments.Credentials {
	var g GatewayConfig
	switch p {
	case payments.ProviderEsewa:
		g = c.Esewa
	case payments.ProviderKhalti:
		g = c.Khalti
	case payments.ProviderIMEPay:
		g = c.IMEPay.GatewayConfig
	case payments.ProviderConnectIPS:
		g = c.ConnectIPS.GatewayConfig
	}
	cb := c.CallbackURL(p)
	return payments.Credentials{
		MerchantID:  g.MerchantID,
		SecretKey:   g.SecretKey,
		Environment: payments.Environment(g.Environment),
		SuccessURL:  cb,
		FailureURL:  cb,
	}
}
