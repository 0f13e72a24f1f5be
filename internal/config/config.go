package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all configuration required by the agents process.
// Values come from env, optionally seeded from a .env file in the working directory.
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	SWML      SWMLConfig
	Screening ScreeningConfig
	Tokens    TokenConfig
	Redis     RedisConfig
	DB        DBConfig
	CORS      CORSConfig
}

type AppConfig struct {
	Env  string
	Host string
	Port int
}

// SWMLConfig controls how the platform reaches and authenticates against the agents.
type SWMLConfig struct {
	BasicAuthUser     string
	BasicAuthPassword string

	// PasswordGenerated is set when no password was configured and one was minted at startup.
	PasswordGenerated bool

	// ProxyURLBase is the public base URL (e.g. an ngrok tunnel). Empty means derive from requests.
	ProxyURLBase string
}

type ScreeningConfig struct {
	// ToNumber is the human being dialed; FromNumber is the caller id presented on outbound legs.
	ToNumber   string
	FromNumber string

	Voice       string
	HoldTimeout time.Duration
	WebDir      string
}

type TokenConfig struct {
	Secret    string
	TTL       time.Duration
	Generated bool
}

// RedisConfig is optional. Empty Addr keeps handoff records in memory.
type RedisConfig struct {
	Addr       string
	HandoffTTL time.Duration
}

// DBConfig is optional. Empty Host keeps the audit trail in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type CORSConfig struct {
	AllowOrigins []string
}

const (
	defaultEnv         = "local"
	defaultHost        = "0.0.0.0"
	defaultPort        = 5001
	defaultToNumber    = "+19184249378"
	defaultFromNumber  = "+12068655443"
	defaultAuthUser    = "signalwire"
	defaultVoice       = "elevenlabs.josh"
	defaultHoldTimeout = 120 * time.Second
	maxHoldTimeout     = 900 * time.Second
	defaultWebDir      = "web"
	defaultTokenTTL    = time.Hour
	defaultHandoffTTL  = 24 * time.Hour
	defaultDBPort      = 5432
	defaultDotEnvFile  = ".env"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{1,14}$`)

// Load reads .env (when present) and the process environment, applies defaults and validates.
func Load() (Config, error) {
	if err := godotenv.Load(defaultDotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", defaultDotEnvFile, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Load uses os.Getenv; tests pass a map.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Config{}
	var parseErrs []error
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	c.App.Env = get("APP_ENV")
	c.App.Host = get("HOST")
	c.App.Port, parseErrs = optionalInt(parseErrs, get, "PORT")

	c.SWML.BasicAuthUser = get("SWML_BASIC_AUTH_USER")
	c.SWML.BasicAuthPassword = getenv("SWML_BASIC_AUTH_PASSWORD")
	c.SWML.ProxyURLBase = strings.TrimRight(get("SWML_PROXY_URL_BASE"), "/")

	c.Screening.ToNumber = get("TO_NUMBER")
	c.Screening.FromNumber = get("FROM_NUMBER")
	c.Screening.Voice = get("AGENT_VOICE")
	c.Screening.WebDir = get("WEB_DIR")
	{
		n, errs := optionalInt(parseErrs, get, "HOLD_TIMEOUT_SECONDS")
		parseErrs = errs
		c.Screening.HoldTimeout = time.Duration(n) * time.Second
	}

	c.Tokens.Secret = getenv("SWAIG_TOKEN_SECRET")
	c.Tokens.TTL, parseErrs = optionalDuration(parseErrs, get, "SWAIG_TOKEN_TTL")

	c.Redis.Addr = get("REDIS_ADDR")
	c.Redis.HandoffTTL, parseErrs = optionalDuration(parseErrs, get, "HANDOFF_TTL")

	c.DB.Host = get("DB_HOST")
	c.DB.Port, parseErrs = optionalInt(parseErrs, get, "DB_PORT")
	c.DB.User = get("DB_USER")
	c.DB.Password = getenv("DB_PASSWORD")
	c.DB.Name = get("DB_NAME")
	c.DB.SSLMode = get("DB_SSLMODE")

	if v := get("CORS_ALLOW_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORS.AllowOrigins = append(c.CORS.AllowOrigins, o)
			}
		}
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyDefaults fills unset values. Secrets that are left empty are generated,
// which means they change on every restart.
func (c *Config) ApplyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultEnv
	}
	if c.App.Host == "" {
		c.App.Host = defaultHost
	}
	if c.App.Port == 0 {
		c.App.Port = defaultPort
	}

	if c.SWML.BasicAuthUser == "" {
		c.SWML.BasicAuthUser = defaultAuthUser
	}
	if c.SWML.BasicAuthPassword == "" {
		c.SWML.BasicAuthPassword = randomSecret()
		c.SWML.PasswordGenerated = true
	}

	if c.Screening.ToNumber == "" {
		c.Screening.ToNumber = defaultToNumber
	}
	if c.Screening.FromNumber == "" {
		c.Screening.FromNumber = defaultFromNumber
	}
	if c.Screening.Voice == "" {
		c.Screening.Voice = defaultVoice
	}
	if c.Screening.HoldTimeout == 0 {
		c.Screening.HoldTimeout = defaultHoldTimeout
	}
	if c.Screening.WebDir == "" {
		c.Screening.WebDir = defaultWebDir
	}

	if c.Tokens.Secret == "" {
		c.Tokens.Secret = randomSecret()
		c.Tokens.Generated = true
	}
	if c.Tokens.TTL == 0 {
		c.Tokens.TTL = defaultTokenTTL
	}

	if c.Redis.HandoffTTL == 0 {
		c.Redis.HandoffTTL = defaultHandoffTTL
	}

	if c.DB.Host != "" {
		if c.DB.Port == 0 {
			c.DB.Port = defaultDBPort
		}
		// Local-friendly default; production must be explicit.
		if c.DB.SSLMode == "" && !c.IsProduction() {
			c.DB.SSLMode = "disable"
		}
	}
}

func (c Config) Validate() error {
	var errs []error

	if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Host == "" {
		errs = append(errs, errors.New("HOST is required"))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port, got %d", c.App.Port))
	}

	if c.SWML.BasicAuthUser == "" {
		errs = append(errs, errors.New("SWML_BASIC_AUTH_USER is required"))
	}
	if strings.ContainsAny(c.SWML.BasicAuthUser, ":@/") {
		errs = append(errs, errors.New("SWML_BASIC_AUTH_USER must not contain ':', '@' or '/'"))
	}
	if c.SWML.BasicAuthPassword == "" {
		errs = append(errs, errors.New("SWML_BASIC_AUTH_PASSWORD is required"))
	}
	if c.SWML.ProxyURLBase != "" && !strings.HasPrefix(c.SWML.ProxyURLBase, "http://") && !strings.HasPrefix(c.SWML.ProxyURLBase, "https://") {
		errs = append(errs, fmt.Errorf("SWML_PROXY_URL_BASE must start with http:// or https://, got %q", c.SWML.ProxyURLBase))
	}

	if !e164.MatchString(c.Screening.ToNumber) {
		errs = append(errs, fmt.Errorf("TO_NUMBER must be E.164, got %q", c.Screening.ToNumber))
	}
	if !e164.MatchString(c.Screening.FromNumber) {
		errs = append(errs, fmt.Errorf("FROM_NUMBER must be E.164, got %q", c.Screening.FromNumber))
	}
	if c.Screening.Voice == "" {
		errs = append(errs, errors.New("AGENT_VOICE is required"))
	}
	if c.Screening.HoldTimeout <= 0 || c.Screening.HoldTimeout > maxHoldTimeout {
		errs = append(errs, fmt.Errorf("HOLD_TIMEOUT_SECONDS must be between 1 and %d, got %d", int(maxHoldTimeout.Seconds()), int(c.Screening.HoldTimeout.Seconds())))
	}

	if c.Tokens.Secret == "" {
		errs = append(errs, errors.New("SWAIG_TOKEN_SECRET is required"))
	}
	if c.Tokens.TTL <= 0 {
		errs = append(errs, errors.New("SWAIG_TOKEN_TTL must be positive"))
	}
	if c.IsProduction() && c.Tokens.Generated {
		errs = append(errs, errors.New("SWAIG_TOKEN_SECRET is required in production"))
	}

	if c.Redis.HandoffTTL <= 0 {
		errs = append(errs, errors.New("HANDOFF_TTL must be positive"))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else if !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// LocalBaseURL is the fallback public URL when neither a proxy base nor request headers are available.
func (c Config) LocalBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.App.Host, c.App.Port)
}

func (c Config) PostgresEnabled() bool { return c.DB.Host != "" }

func (c Config) RedisEnabled() bool { return c.Redis.Addr != "" }

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func optionalInt(errs []error, get func(string) string, key string) (int, []error) {
	v := get(key)
	if v == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalDuration(errs []error, get func(string) string, key string) (time.Duration, []error) {
	v := get(key)
	if v == "" {
		return 0, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	return d, errs
}

func randomSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
