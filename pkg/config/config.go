package config

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Marketplace  MarketplaceConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Pricing.ShelfLifeTiers(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PASARSEGAR_APP_ENV" required:"true"`
	Port         string `envconfig:"PASARSEGAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PASARSEGAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PASARSEGAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PASARSEGAR_DB_DSN"`
	Driver string `envconfig:"PASARSEGAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PASARSEGAR_DB_HOST"`
	LegacyPort     int    `envconfig:"PASARSEGAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PASARSEGAR_DB_USER"`
	LegacyPassword string `envconfig:"PASARSEGAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"PASARSEGAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"PASARSEGAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PASARSEGAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PASARSEGAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PASARSEGAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PASARSEGAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PASARSEGAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PASARSEGAR_REDIS_ADDR"`
	Password     string        `envconfig:"PASARSEGAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"PASARSEGAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PASARSEGAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PASARSEGAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PASARSEGAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PASARSEGAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PASARSEGAR_REDIS_WRITE_TIMEOUT" default:"5s"`
	GuestCartTTL time.Duration `envconfig:"PASARSEGAR_REDIS_GUEST_CART_TTL" default:"168h"`
}

// MarketplaceConfig points at the backend order/address/balance API.
type MarketplaceConfig struct {
	BaseURL  string        `envconfig:"PASARSEGAR_MARKETPLACE_BASE_URL" required:"true"`
	APIToken string        `envconfig:"PASARSEGAR_MARKETPLACE_API_TOKEN"`
	Timeout  time.Duration `envconfig:"PASARSEGAR_MARKETPLACE_TIMEOUT" default:"10s"`
	RetryMax int           `envconfig:"PASARSEGAR_MARKETPLACE_RETRY_MAX" default:"3"`
}

// PricingConfig carries the shelf-life tier table as configuration rather
// than code; the exact boundaries are owned by the marketplace backend.
type PricingConfig struct {
	// ShelfLifeTierSpec maps days-remaining to a discount expressed in basis
	// points, e.g. "4:2000,3:4000,2:6000,1:8000".
	ShelfLifeTierSpec string `envconfig:"PASARSEGAR_PRICING_SHELF_LIFE_TIERS" default:"4:2000,3:4000,2:6000,1:8000"`
	BulkThreshold     int    `envconfig:"PASARSEGAR_PRICING_BULK_THRESHOLD" default:"5"`
	BulkBonusBps      int    `envconfig:"PASARSEGAR_PRICING_BULK_BONUS_BPS" default:"500"`
	RateCeilingBps    int    `envconfig:"PASARSEGAR_PRICING_RATE_CEILING_BPS" default:"9500"`
}

// ShelfLifeTier is one parsed entry of the tier table.
type ShelfLifeTier struct {
	Days    int
	RateBps int
}

// ShelfLifeTiers parses the tier spec, sorted by days ascending.
func (p PricingConfig) ShelfLifeTiers() ([]ShelfLifeTier, error) {
	spec := strings.TrimSpace(p.ShelfLifeTierSpec)
	if spec == "" {
		return nil, fmt.Errorf("%s is required", "PASARSEGAR_PRICING_SHELF_LIFE_TIERS")
	}

	var tiers []ShelfLifeTier
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid shelf-life tier entry %q", entry)
		}
		days, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid tier days in %q: %w", entry, err)
		}
		rate, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid tier rate in %q: %w", entry, err)
		}
		if days < 1 {
			return nil, fmt.Errorf("tier days must be >= 1 in %q", entry)
		}
		if rate < 0 || rate >= 10000 {
			return nil, fmt.Errorf("tier rate must be in [0,10000) in %q", entry)
		}
		tiers = append(tiers, ShelfLifeTier{Days: days, RateBps: rate})
	}

	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Days < tiers[j].Days })
	return tiers, nil
}

type CheckoutConfig struct {
	ShippingFeePerLine int64         `envconfig:"PASARSEGAR_CHECKOUT_SHIPPING_FEE_PER_LINE" default:"10000"`
	SubmissionTimeout  time.Duration `envconfig:"PASARSEGAR_CHECKOUT_SUBMISSION_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"PASARSEGAR_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"PASARSEGAR_AUTO_MIGRATE" default:"false"`
	CartStoreRedis bool `envconfig:"PASARSEGAR_CART_STORE_REDIS" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
