package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Chain        ChainConfig
	Gateway      GatewayConfig
	Subscription SubscriptionConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() {
		if err := cfg.DB.ensureDSN(cfg.Store.Driver); err != nil {
			return nil, err
		}
	}
	if err := cfg.Chain.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Gateway.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PAYWALL_APP_ENV" required:"true"`
	Port         string   `envconfig:"PAYWALL_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PAYWALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PAYWALL_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"PAYWALL_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"PAYWALL_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the durable key/value backend.
type StoreConfig struct {
	Driver string `envconfig:"PAYWALL_STORE_DRIVER" default:"redis"`
}

// UsesSQL reports whether the store is backed by a SQL database.
func (s StoreConfig) UsesSQL() bool {
	return s.normalized() == StoreDriverPostgres || s.normalized() == StoreDriverSQLite
}

// Normalized returns the lower-cased driver name.
func (s StoreConfig) Normalized() string {
	return s.normalized()
}

func (s StoreConfig) normalized() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

func (s StoreConfig) validate() error {
	switch s.normalized() {
	case StoreDriverRedis, StoreDriverPostgres, StoreDriverSQLite:
		return nil
	}
	return fmt.Errorf("%s must be one of redis, postgres, sqlite (got %q)", EnvStoreDriver, s.Driver)
}

type DBConfig struct {
	DSN string `envconfig:"PAYWALL_DB_DSN"`

	LegacyHost     string `envconfig:"PAYWALL_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYWALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYWALL_DB_USER"`
	LegacyPassword string `envconfig:"PAYWALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYWALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYWALL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYWALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYWALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYWALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYWALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PAYWALL_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYWALL_REDIS_URL"`
	Address      string        `envconfig:"PAYWALL_REDIS_ADDR"`
	Password     string        `envconfig:"PAYWALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYWALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYWALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYWALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYWALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYWALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYWALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ChainConfig points the chain reader at an RPC endpoint and the two contracts it reads.
type ChainConfig struct {
	RPCURL             string        `envconfig:"PAYWALL_CHAIN_RPC_URL" required:"true"`
	Timeout            time.Duration `envconfig:"PAYWALL_CHAIN_TIMEOUT" default:"10s"`
	SettlementContract string        `envconfig:"PAYWALL_SETTLEMENT_CONTRACT" required:"true"`
	TokenContract      string        `envconfig:"PAYWALL_TOKEN_CONTRACT" default:"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"`
	TokenDecimals      int32         `envconfig:"PAYWALL_TOKEN_DECIMALS" default:"6"`
}

// SettlementAddress returns the parsed settlement contract address.
func (c ChainConfig) SettlementAddress() common.Address {
	return common.HexToAddress(c.SettlementContract)
}

// TokenAddress returns the parsed token contract address.
func (c ChainConfig) TokenAddress() common.Address {
	return common.HexToAddress(c.TokenContract)
}

func (c ChainConfig) validate() error {
	if !common.IsHexAddress(c.SettlementContract) {
		return fmt.Errorf("%s must be a hex address", EnvSettlementContract)
	}
	if !common.IsHexAddress(c.TokenContract) {
		return fmt.Errorf("%s must be a hex address", EnvTokenContract)
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 18 {
		return fmt.Errorf("%s must be between 0 and 18", EnvTokenDecimals)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvChainTimeout)
	}
	return nil
}

// GatewayConfig lists the retrieval gateways tried, in order, for content descriptors.
type GatewayConfig struct {
	URLs    []string      `envconfig:"PAYWALL_GATEWAYS" default:"https://ipfs.io/ipfs,https://dweb.link/ipfs,https://gateway.pinata.cloud/ipfs,https://cloudflare-ipfs.com/ipfs"`
	Timeout time.Duration `envconfig:"PAYWALL_GATEWAY_TIMEOUT" default:"5s"`
}

// Endpoints returns the trimmed, non-empty gateway base URLs in configured order.
func (g GatewayConfig) Endpoints() []string {
	out := make([]string, 0, len(g.URLs))
	for _, raw := range g.URLs {
		trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (g GatewayConfig) validate() error {
	endpoints := g.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("%s requires at least one gateway", EnvGateways)
	}
	for _, endpoint := range endpoints {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid gateway %q: %w", endpoint, err)
		}
	}
	if g.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvGatewayTimeout)
	}
	return nil
}

type SubscriptionConfig struct {
	Period time.Duration `envconfig:"PAYWALL_SUBSCRIPTION_PERIOD" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYWALL_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(driver string) error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(driver, StoreDriverSQLite) {
		db.DSN = "file:paywall.db?cache=shared"
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
