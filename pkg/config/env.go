package config

const (
	EnvPrefix = "PAYWALL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv             = "PAYWALL_APP_ENV"
	EnvPort               = "PAYWALL_APP_PORT"
	EnvStoreDriver        = "PAYWALL_STORE_DRIVER"
	EnvDBDSN              = "PAYWALL_DB_DSN"
	EnvDBHost             = "PAYWALL_DB_HOST"
	EnvDBUser             = "PAYWALL_DB_USER"
	EnvDBName             = "PAYWALL_DB_NAME"
	EnvRedisURL           = "PAYWALL_REDIS_URL"
	EnvChainRPCURL        = "PAYWALL_CHAIN_RPC_URL"
	EnvChainTimeout       = "PAYWALL_CHAIN_TIMEOUT"
	EnvSettlementContract = "PAYWALL_SETTLEMENT_CONTRACT"
	EnvTokenContract      = "PAYWALL_TOKEN_CONTRACT"
	EnvTokenDecimals      = "PAYWALL_TOKEN_DECIMALS"
	EnvGateways           = "PAYWALL_GATEWAYS"
	EnvGatewayTimeout     = "PAYWALL_GATEWAY_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
