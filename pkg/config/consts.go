package config

// EnvPrefix namespaces every environment variable the app reads.
const EnvPrefix = "sw"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "SW_APP_ENV"
	EnvPort     = "SW_APP_PORT"
	EnvDBDSN    = "SW_DB_DSN"
	EnvDBHost   = "SW_DB_HOST"
	EnvDBUser   = "SW_DB_USER"
	EnvDBName   = "SW_DB_NAME"
	EnvRedisURL = "SW_REDIS_URL"

	EnvShopifyShopDomain  = "SW_SHOPIFY_SHOP_DOMAIN"
	EnvShopifyAccessToken = "SW_SHOPIFY_ACCESS_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
