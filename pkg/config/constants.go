package config

const (
	EnvPrefix = "CLINICSTOCK"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "CLINICSTOCK_APP_ENV"
	EnvPort     = "CLINICSTOCK_APP_PORT"
	EnvDBDSN    = "CLINICSTOCK_DB_DSN"
	EnvDBHost   = "CLINICSTOCK_DB_HOST"
	EnvDBUser   = "CLINICSTOCK_DB_USER"
	EnvDBName   = "CLINICSTOCK_DB_NAME"
	EnvRedisURL = "CLINICSTOCK_REDIS_URL"

	EnvSupplierInboundKey = "CLINICSTOCK_SUPPLIER_INBOUND_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
