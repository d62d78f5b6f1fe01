package config

const (
	EnvPrefix = "PASMA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "PASMA_APP_ENV"
	EnvPort     = "PASMA_APP_PORT"
	EnvLogLevel = "PASMA_LOG_LEVEL"

	EnvDBDSN  = "PASMA_DB_DSN"
	EnvDBHost = "PASMA_DB_HOST"
	EnvDBPort = "PASMA_DB_PORT"
	EnvDBUser = "PASMA_DB_USER"
	EnvDBPass = "PASMA_DB_PASSWORD"
	EnvDBName = "PASMA_DB_NAME"

	EnvRedisURL = "PASMA_REDIS_URL"

	EnvJWTSecret  = "PASMA_JWT_SECRET"
	EnvJWTIssuer  = "PASMA_JWT_ISSUER"
	EnvJWTExpMins = "PASMA_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "PASMA_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic       = "PASMA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationTopic = "PASMA_PUBSUB_NOTIFICATION_TOPIC"

	EnvEscrowAdminUserID = "PASMA_ESCROW_ADMIN_USER_ID"
	EnvEscrowServiceFee  = "PASMA_ESCROW_SERVICE_FEE"
	EnvEscrowTaxRate     = "PASMA_ESCROW_TAX_RATE"
	EnvEscrowShipWindow  = "PASMA_ESCROW_SHIP_WINDOW"

	EnvCronUnacceptedInterval = "PASMA_CRON_UNACCEPTED_INTERVAL"
)

// legacyDBEnvVars must all be set when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
