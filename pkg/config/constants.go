package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "VERITAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "VERITAS_APP_ENV"
	EnvPort     = "VERITAS_APP_PORT"
	EnvLogLevel = "VERITAS_LOG_LEVEL"

	EnvDBDSN      = "VERITAS_DB_DSN"
	EnvDBHost     = "VERITAS_DB_HOST"
	EnvDBPort     = "VERITAS_DB_PORT"
	EnvDBUser     = "VERITAS_DB_USER"
	EnvDBPassword = "VERITAS_DB_PASSWORD"
	EnvDBName     = "VERITAS_DB_NAME"

	EnvRedisURL = "VERITAS_REDIS_URL"

	EnvJWTSecret  = "VERITAS_JWT_SECRET"
	EnvJWTIssuer  = "VERITAS_JWT_ISSUER"
	EnvJWTExpMins = "VERITAS_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "VERITAS_GCP_PROJECT_ID"

	EnvPubSubDisputeTopic       = "VERITAS_PUBSUB_DISPUTE_TOPIC"
	EnvPubSubDisputeSub         = "VERITAS_PUBSUB_DISPUTE_SUBSCRIPTION"
	EnvPubSubModeratorTopic     = "VERITAS_PUBSUB_MODERATOR_TOPIC"
	EnvPubSubModeratorSub       = "VERITAS_PUBSUB_MODERATOR_SUBSCRIPTION"
	EnvPubSubModeratorNotifySub = "VERITAS_PUBSUB_MODERATOR_NOTIFY_SUBSCRIPTION"
	EnvPubSubNotificationSub    = "VERITAS_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
