package config

const (
	EnvPrefix = "AUTOVENDAS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AUTOVENDAS_DB_DSN"
	EnvDBHost = "AUTOVENDAS_DB_HOST"
	EnvDBUser = "AUTOVENDAS_DB_USER"
	EnvDBName = "AUTOVENDAS_DB_NAME"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
