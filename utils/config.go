package utils

import (
	"os"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Addr            string
	Port            string
	UrlPrefix       string
	DbConnectionUrl string
	RedisUrl        string
	SentryDsn       string
	TemplatePath    string
	NotificationUrl string
}

//GetConfig assembles the application configuration from a local dotenv file
//(if present) overlaid with process environment variables.
func GetConfig() *AppConfig {
	godotenv.Load()

	appConfig := AppConfig{
		Port:         "8000",
		UrlPrefix:    "/rincewind",
		TemplatePath: "templates",
	}

	if addr := os.Getenv("LISTEN_ADDR"); len(addr) > 0 {
		appConfig.Addr = addr
	}
	if port := os.Getenv("LISTEN_PORT"); len(port) > 0 {
		appConfig.Port = port
	}
	if urlPrefix := os.Getenv("URL_PREFIX"); len(urlPrefix) > 0 {
		appConfig.UrlPrefix = urlPrefix
	}
	if dbConnectionUrl := os.Getenv("DB_CONNECTION_URL"); len(dbConnectionUrl) > 0 {
		appConfig.DbConnectionUrl = dbConnectionUrl
	}
	if redisUrl := os.Getenv("REDIS_URL"); len(redisUrl) > 0 {
		appConfig.RedisUrl = redisUrl
	}
	if sentryDsn := os.Getenv("SENTRY_DSN"); len(sentryDsn) > 0 {
		appConfig.SentryDsn = sentryDsn
	}
	if templatePath := os.Getenv("TEMPLATE_PATH"); len(templatePath) > 0 {
		appConfig.TemplatePath = templatePath
	}
	if notificationUrl := os.Getenv("NOTIFICATION_URL"); len(notificationUrl) > 0 {
		appConfig.NotificationUrl = notificationUrl
	}

	return &appConfig
}
