package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the typed view of the service settings.
type Config struct {
	AppPort      string
	RealtimeAddr string
	AppEnv       string
	LogLevel     string
	LogFormat    string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	RabbitMQURL      string
	RabbitMQExchange string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProductCacheTTL time.Duration

	MailTransport string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPTimeout   time.Duration
	MailFrom      string
	OperatorEmail string

	CancelWindow time.Duration
	OTPTTL       time.Duration
	CORSOrigins  string
}

// IsProduction reports whether internal error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("REALTIME_ADDR", ":8081")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=foodorder port=5432 sslmode=disable")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "food.events")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PRODUCT_CACHE_TTL", "5m")
	v.SetDefault("MAIL_TRANSPORT", "log")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_TIMEOUT", "10s")
	v.SetDefault("MAIL_FROM", "Food Delivery <no-reply@localhost>")
	v.SetDefault("OPERATOR_EMAIL", "")
	v.SetDefault("CANCEL_WINDOW", "60s")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		AppPort:      v.GetString("APP_PORT"),
		RealtimeAddr: v.GetString("REALTIME_ADDR"),
		AppEnv:       v.GetString("APP_ENV"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),

		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),

		JWTSecret: v.GetString("JWT_SECRET"),
		TokenTTL:  v.GetDuration("TOKEN_TTL"),

		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),

		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		ProductCacheTTL: v.GetDuration("PRODUCT_CACHE_TTL"),

		MailTransport: v.GetString("MAIL_TRANSPORT"),
		SMTPHost:      v.GetString("SMTP_HOST"),
		SMTPPort:      v.GetInt("SMTP_PORT"),
		SMTPUser:      v.GetString("SMTP_USER"),
		SMTPPassword:  v.GetString("SMTP_PASSWORD"),
		SMTPTimeout:   v.GetDuration("SMTP_TIMEOUT"),
		MailFrom:      v.GetString("MAIL_FROM"),
		OperatorEmail: v.GetString("OPERATOR_EMAIL"),

		CancelWindow: v.GetDuration("CANCEL_WINDOW"),
		OTPTTL:       v.GetDuration("OTP_TTL"),
		CORSOrigins:  v.GetString("CORS_ORIGINS"),
	}
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the global logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, falling back to info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
