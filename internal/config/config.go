// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса синхронизации.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	RabbitConnection        string `yaml:"rabbit_connection" env:"RABBIT_CONNECTION"`
	SupportEmail            string `yaml:"support_email" env:"SUPPORT_EMAIL"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Billing                 `yaml:"billing"`
	Sync                    `yaml:"sync"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP   string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP   time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" env-default:"60s"`
	WebhookSecret string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Billing структура с реквизитами биллинг-провайдера.
type Billing struct {
	TokenURL          string        `yaml:"token_url" env:"BILLING_TOKEN_URL"`
	APIURL            string        `yaml:"api_url" env:"BILLING_API_URL"`
	ClientID          string        `yaml:"client_id" env:"BILLING_CLIENT_ID"`
	ClientSecret      string        `yaml:"client_secret" env:"BILLING_CLIENT_SECRET"`
	MaxResults        int           `yaml:"max_results" env-default:"50"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env-default:"2"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env-default:"30s"`
}

// Sync структура с настройками фоновой массовой сверки.
type Sync struct {
	UserPageSize int           `yaml:"user_page_size" env-default:"50"`
	PagePause    time.Duration `yaml:"page_pause" env-default:"90s"`
	ErrorBackoff time.Duration `yaml:"error_backoff" env-default:"3m"`
}

// SMTP структура для настройки почтового транспорта.
type SMTP struct {
	SMTPHost string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// MustLoad функция для загрузки конфига, путь берется из CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
