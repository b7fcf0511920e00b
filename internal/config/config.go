// Package config загружает конфигурацию воркера.
//
// Источники (по возрастанию приоритета):
//   - значения по умолчанию
//   - файл .env в рабочем каталоге (если есть)
//   - yaml файл, переданный через --config
//   - переменные окружения
//   - флаги командной строки
//
// Config неизменяем после загрузки и передаётся компонентам при создании.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/shaiso/hal-health-check/internal/dns"
	"github.com/shaiso/hal-health-check/internal/domain"
	"github.com/shaiso/hal-health-check/internal/mq"
	"github.com/shaiso/hal-health-check/internal/telemetry"
)

// Ключи конфигурации (совпадают с именами переменных окружения в нижнем регистре).
const (
	KeyRabbitURL          = "rabbitmq_url"
	KeyRabbitHost         = "rabbitmq_host"
	KeyRabbitPort         = "rabbitmq_port"
	KeyRabbitUsername     = "rabbitmq_username"
	KeyRabbitPassword     = "rabbitmq_password"
	KeyRabbitVHost        = "rabbitmq_vhost"
	KeyRabbitSSL          = "rabbitmq_ssl"
	KeyRabbitQueue        = "rabbitmq_queue"
	KeyRabbitExchange     = "rabbitmq_exchange"
	KeyRabbitResultsQueue = "rabbitmq_results_queue"
	KeyRabbitDLX          = "rabbitmq_dead_letter_exchange"

	KeyEventSuccess = "event_success"
	KeyEventError   = "event_error"

	KeyProbeDelay       = "probe_delay"
	KeyProbeTimeout     = "probe_timeout"
	KeyProbeConcurrency = "probe_concurrency"

	KeyPublicIPURL    = "public_ip_url"
	KeyAWSRegion      = "aws_region"
	KeyDNSTTL         = "dns_ttl"
	KeyDNSTimeout     = "dns_timeout"
	KeyDNSWaitForSync = "dns_wait_for_sync"
	KeyDNSSyncTimeout = "dns_sync_timeout"

	KeyLogLevel  = "log_level"
	KeyLogFormat = "log_format"
	KeyLogFile   = "log_file"

	KeyWorkerPort = "worker_port"
)

// Config — конфигурация воркера.
type Config struct {
	AMQP   AMQP              `validate:"required"`
	Events domain.EventNames `validate:"required"`
	Probe  Probe             `validate:"required"`
	DNS    DNS               `validate:"required"`
	Log    telemetry.LogConfig

	// Port — порт HTTP сервера /healthz, /readyz, /metrics.
	Port int `validate:"min=1,max=65535"`
}

// AMQP — подключение и топология RabbitMQ.
type AMQP struct {
	URL                string `validate:"required"`
	Queue              string `validate:"required"`
	Exchange           string `validate:"required"`
	ResultsQueue       string
	DeadLetterExchange string
}

// Topology возвращает топологию брокера.
func (a AMQP) Topology() mq.Topology {
	return mq.Topology{
		Queue:              mq.Queue(a.Queue),
		Exchange:           mq.Exchange(a.Exchange),
		ResultsQueue:       mq.Queue(a.ResultsQueue),
		DeadLetterExchange: mq.Exchange(a.DeadLetterExchange),
	}
}

// Probe — параметры HTTP-проверок.
type Probe struct {
	Delay       time.Duration `validate:"gt=0"`
	Timeout     time.Duration `validate:"gt=0"`
	Concurrency int           `validate:"min=0"`
}

// DNS — параметры сверки DNS.
type DNS struct {
	PublicIPURL string `validate:"required,url"`
	AWSRegion   string
	TTL         int64         `validate:"gt=0"`
	Timeout     time.Duration `validate:"gt=0"`
	WaitForSync bool
	SyncTimeout time.Duration `validate:"gt=0"`
}

// ReconcileTimeout — таймаут одной сверки. При WaitForSync включает
// ожидание INSYNC, иначе оно обрывалось бы раньше SyncTimeout.
func (d DNS) ReconcileTimeout() time.Duration {
	if d.WaitForSync {
		return d.Timeout + d.SyncTimeout
	}
	return d.Timeout
}

// SetDefaults задаёт значения по умолчанию.
func SetDefaults(v *viper.Viper) {
	events := domain.DefaultEventNames()

	v.SetDefault(KeyRabbitHost, "rabbitmq")
	v.SetDefault(KeyRabbitPort, 5672)
	v.SetDefault(KeyRabbitUsername, "guest")
	v.SetDefault(KeyRabbitPassword, "guest")
	v.SetDefault(KeyRabbitVHost, "")
	v.SetDefault(KeyRabbitSSL, false)
	v.SetDefault(KeyRabbitQueue, string(mq.DefaultQueue))
	v.SetDefault(KeyRabbitExchange, string(mq.DefaultExchange))

	v.SetDefault(KeyEventSuccess, events.Success)
	v.SetDefault(KeyEventError, events.Error)

	v.SetDefault(KeyProbeDelay, time.Second)
	v.SetDefault(KeyProbeTimeout, 30*time.Second)
	v.SetDefault(KeyProbeConcurrency, 0)

	v.SetDefault(KeyPublicIPURL, dns.DefaultPublicIPURL)
	v.SetDefault(KeyDNSTTL, dns.DefaultTTL)
	v.SetDefault(KeyDNSTimeout, 30*time.Second)
	v.SetDefault(KeyDNSWaitForSync, false)
	v.SetDefault(KeyDNSSyncTimeout, 2*time.Minute)

	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyLogFormat, "json")

	v.SetDefault(KeyWorkerPort, 8082)
}

// NewViper создаёт viper с defaults, .env и переменными окружения.
// configFile — необязательный yaml файл.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	// .env — как у исходного воркера: отсутствие файла не ошибка
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load читает Config из viper и валидирует его.
func Load(v *viper.Viper) (*Config, error) {
	amqpURL := v.GetString(KeyRabbitURL)
	if amqpURL == "" {
		amqpURL = mq.BuildURL(mq.URLConfig{
			Host:     v.GetString(KeyRabbitHost),
			Port:     v.GetInt(KeyRabbitPort),
			Username: v.GetString(KeyRabbitUsername),
			Password: v.GetString(KeyRabbitPassword),
			VHost:    v.GetString(KeyRabbitVHost),
			SSL:      v.GetBool(KeyRabbitSSL),
		})
	}

	cfg := &Config{
		AMQP: AMQP{
			URL:                amqpURL,
			Queue:              v.GetString(KeyRabbitQueue),
			Exchange:           v.GetString(KeyRabbitExchange),
			ResultsQueue:       v.GetString(KeyRabbitResultsQueue),
			DeadLetterExchange: v.GetString(KeyRabbitDLX),
		},
		Events: domain.EventNames{
			Success: v.GetString(KeyEventSuccess),
			Error:   v.GetString(KeyEventError),
		},
		Probe: Probe{
			Delay:       v.GetDuration(KeyProbeDelay),
			Timeout:     v.GetDuration(KeyProbeTimeout),
			Concurrency: v.GetInt(KeyProbeConcurrency),
		},
		DNS: DNS{
			PublicIPURL: v.GetString(KeyPublicIPURL),
			AWSRegion:   v.GetString(KeyAWSRegion),
			TTL:         v.GetInt64(KeyDNSTTL),
			Timeout:     v.GetDuration(KeyDNSTimeout),
			WaitForSync: v.GetBool(KeyDNSWaitForSync),
			SyncTimeout: v.GetDuration(KeyDNSSyncTimeout),
		},
		Log: telemetry.LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
		Port: v.GetInt(KeyWorkerPort),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate проверяет конфигурацию.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// formatValidationErrors собирает ошибки валидации в одно сообщение.
func formatValidationErrors(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s", err.Namespace(), err.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// ErrInvalidConfig — конфигурация не прошла валидацию.
var ErrInvalidConfig = errors.New("invalid config")

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
