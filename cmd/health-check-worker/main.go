// Health check worker — проверяет доступность URL по запросам из RabbitMQ.
//
// Worker:
//   - Получает batch URL из очереди (по одному сообщению)
//   - Конкурентно выполняет HTTP GET для каждого URL
//   - Для domainCheck сверяет A-запись в Route 53 с публичным IP воркера
//   - Публикует агрегированный результат в headers exchange
//
// Потеря соединения с брокером завершает процесс с кодом 1.
//
// Команда check публикует запрос и печатает результат (см. internal/cli).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/shaiso/hal-health-check/internal/api"
	"github.com/shaiso/hal-health-check/internal/cli"
	"github.com/shaiso/hal-health-check/internal/config"
	"github.com/shaiso/hal-health-check/internal/dns"
	"github.com/shaiso/hal-health-check/internal/mq"
	"github.com/shaiso/hal-health-check/internal/probe"
	"github.com/shaiso/hal-health-check/internal/processor"
	"github.com/shaiso/hal-health-check/internal/telemetry"
	"github.com/shaiso/hal-health-check/internal/worker"
)

// version задаётся через ldflags при сборке.
var version = "dev"

const (
	shutdownTimeout       = 10 * time.Second
	awsCredentialsTimeout = 10 * time.Second
)

func main() {
	var (
		configFile string
		jsonOutput bool
		cfg        *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "health-check-worker",
		Short:         "Queue-driven URL health check worker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "yaml config file")
	flags.Int("worker-port", 8082, "port for /healthz, /readyz and /metrics")
	flags.String("log-level", "INFO", "log level (DEBUG, INFO, WARN, ERROR)")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format (check)")

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		v, err := config.NewViper(configFile)
		if err != nil {
			return err
		}

		// Флаги перекрывают env и файлы, только если заданы явно
		if err := v.BindPFlag(config.KeyWorkerPort, flags.Lookup("worker-port")); err != nil {
			return err
		}
		if err := v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level")); err != nil {
			return err
		}

		cfg, err = config.Load(v)
		return err
	}

	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), cfg)
	}

	clientFn := func() *cli.Client {
		return cli.NewClient(cfg.AMQP.URL, cfg.AMQP.Queue, cfg.AMQP.Exchange)
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(cli.NewCheckCmd(clientFn, outputFn))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(parent context.Context, cfg *config.Config) error {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log)
	logger.Info("starting health-check-worker", "version", version)

	// graceful shutdown
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// RabbitMQ: без брокера воркеру нечего делать
	mqConn, err := mq.NewConnection(cfg.AMQP.URL, logger)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer mqConn.Close()

	topology := cfg.AMQP.Topology()
	if err := mq.SetupTopology(ctx, mqConn, topology); err != nil {
		return fmt.Errorf("setup topology: %w", err)
	}
	logger.Info("topology ready", "topology", topology.Info())

	publisher := mq.NewPublisher(mqConn, topology.Exchange, logger)

	proc := processor.New(processor.Config{
		Prober: probe.New(probe.Config{
			Delay:   cfg.Probe.Delay,
			Timeout: cfg.Probe.Timeout,
		}),
		Reconciler:  newReconciler(ctx, cfg, logger),
		Events:      cfg.Events,
		Concurrency: cfg.Probe.Concurrency,
		Metrics:     metrics,
		Logger:      logger,
	})

	// Создаём worker
	w := worker.New(worker.Config{
		Conn:      mqConn,
		Queue:     cfg.AMQP.Queue,
		Publisher: publisher,
		Processor: proc,
		Metrics:   metrics,
		Logger:    logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	// HTTP: /healthz, /readyz, /metrics
	handler := api.NewHandler(api.Config{
		Ready:  w.Ready,
		Logger: logger,
	})
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения или фатальную ошибку воркера
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-w.Err():
		logger.Error("worker failed, shutting down", "error", runErr)
	}

	// Останавливаем worker: сообщение в работе дообрабатывается
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}

	logger.Info("health-check-worker stopped")
	return runErr
}

// newReconciler создаёт сверку DNS поверх Route 53.
// Если AWS конфигурация недоступна, domainCheck только логируется.
func newReconciler(ctx context.Context, cfg *config.Config, logger *slog.Logger) processor.Reconciler {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.DNS.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.DNS.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Warn("AWS config not available, dns reconciliation disabled", "error", err)
		return nil
	}

	// LoadDefaultConfig не проверяет credentials: без них UPSERT упал бы на каждом сообщении
	credCtx, credCancel := context.WithTimeout(ctx, awsCredentialsTimeout)
	defer credCancel()
	if err := dns.VerifyCredentials(credCtx, awsCfg); err != nil {
		logger.Warn("AWS credentials not available, dns reconciliation disabled", "error", err)
		return nil
	}

	return dns.NewReconciler(dns.Config{
		Resolver: dns.NewNetResolver(nil),
		PublicIP: dns.NewHTTPPublicIP(cfg.DNS.PublicIPURL, nil),
		Upserter: dns.NewRoute53Upserter(awsCfg, dns.Route53Config{
			WaitForSync: cfg.DNS.WaitForSync,
			SyncTimeout: cfg.DNS.SyncTimeout,
		}),
		TTL:     cfg.DNS.TTL,
		Timeout: cfg.DNS.ReconcileTimeout(),
		Logger:  logger,
	})
}
