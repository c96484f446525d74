package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pribylovaa/route-planner/internal/api"
	"github.com/pribylovaa/route-planner/internal/config"
	"github.com/pribylovaa/route-planner/internal/credentials"
	apierrors "github.com/pribylovaa/route-planner/internal/errors"
	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/session"
)

// Форматы вывода.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	_ session.AuthAPI     = (*api.Auth)(nil)
	_ session.Credentials = (*gateway.Gateway)(nil)
)

var errNotSignedIn = errors.New("вход не выполнен")

// sessionEndedError - шлюз завершил сессию во время команды.
type sessionEndedError struct {
	reason string
}

func (e *sessionEndedError) Error() string {
	return "сессия завершена (" + e.reason + ")"
}

// cli - состояние одного запуска: конфигурация, шлюз, сессия.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	output     string

	cfg     *config.Config
	log     *slog.Logger
	store   credentials.ClosableStore
	gw      *gateway.Gateway
	api     *api.Client
	sess    *session.Manager
	ended   <-chan gateway.Invalidation
	cancels []func()
	metrics *http.Server
}

// setup собирает зависимости и восстанавливает сессию.
func (c *cli) setup(ctx context.Context) error {
	switch c.output {
	case outputJSON, outputYAML:
	default:
		return fmt.Errorf("неизвестный формат вывода %q", c.output)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	c.log = setupLogger(cfg.Env, c.stderr)
	slog.SetDefault(c.log)

	store, err := credentials.Open(cfg.Credentials, c.log)
	if err != nil {
		c.log.Error("credentials_open_failed", slog.String("err", err.Error()))
		return err
	}
	c.store = store

	var metrics *gateway.Metrics
	if cfg.Metrics.Enabled() {
		reg := prometheus.NewRegistry()
		metrics = gateway.NewMetrics(reg)
		c.serveMetrics(cfg.Metrics.Addr(), reg)
	}

	gw, err := gateway.New(store, gateway.Options{
		BaseURL:         cfg.API.BaseURL,
		UserAgent:       cfg.API.UserAgent,
		Timeout:         cfg.Timeouts.Request,
		CoalesceRefresh: cfg.API.CoalesceRefresh,
		Logger:          c.log,
		Metrics:         metrics,
	})
	if err != nil {
		return err
	}
	c.gw = gw
	c.api = api.New(gw)
	c.sess = session.New(c.api.Auth, gw, c.log)

	events, unsubscribe := gw.Subscribe()
	watchCtx, stop := context.WithCancel(context.Background())
	c.cancels = append(c.cancels, unsubscribe, stop)
	go c.sess.Watch(watchCtx, events)

	c.sess.RestoreSession(ctx)

	// подписка после восстановления: отказ при старте - не завершение сессии
	// в рамках команды
	ended, unsubscribeEnded := gw.Subscribe()
	c.ended = ended
	c.cancels = append(c.cancels, unsubscribeEnded)

	c.log.Debug("client_ready",
		slog.String("api", cfg.API.BaseURL),
		slog.String("credentials", cfg.Credentials.Backend),
		slog.String("session", c.sess.Current().State().String()),
	)

	return nil
}

func (c *cli) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	c.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		c.log.Info("metrics_listen_start", slog.String("addr", addr))
		if err := c.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("metrics_serve_failed", slog.String("err", err.Error()))
		}
	}()
}

func (c *cli) close() {
	for i := len(c.cancels) - 1; i >= 0; i-- {
		c.cancels[i]()
	}

	if c.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = c.metrics.Shutdown(ctx)
		cancel()
	}

	if c.store != nil {
		if err := c.store.Close(); err != nil && c.log != nil {
			c.log.Warn("credentials_close_failed", slog.String("err", err.Error()))
		}
	}
}

type runFunc func(cmd *cobra.Command, args []string) error

// protected - команда для вошедшего пользователя. Неустранимый отказ
// авторизации превращается в sessionEndedError, прочие ошибки - в текст
// для пользователя.
func (c *cli) protected(fn runFunc) runFunc {
	return func(cmd *cobra.Command, args []string) error {
		if c.sess.Current().State() != session.Authenticated {
			return errNotSignedIn
		}

		err := fn(cmd, args)

		select {
		case ev := <-c.ended:
			return &sessionEndedError{reason: ev.Reason}
		default:
		}

		if err == nil {
			return nil
		}

		if errors.Is(err, apierrors.ErrUnauthorized) {
			return &sessionEndedError{reason: "unauthorized"}
		}

		return display(err, "запрос не выполнен")
	}
}

// displayError - ошибка с текстом, извлечённым из ответа бэкенда.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }

func (e *displayError) Unwrap() error { return e.err }

func display(err error, fallback string) error {
	var f *session.Failure
	if errors.As(err, &f) {
		return err
	}

	if _, ok := apierrors.As(err); !ok {
		return err
	}

	return &displayError{msg: apierrors.DisplayMessage(err, fallback), err: err}
}

// print выводит v в выбранном формате.
func (c *cli) print(v any) error {
	switch c.output {
	case outputYAML:
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func (c *cli) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.stdout, format, args...)
}
