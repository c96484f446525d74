// route-planner - консольный клиент планировщика туристических маршрутов.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Константы окружения
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Коды выхода.
const (
	exitOK           = 0
	exitFailure      = 1
	exitSessionEnded = 3
)

const signInHint = "Войдите снова: route-planner login --email <email>"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// execute запускает команду и переводит результат в код выхода.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	defer c.close()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	_, _ = fmt.Fprintf(stderr, "Ошибка: %s\n", err)

	var ended *sessionEndedError
	if errors.As(err, &ended) || errors.Is(err, errNotSignedIn) {
		_, _ = fmt.Fprintln(stderr, signInHint)
		return exitSessionEnded
	}

	return exitFailure
}

// setupLogger - логи клиента всегда идут в stderr, stdout занят выводом команд.
func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
