package logger

import (
	"os"

	"golang.org/x/exp/slog"

	"citycare/internal/app/client/config"
)

// New возвращает slog.Logger, настроенный под окружение:
// local - текстовый вывод с уровнем Debug, dev - JSON с Debug,
// prod - JSON c Info.
func New(env string) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		return setupPrettySlog()
	}
}

func setupPrettySlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
