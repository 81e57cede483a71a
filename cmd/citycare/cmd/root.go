// cmd/citycare/cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"citycare/cmd/citycare/cmd/types"
	"citycare/internal/app/client"
	"citycare/internal/app/client/config"
	"citycare/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
	apiURL     string
)

var rootCmd = &cobra.Command{
	Use:   "citycare",
	Short: "CityCare - клиент для сообщений о городских проблемах",
	Long: `CityCare — это клиентское приложение для публикации сообщений
о городских проблемах с фотографиями и геолокацией.

Все записи кэшируются локально: приложение работает и без сети,
а отложенные публикации отправляются при восстановлении связи.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: teardownApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

// consoleNotifier печатает локальные уведомления в терминал
type consoleNotifier struct{}

func (consoleNotifier) Notify(title, body string) {
	color.Cyan("🔔 %s: %s", title, body)
}

func setupApp(cmd *cobra.Command, _ []string) error {
	// Загружаем конфигурацию
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Переопределяем настройки из флагов командной строки
	if apiURL != "" {
		cfg.BaseURL = apiURL
	}
	if debug {
		cfg.Env = config.EnvDev
	}

	// Настраиваем логгер
	log = logger.New(cfg.Env)

	// Создаем приложение
	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}
	app.SetNotifier(consoleNotifier{})

	// Однократная проверка сети, чтобы команды видели реальное состояние
	probeCtx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	defer cancel()
	app.Monitor().Check(probeCtx)

	cmd.SetContext(context.WithValue(cmd.Context(), types.ClientAppKey, app))
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) error {
	if app != nil {
		if err := app.Storage().Close(); err != nil {
			log.Warn("Ошибка закрытия хранилища", "error", err)
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Ищем конфиг в стандартных местах
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		configDir := filepath.Join(home, ".citycare")
		viper.AddConfigPath(configDir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Конфиг не найден, используем значения по умолчанию
	}

	// Загружаем конфигурацию через стандартный метод
	return config.MustLoad(), nil
}

func init() {
	cobra.OnInitialize()

	// Глобальные флаги
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "URL удаленного источника записей")

	// Команды будут добавлены в init() соответствующих файлов
}
