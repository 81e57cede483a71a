package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"citycare/cmd/citycare/cmd/types"
	"citycare/internal/app/client"
)

var syncStatus bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Управление синхронизацией",
	Long: `Отправка отложенных записей на удаленный источник.

Очередь воспроизводится строго в порядке добавления; первый сбой
останавливает проход, оставшиеся записи ждут следующей попытки.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if syncStatus {
			return showStatus(cmd.Context(), app)
		}

		return runReplay(cmd.Context(), app)
	},
}

func runReplay(ctx context.Context, app *client.App) error {
	fmt.Println("=== Отправка отложенных записей ===")

	if !app.IsAuthenticated() {
		return fmt.Errorf("требуется аутентификация. Выполните: citycare auth login")
	}

	fmt.Println("Проверка соединения...")
	if err := app.CheckConnection(); err != nil {
		return fmt.Errorf("удаленный источник недоступен: %v", err)
	}
	app.Monitor().SetOnline(true)

	result, err := app.Facade().Replay(ctx)
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	fmt.Println()
	if result.Replayed == 0 && result.Remaining == 0 {
		fmt.Println("Очередь пуста, отправлять нечего.")
		return nil
	}

	if result.Partial {
		color.Yellow("⚠ Отправка остановлена на сбое")
	} else {
		color.Green("✅ Синхронизация завершена!")
	}
	fmt.Printf("Время выполнения: %v\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("Отправлено записей: %d\n", result.Replayed)
	fmt.Printf("Осталось в очереди: %d\n", result.Remaining)

	return nil
}

func showStatus(ctx context.Context, app *client.App) error {
	fmt.Println("=== Статус синхронизации ===")
	fmt.Println()

	if app.Monitor().IsOnline() {
		color.Green("● Сеть доступна")
	} else {
		color.Red("○ Сеть недоступна")
	}

	entries, err := app.Storage().ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	fmt.Printf("Записей в очереди: %d\n", len(entries))

	for i, entry := range entries {
		fmt.Printf("%d. %s (добавлена %s)\n",
			i+1,
			entry.StoryID,
			entry.EnqueuedAt.Format("2006-01-02 15:04"))
	}

	stats := app.Sync().Stats()
	if stats.TotalReplays > 0 {
		fmt.Println()
		fmt.Printf("Проходов очереди: %d\n", stats.TotalReplays)
		fmt.Printf("Всего отправлено: %d\n", stats.TotalReplayed)
		if !stats.LastSuccessful.IsZero() {
			fmt.Printf("Последний успешный: %s\n", stats.LastSuccessful.Format("2006-01-02 15:04:05"))
		}
		if !stats.LastFailed.IsZero() {
			fmt.Printf("Последний сбойный: %s\n", stats.LastFailed.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус вместо отправки")
}
