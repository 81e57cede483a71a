// cmd/citycare/cmd/watch.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"citycare/internal/app/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Следить за сетью и синхронизировать очередь",
	Long: `Запускает длительный процесс: монитор состояния сети и
автоматическое воспроизведение исходящей очереди при восстановлении
связи. Завершается по Ctrl+C.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		events := app.Facade().Subscribe()
		defer app.Facade().Unsubscribe(events)

		go func() {
			for ev := range events {
				switch ev {
				case client.EventWentOnline:
					color.Green("● Сеть доступна")
				case client.EventWentOffline:
					color.Red("○ Сеть недоступна")
				case client.EventRecordsChanged:
					fmt.Println("Набор записей изменился")
				}
			}
		}()

		return app.Run()
	},
}
