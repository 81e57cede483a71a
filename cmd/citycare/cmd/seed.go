// cmd/citycare/cmd/seed.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"citycare/internal/fixtures"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Заполнить локальный кэш демонстрационными записями",
	Long: `Записывает в локальное хранилище небольшой набор демонстрационных
записей. Полезно для первого запуска и офлайн-демонстраций.

Кэш никогда не заполняется автоматически: это всегда явное действие.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		count, err := fixtures.Seed(cmd.Context(), app.Storage())
		if err != nil {
			return fmt.Errorf("ошибка заполнения кэша: %w", err)
		}

		fmt.Printf("✅ Добавлено демонстрационных записей: %d\n", count)
		return nil
	},
}
