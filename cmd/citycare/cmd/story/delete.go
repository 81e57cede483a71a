// cmd/citycare/cmd/story/delete.go
package story

import (
	"fmt"

	"github.com/spf13/cobra"
)

var DeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Удалить запись из локального кэша",
	Long: `Удаляет запись из локального кэша. На удаленном источнике запись
не трогается: при следующей синхронизации она может вернуться.

Если запись еще не была отправлена, снимается и ее отложенная отправка.
Повторное удаление не является ошибкой.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		if err := app.Facade().RemoveStory(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("ошибка удаления записи: %w", err)
		}

		fmt.Printf("✅ Запись %s удалена из локального кэша\n", args[0])
		return nil
	},
}
