// cmd/citycare/cmd/auth/logout.go
package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"citycare/cmd/citycare/cmd/types"
	"citycare/internal/app/client"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти из системы",
	Long: `Удаляет сохраненную сессию. Локальный кэш записей при этом
не очищается.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		if !app.IsAuthenticated() {
			fmt.Println("Вы не авторизованы.")
			return nil
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка выхода: %w", err)
		}

		fmt.Println("✅ Выход выполнен. Локальный кэш сохранен.")
		return nil
	},
}
