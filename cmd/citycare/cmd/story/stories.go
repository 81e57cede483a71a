package story

import (
	"fmt"

	"github.com/spf13/cobra"

	"citycare/cmd/citycare/cmd/types"
	"citycare/internal/app/client"
)

// StoryCmd - родительская команда для всех операций с записями
var StoryCmd = &cobra.Command{
	Use:   "story",
	Short: "Управление записями",
	Long:  `Просмотр, создание и удаление сообщений о городских проблемах.`,
}

func appFromContext(cmd *cobra.Command) (*client.App, error) {
	app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
	if app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
