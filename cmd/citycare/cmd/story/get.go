// cmd/citycare/cmd/story/get.go
package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"citycare/internal/domain/story"
)

var getFormat string

var GetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Просмотреть запись",
	Long: `Просмотр записи по ID. Онлайн подтягивается полная версия с
удаленного источника и дозаполняется в кэше; офлайн показывается
локальная копия.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		result, err := app.Facade().GetStory(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, story.ErrNotFound) {
				return fmt.Errorf("запись %s не найдена ни в сети, ни в кэше", args[0])
			}
			return fmt.Errorf("ошибка получения записи: %w", err)
		}

		if result.FromCache {
			color.Yellow("⚠ Показана локальная копия (сеть недоступна)")
		}

		switch getFormat {
		case "json":
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result.Story)
		default:
			return printStoryHuman(result.Story)
		}
	},
}

func printStoryHuman(st story.Story) error {
	fmt.Printf("ID:          %s\n", st.ID)
	fmt.Printf("Автор:       %s\n", st.Name)
	fmt.Printf("Статус:      %s\n", originBadge(st.Origin))
	fmt.Printf("Создано:     %s\n", st.CreatedAt.Format("2006-01-02 15:04:05"))
	if !st.CachedAt.IsZero() {
		fmt.Printf("В кэше с:    %s\n", st.CachedAt.Format("2006-01-02 15:04:05"))
	}
	if st.HasLocation() {
		fmt.Printf("Координаты:  %.5f, %.5f\n", *st.Lat, *st.Lon)
	}
	if story.IsDataURI(st.PhotoURL) {
		fmt.Printf("Фото:        (встроено, ожидает отправки)\n")
	} else if st.PhotoURL != "" {
		fmt.Printf("Фото:        %s\n", st.PhotoURL)
	}
	if !st.HasFullDetails {
		fmt.Println("Детали:      неполные (подключитесь к сети для полной версии)")
	}
	fmt.Println()
	fmt.Println(st.Description)

	return nil
}

func init() {
	GetCmd.Flags().StringVarP(&getFormat, "format", "f", "human", "формат вывода (human, json)")
}
