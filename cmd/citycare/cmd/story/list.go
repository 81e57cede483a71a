// cmd/citycare/cmd/story/list.go
package story

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"citycare/internal/domain/story"
)

var listFormat string

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список записей",
	Long: `Просмотр объединенного списка записей: свежие данные удаленного
источника плюс локальные, еще не отправленные записи.

Без сети команда показывает последний локальный кэш.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		result, err := app.Facade().ListStories(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения списка записей: %w", err)
		}

		if result.FromCache {
			color.Yellow("⚠ Показан локальный кэш (сеть недоступна)")
		}
		if result.NoData {
			fmt.Println("Записей нет. Подключитесь к сети или добавьте запись офлайн.")
			return nil
		}

		// Выводим результат
		switch listFormat {
		case "json":
			return printStoriesJSON(result.Stories)
		case "table":
			return printStoriesTable(result.Stories)
		default:
			return printStoriesSimple(result.Stories)
		}
	},
}

func originBadge(origin story.Origin) string {
	switch origin {
	case story.OriginLocalPending:
		return color.YellowString("⏳ ожидает отправки")
	case story.OriginLocalSynced:
		return color.GreenString("✓ отправлена")
	default:
		return "из сети"
	}
}

func printStoriesSimple(stories []story.Story) error {
	fmt.Printf("Найдено записей: %d\n\n", len(stories))

	for i, st := range stories {
		fmt.Printf("%d. %s [%s]\n", i+1, truncate(st.Description, 60), originBadge(st.Origin))
		fmt.Printf("   ID: %s | Автор: %s | Создано: %s\n",
			st.ID,
			st.Name,
			st.CreatedAt.Format("2006-01-02 15:04"))
		if st.HasLocation() {
			fmt.Printf("   Координаты: %.4f, %.4f\n", *st.Lat, *st.Lon)
		}
		fmt.Println()
	}

	return nil
}

func printStoriesTable(stories []story.Story) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tАвтор\tОписание\tСтатус\tСоздано\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t\n")

	for _, st := range stories {
		status := string(st.Origin)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			st.ID,
			st.Name,
			truncate(st.Description, 40),
			status,
			st.CreatedAt.Format("2006-01-02"),
		)
	}

	w.Flush()
	fmt.Printf("\nВсего записей: %d\n", len(stories))
	return nil
}

func printStoriesJSON(stories []story.Story) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stories)
}

func truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length-3]) + "..."
}

func init() {
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "simple", "формат вывода (simple, table, json)")
}
