// cmd/citycare/cmd/story/create.go
package story

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"citycare/internal/domain/story"
)

var (
	description string
	photoPath   string
	lat         float64
	lon         float64
)

var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Создать новую запись",
	Long: `Публикация сообщения о городской проблеме с фотографией.

Без сети запись сохраняется локально и отправляется автоматически
при восстановлении связи (или командой citycare sync).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := appFromContext(cmd)
		if err != nil {
			return err
		}

		if description == "" {
			return fmt.Errorf("укажите описание: --description")
		}
		if photoPath == "" {
			return fmt.Errorf("укажите фотографию: --photo")
		}

		photoData, err := os.ReadFile(photoPath)
		if err != nil {
			return fmt.Errorf("ошибка чтения фотографии: %w", err)
		}

		photoType := mime.TypeByExtension(filepath.Ext(photoPath))
		if photoType == "" || !strings.HasPrefix(photoType, "image/") {
			photoType = "image/jpeg"
		}

		n := story.NewStory{
			Description: description,
			PhotoData:   photoData,
			PhotoName:   filepath.Base(photoPath),
			PhotoType:   photoType,
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
			n.Lat = &lat
			n.Lon = &lon
		} else if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
			return fmt.Errorf("координаты указываются парой: --lat и --lon")
		}

		fmt.Println("Публикация записи...")
		result, err := app.Facade().SubmitStory(cmd.Context(), n)
		if err != nil {
			if errors.Is(err, story.ErrValidation) {
				return fmt.Errorf("запись не прошла проверку: %w", err)
			}
			return fmt.Errorf("ошибка создания записи: %w", err)
		}

		fmt.Println()
		if result.Pending {
			color.Yellow("⏳ Сеть недоступна: запись сохранена локально (ID: %s)", result.Story.ID)
			fmt.Println("Она будет отправлена автоматически при восстановлении связи.")
		} else {
			color.Green("✅ Запись опубликована (ID: %s)", result.Story.ID)
		}

		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVarP(&description, "description", "d", "", "описание проблемы")
	CreateCmd.Flags().StringVarP(&photoPath, "photo", "p", "", "путь к фотографии")
	CreateCmd.Flags().Float64Var(&lat, "lat", 0, "широта")
	CreateCmd.Flags().Float64Var(&lon, "lon", 0, "долгота")
}
