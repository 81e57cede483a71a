// cmd/citycare/cmd/auth/register.go
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"citycare/cmd/citycare/cmd/types"
	"citycare/internal/app/client"
	"citycare/internal/domain/user"
)

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Зарегистрировать нового пользователя",
	Long: `Регистрация нового пользователя на удаленном источнике записей.

После регистрации выполните вход: citycare auth login.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Получаем приложение из контекста
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		fmt.Println("=== Регистрация нового пользователя ===")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)

		// Запрашиваем имя
		fmt.Print("Имя: ")
		name, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("ошибка чтения имени: %w", err)
		}
		name = strings.TrimSpace(name)

		// Запрашиваем email
		fmt.Print("Email: ")
		var email string
		_, _ = fmt.Scanln(&email)

		// Запрашиваем пароль
		fmt.Print("Пароль: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		fmt.Println()

		fmt.Print("Повторите пароль: ")
		passwordConfirm, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("ошибка чтения пароля: %w", err)
		}
		fmt.Println()

		if string(password) != string(passwordConfirm) {
			return fmt.Errorf("пароли не совпадают")
		}

		// Регистрируем пользователя
		fmt.Println("Регистрация...")
		err = app.Register(cmd.Context(), user.RegisterRequest{
			Name:     name,
			Email:    email,
			Password: string(password),
		})
		if err != nil {
			return fmt.Errorf("ошибка регистрации: %w", err)
		}

		fmt.Println()
		fmt.Println("✅ Регистрация успешно завершена!")
		fmt.Println("Теперь вы можете войти в систему: citycare auth login")

		return nil
	},
}
