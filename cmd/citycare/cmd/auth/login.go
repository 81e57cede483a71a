// cmd/citycare/cmd/auth/login.go
package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"citycare/cmd/citycare/cmd/types"
	"citycare/internal/app/client"
	"citycare/internal/domain/user"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти в систему CityCare",
	Long: `Аутентификация на удаленном источнике записей.

После входа сессия сохраняется в локальном хранилище для последующих
операций, в том числе для отправки отложенных записей.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, _ := cmd.Context().Value(types.ClientAppKey).(*client.App)
		if app == nil {
			return fmt.Errorf("приложение не инициализировано")
		}

		fmt.Println("=== Вход в систему ===")
		fmt.Println()

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

		// Выполняем вход
		fmt.Println("Аутентификация...")
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		session, err := app.Login(ctx, user.LoginRequest{
			Email:    email,
			Password: string(password),
		})
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		fmt.Println()
		fmt.Printf("✅ Добро пожаловать, %s!\n", session.Name)

		// Прогреваем локальный кэш
		fmt.Println("Загрузка записей...")
		result, err := app.Facade().ListStories(ctx)
		if err != nil {
			fmt.Printf("⚠️  Предупреждение: не удалось загрузить записи: %v\n", err)
			fmt.Println("Вы можете продолжить работу в офлайн-режиме")
		} else if result.FromCache {
			fmt.Printf("✓ Записей в локальном кэше: %d\n", len(result.Stories))
		} else {
			fmt.Printf("✓ Загружено записей: %d\n", len(result.Stories))
		}

		return nil
	},
}
