// cmd/citycare/cmd/init.go
package cmd

import (
	"citycare/cmd/citycare/cmd/auth"
	"citycare/cmd/citycare/cmd/story"
	"citycare/cmd/citycare/cmd/sync"
)

func init() {
	// Добавляем команды аутентификации
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)

	// Добавляем команды работы с записями
	rootCmd.AddCommand(story.StoryCmd)
	story.StoryCmd.AddCommand(story.ListCmd)
	story.StoryCmd.AddCommand(story.GetCmd)
	story.StoryCmd.AddCommand(story.CreateCmd)
	story.StoryCmd.AddCommand(story.DeleteCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(watchCmd)
}
