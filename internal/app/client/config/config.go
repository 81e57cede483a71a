package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultBaseURL       = "https://story-api.dicoding.dev/v1"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".citycare"
	defaultPageSize      = 20
	defaultProbeInterval = 15
	defaultMaxPhotoBytes = 1 << 20
)

type Config struct {
	Env            string `mapstructure:"app_env"`
	BaseURL        string `mapstructure:"base_url"`
	LogLevel       string `mapstructure:"log_level"`
	ConfigDir      string `mapstructure:"config_dir"`
	DataPath       string `mapstructure:"data_path"`
	PageSize       int    `mapstructure:"page_size"`
	ProbeInterval  int    `mapstructure:"probe_interval_seconds"`
	MaxPhotoBytes  int64  `mapstructure:"max_photo_bytes"`
	RequestTimeout int    `mapstructure:"request_timeout_seconds"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Пробуем найти .env в родительской директории
		envPath = "../.env"
	}

	// Загружаем .env файл если существует
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	// Устанавливаем значения по умолчанию
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("BASE_URL", defaultBaseURL)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("PAGE_SIZE", defaultPageSize)
	viper.SetDefault("PROBE_INTERVAL_SECONDS", defaultProbeInterval)
	viper.SetDefault("MAX_PHOTO_BYTES", defaultMaxPhotoBytes)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)

	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	// Вычисляем пути для хранения данных
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	// Создаем директории если их нет
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "citycare.db")
	}

	config := &Config{
		Env:            viper.GetString("APP_ENV"),
		BaseURL:        viper.GetString("BASE_URL"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		ConfigDir:      configDir,
		DataPath:       dataPath,
		PageSize:       viper.GetInt("PAGE_SIZE"),
		ProbeInterval:  viper.GetInt("PROBE_INTERVAL_SECONDS"),
		MaxPhotoBytes:  viper.GetInt64("MAX_PHOTO_BYTES"),
		RequestTimeout: viper.GetInt("REQUEST_TIMEOUT_SECONDS"),
	}

	// Валидация конфигурации
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url не может быть пустым")
	}
	if c.DataPath == "" {
		return fmt.Errorf("data_path не может быть пустым")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
