package config

import (
	"log/slog"
	"os"
	"strconv"
)

// JwtKey - ключ подписи токенов. Инициализируется из окружения в LoadConfig.
var JwtKey []byte

// SMTPConfig хранит настройки почтового сервера для отправки учетных данных.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var SMTP SMTPConfig

// EnrollmentAPIConfig описывает подключение к внешней системе зачисления.
// Сам сервис зачисления нам не принадлежит, мы только читаем его данные.
type EnrollmentAPIConfig struct {
	BaseURL string
	Token   string
}

var EnrollmentAPI EnrollmentAPIConfig

// LoadConfig считывает конфигурацию из переменных окружения.
// Вызывается один раз при старте, после godotenv.Load.
func LoadConfig() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Критическая ошибка: переменная окружения JWT_SECRET не установлена.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)

	smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if smtpPort == 0 {
		smtpPort = 587
	}
	SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     smtpPort,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if SMTP.From == "" {
		SMTP.From = SMTP.Username
	}

	EnrollmentAPI = EnrollmentAPIConfig{
		BaseURL: os.Getenv("API_ENROLLMENT_SYSTEM_URL"),
		Token:   os.Getenv("API_ENROLLMENT_SYSTEM_TOKEN"),
	}
	if EnrollmentAPI.BaseURL == "" {
		slog.Warn("API_ENROLLMENT_SYSTEM_URL не установлен, функции зачисления будут недоступны.")
	}
}
