package config

import (
	"log/slog"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/junyours/CSDL/models"
)

var DB *gorm.DB

func ConnectDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		slog.Error("Критическая ошибка: переменная окружения DB_URL не установлена.")
		os.Exit(1)
	}

	// TranslateError нужен, чтобы нарушение уникального индекса посещаемости
	// приходило как gorm.ErrDuplicatedKey, а не как сырая ошибка драйвера.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		slog.Error("Ошибка подключения к БД", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserModerator{},
		&models.UserStudentCouncil{},
		&models.Location{},
		&models.Sanction{},
		&models.Event{},
		&models.EventAttendance{},
		&models.EventSanctionSettlement{},
		&models.EventAttendanceModeConfig{},
		&models.Notification{},
		&models.NotificationUser{},
	); err != nil {
		slog.Error("Ошибка миграции схемы", "error", err)
		os.Exit(1)
	}

	DB = db
	slog.Info("Успешное подключение к базе данных!")
}
