// scripts/import_translations.go
package main

import (
	"PinguinGuard/config"
	"PinguinGuard/services"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	path := flag.String("file", "translate.csv", "CSV с колонками key,ru,en,kz")
	flag.Parse()

	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		log.Println("Ошибка при загрузке .env файла, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("Ошибка при открытии файла %s: %v", *path, err)
	}
	defer file.Close()

	count, err := services.NewTranslationService(db).ImportCSV(file)
	if err != nil {
		log.Fatalf("Ошибка импорта: %v", err)
	}
	log.Printf("Импорт завершен. Всего обработано: %d записей", count)
}
