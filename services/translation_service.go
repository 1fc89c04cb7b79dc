package services

import (
	"PinguinGuard/models"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TranslationService struct {
	DB               *gorm.DB
	translationCache map[string]map[string]string
	mutex            sync.RWMutex
}

func NewTranslationService(db *gorm.DB) *TranslationService {
	return &TranslationService{
		DB:               db,
		translationCache: make(map[string]map[string]string),
	}
}

func (s *TranslationService) GetAllTranslations(lang string) map[string]string {
	// Проверяем кэш
	s.mutex.RLock()
	if cached, exists := s.translationCache[lang]; exists {
		s.mutex.RUnlock()
		return cached
	}
	s.mutex.RUnlock()

	var translations []models.Translation
	if err := s.DB.Find(&translations).Error; err != nil {
		log.Printf("[TRANSLATION] Ошибка загрузки переводов: %v", err)
		return map[string]string{}
	}

	result := make(map[string]string, len(translations))
	for _, t := range translations {
		switch lang {
		case "ru":
			result[t.Key] = t.Russian
		case "kz":
			result[t.Key] = t.Kazakh
		default:
			result[t.Key] = t.English
		}
	}

	s.mutex.Lock()
	s.translationCache[lang] = result
	s.mutex.Unlock()

	return result
}

// Invalidate сбрасывает кэш после изменения переводов.
func (s *TranslationService) Invalidate() {
	s.mutex.Lock()
	s.translationCache = make(map[string]map[string]string)
	s.mutex.Unlock()
}

// ImportCSV загружает переводы из CSV с заголовком key,ru,en,kz.
// Существующие ключи обновляются. Возвращает число обработанных строк.
func (s *TranslationService) ImportCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Пропускаем заголовок
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("read header: %w", err)
	}

	var rows []models.Translation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < 4 || strings.TrimSpace(record[0]) == "" {
			log.Printf("[TRANSLATION] Строка %d пропущена: недостаточно данных", line)
			continue
		}
		rows = append(rows, models.Translation{
			Key:     strings.TrimSpace(record[0]),
			Russian: record[1],
			English: record[2],
			Kazakh:  record[3],
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"russian", "english", "kazakh", "last_updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("save translations: %w", err)
	}
	s.Invalidate()
	return len(rows), nil
}
