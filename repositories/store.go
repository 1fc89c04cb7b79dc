package repositories

import "context"

// Store объединяет репозитории, которые должны изменяться в одной транзакции:
// переход статуса предложения, запись настройки и запись аудита.
type Store interface {
	Proposals() ProposalRepository
	Settings() SettingsRepository
	Audit() AuditRepository
	// Transaction выполняет fn атомарно. Ошибка fn откатывает все изменения.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
