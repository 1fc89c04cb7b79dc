package repositories

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict: запись изменилась с момента чтения (проиграна гонка).
	ErrConflict = errors.New("concurrent modification")
	// ErrOpenProposalExists: уже есть открытое предложение того же типа для ребенка.
	ErrOpenProposalExists = errors.New("open proposal already exists")
)
