package models

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

var (
	ErrUnknownChangeType = errors.New("unknown change type")
	ErrInvalidValue      = errors.New("invalid value for change type")
)

// Ограничения значений
const (
	MaxDailyMinutes   = 24 * 60
	MaxRetentionDays  = 3650
	MaxAgeRestriction = 21
	MaxAllowlistSize  = 50
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type valueShape int

const (
	shapeNumber valueShape = iota + 1
	shapeAppLimit
	shapeAppLimits
	shapeClock
	shapeContacts
)

func shapeOf(t ChangeType) (valueShape, error) {
	switch t {
	case ChangeMonitoringInterval, ChangeRetentionPeriod, ChangeAgeRestriction,
		ChangeScreenTimeDaily, ChangeAgreementScreenTime:
		return shapeNumber, nil
	case ChangeScreenTimePerApp:
		return shapeAppLimit, nil
	case ChangeAgreementAppLimits:
		return shapeAppLimits, nil
	case ChangeBedtimeStart, ChangeBedtimeEnd, ChangeAgreementBedtime, ChangeAgreementCurfew:
		return shapeClock, nil
	case ChangeCrisisAllowlist:
		return shapeContacts, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChangeType, t)
}

// ChangeValue типизированное значение настройки, размеченное по ChangeType.
// Какие поля заполнены, определяет Type:
//   - Number: интервал мониторинга (мин), срок хранения (дни), возрастное ограничение, минуты экранного времени
//   - App + Number: лимит для одного приложения
//   - Limits: лимиты приложений из соглашения
//   - Clock: время "HH:MM"
//   - Contacts: кризисный список контактов
type ChangeValue struct {
	Type     ChangeType
	Number   int
	App      string
	Limits   map[string]int
	Clock    string
	Contacts []string
}

type appLimitPayload struct {
	App     string `json:"app"`
	Minutes int    `json:"minutes"`
}

type changeValueEnvelope struct {
	Type  ChangeType      `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ParseChangeValue разбирает значение для указанного типа изменения.
// Неизвестный тип или некорректное значение отклоняются сразу.
func ParseChangeValue(t ChangeType, raw []byte) (ChangeValue, error) {
	shape, err := shapeOf(t)
	if err != nil {
		return ChangeValue{}, err
	}
	if len(raw) == 0 {
		return ChangeValue{}, fmt.Errorf("%w: %s: value is required", ErrInvalidValue, t)
	}

	value := ChangeValue{Type: t}
	switch shape {
	case shapeNumber:
		if err := json.Unmarshal(raw, &value.Number); err != nil {
			return ChangeValue{}, fmt.Errorf("%w: %s: expected integer", ErrInvalidValue, t)
		}
	case shapeAppLimit:
		var payload appLimitPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return ChangeValue{}, fmt.Errorf("%w: %s: expected {app, minutes}", ErrInvalidValue, t)
		}
		value.App = payload.App
		value.Number = payload.Minutes
	case shapeAppLimits:
		if err := json.Unmarshal(raw, &value.Limits); err != nil {
			return ChangeValue{}, fmt.Errorf("%w: %s: expected map of app to minutes", ErrInvalidValue, t)
		}
	case shapeClock:
		if err := json.Unmarshal(raw, &value.Clock); err != nil {
			return ChangeValue{}, fmt.Errorf("%w: %s: expected \"HH:MM\"", ErrInvalidValue, t)
		}
	case shapeContacts:
		if err := json.Unmarshal(raw, &value.Contacts); err != nil {
			return ChangeValue{}, fmt.Errorf("%w: %s: expected list of contacts", ErrInvalidValue, t)
		}
	}

	if err := value.Validate(); err != nil {
		return ChangeValue{}, err
	}
	return value, nil
}

// Validate проверяет диапазоны значения для его типа.
func (v ChangeValue) Validate() error {
	shape, err := shapeOf(v.Type)
	if err != nil {
		return err
	}
	invalid := func(reason string) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidValue, v.Type, reason)
	}

	switch shape {
	case shapeNumber:
		switch v.Type {
		case ChangeMonitoringInterval:
			if v.Number < 1 || v.Number > MaxDailyMinutes {
				return invalid("interval must be between 1 and 1440 minutes")
			}
		case ChangeRetentionPeriod:
			if v.Number < 1 || v.Number > MaxRetentionDays {
				return invalid("retention must be between 1 and 3650 days")
			}
		case ChangeAgeRestriction:
			if v.Number < 0 || v.Number > MaxAgeRestriction {
				return invalid("age restriction must be between 0 and 21")
			}
		default:
			if v.Number < 0 || v.Number > MaxDailyMinutes {
				return invalid("minutes must be between 0 and 1440")
			}
		}
	case shapeAppLimit:
		if strings.TrimSpace(v.App) == "" {
			return invalid("app is required")
		}
		if v.Number < 0 || v.Number > MaxDailyMinutes {
			return invalid("minutes must be between 0 and 1440")
		}
	case shapeAppLimits:
		for app, minutes := range v.Limits {
			if strings.TrimSpace(app) == "" {
				return invalid("app name cannot be empty")
			}
			if minutes < 0 || minutes > MaxDailyMinutes {
				return invalid(fmt.Sprintf("minutes for %s must be between 0 and 1440", app))
			}
		}
	case shapeClock:
		if !clockPattern.MatchString(v.Clock) {
			return invalid("expected \"HH:MM\"")
		}
	case shapeContacts:
		if len(v.Contacts) > MaxAllowlistSize {
			return invalid("too many contacts")
		}
		for _, contact := range v.Contacts {
			if strings.TrimSpace(contact) == "" {
				return invalid("contact cannot be empty")
			}
		}
	}
	return nil
}

// Payload возвращает значение в "естественной" форме для JSON.
func (v ChangeValue) Payload() interface{} {
	shape, _ := shapeOf(v.Type)
	switch shape {
	case shapeNumber:
		return v.Number
	case shapeAppLimit:
		return appLimitPayload{App: v.App, Minutes: v.Number}
	case shapeAppLimits:
		if v.Limits == nil {
			return map[string]int{}
		}
		return v.Limits
	case shapeClock:
		return v.Clock
	case shapeContacts:
		if v.Contacts == nil {
			return []string{}
		}
		return v.Contacts
	}
	return nil
}

// Equal сравнивает значения одного типа (порядок контактов не важен).
func (v ChangeValue) Equal(other ChangeValue) bool {
	if v.Type != other.Type {
		return false
	}
	shape, _ := shapeOf(v.Type)
	switch shape {
	case shapeNumber:
		return v.Number == other.Number
	case shapeAppLimit:
		return v.App == other.App && v.Number == other.Number
	case shapeAppLimits:
		if len(v.Limits) != len(other.Limits) {
			return false
		}
		for app, minutes := range v.Limits {
			if m, ok := other.Limits[app]; !ok || m != minutes {
				return false
			}
		}
		return true
	case shapeClock:
		return v.Clock == other.Clock
	case shapeContacts:
		return equalSets(v.Contacts, other.Contacts)
	}
	return false
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func (v ChangeValue) MarshalJSON() ([]byte, error) {
	if v.Type == "" {
		return []byte("null"), nil
	}
	value, err := json.Marshal(v.Payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(changeValueEnvelope{Type: v.Type, Value: value})
}

func (v *ChangeValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ChangeValue{}
		return nil
	}
	var envelope changeValueEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	parsed, err := ParseChangeValue(envelope.Type, envelope.Value)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
