package models

import (
	"fmt"
	"time"
)

// ChildSettings текущие настройки безопасности и условия семейного соглашения ребенка.
type ChildSettings struct {
	ChildUID string `json:"child_uid" gorm:"primaryKey;size:128"`

	MonitoringIntervalMinutes int            `json:"monitoring_interval_minutes"`
	RetentionDays             int            `json:"retention_days"`
	AgeRestriction            int            `json:"age_restriction"`
	ScreenTimeDailyMinutes    int            `json:"screen_time_daily_minutes"`
	PerAppLimits              map[string]int `json:"per_app_limits" gorm:"serializer:json"`
	BedtimeStart              string         `json:"bedtime_start" gorm:"size:5"`
	BedtimeEnd                string         `json:"bedtime_end" gorm:"size:5"`
	CrisisAllowlist           []string       `json:"crisis_allowlist" gorm:"serializer:json"`

	AgreementScreenTimeMinutes int            `json:"agreement_screen_time_minutes"`
	AgreementBedtime           string         `json:"agreement_bedtime" gorm:"size:5"`
	AgreementAppLimits         map[string]int `json:"agreement_app_limits" gorm:"serializer:json"`
	AgreementCurfew            string         `json:"agreement_curfew" gorm:"size:5"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// DefaultChildSettings возвращает настройки нового ребенка. Отсутствие лимита
// приложения означает MaxDailyMinutes.
func DefaultChildSettings(childUID string) ChildSettings {
	return ChildSettings{
		ChildUID:                   childUID,
		MonitoringIntervalMinutes:  30,
		RetentionDays:              30,
		AgeRestriction:             12,
		ScreenTimeDailyMinutes:     MaxDailyMinutes,
		PerAppLimits:               map[string]int{},
		BedtimeStart:               "21:00",
		BedtimeEnd:                 "07:00",
		CrisisAllowlist:            []string{},
		AgreementScreenTimeMinutes: 120,
		AgreementBedtime:           "21:00",
		AgreementAppLimits:         map[string]int{},
		AgreementCurfew:            "20:00",
	}
}

// Current возвращает текущее значение для того же ключа, что и target
// (для лимита приложения берется то же приложение).
func (s ChildSettings) Current(target ChangeValue) (ChangeValue, error) {
	v := ChangeValue{Type: target.Type}
	switch target.Type {
	case ChangeMonitoringInterval:
		v.Number = s.MonitoringIntervalMinutes
	case ChangeRetentionPeriod:
		v.Number = s.RetentionDays
	case ChangeAgeRestriction:
		v.Number = s.AgeRestriction
	case ChangeScreenTimeDaily:
		v.Number = s.ScreenTimeDailyMinutes
	case ChangeScreenTimePerApp:
		v.App = target.App
		v.Number = MaxDailyMinutes
		if minutes, ok := s.PerAppLimits[target.App]; ok {
			v.Number = minutes
		}
	case ChangeBedtimeStart:
		v.Clock = s.BedtimeStart
	case ChangeBedtimeEnd:
		v.Clock = s.BedtimeEnd
	case ChangeCrisisAllowlist:
		v.Contacts = append([]string{}, s.CrisisAllowlist...)
	case ChangeAgreementScreenTime:
		v.Number = s.AgreementScreenTimeMinutes
	case ChangeAgreementBedtime:
		v.Clock = s.AgreementBedtime
	case ChangeAgreementAppLimits:
		v.Limits = copyLimits(s.AgreementAppLimits)
	case ChangeAgreementCurfew:
		v.Clock = s.AgreementCurfew
	default:
		return ChangeValue{}, fmt.Errorf("%w: %q", ErrUnknownChangeType, target.Type)
	}
	return v, nil
}

// Apply записывает значение в соответствующее поле.
func (s *ChildSettings) Apply(v ChangeValue, now time.Time) error {
	if err := v.Validate(); err != nil {
		return err
	}
	switch v.Type {
	case ChangeMonitoringInterval:
		s.MonitoringIntervalMinutes = v.Number
	case ChangeRetentionPeriod:
		s.RetentionDays = v.Number
	case ChangeAgeRestriction:
		s.AgeRestriction = v.Number
	case ChangeScreenTimeDaily:
		s.ScreenTimeDailyMinutes = v.Number
	case ChangeScreenTimePerApp:
		if s.PerAppLimits == nil {
			s.PerAppLimits = map[string]int{}
		}
		if v.Number >= MaxDailyMinutes {
			delete(s.PerAppLimits, v.App)
		} else {
			s.PerAppLimits[v.App] = v.Number
		}
	case ChangeBedtimeStart:
		s.BedtimeStart = v.Clock
	case ChangeBedtimeEnd:
		s.BedtimeEnd = v.Clock
	case ChangeCrisisAllowlist:
		s.CrisisAllowlist = append([]string{}, v.Contacts...)
	case ChangeAgreementScreenTime:
		s.AgreementScreenTimeMinutes = v.Number
	case ChangeAgreementBedtime:
		s.AgreementBedtime = v.Clock
	case ChangeAgreementAppLimits:
		s.AgreementAppLimits = copyLimits(v.Limits)
	case ChangeAgreementCurfew:
		s.AgreementCurfew = v.Clock
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChangeType, v.Type)
	}
	s.UpdatedAt = now
	return nil
}

func copyLimits(limits map[string]int) map[string]int {
	out := make(map[string]int, len(limits))
	for app, minutes := range limits {
		out[app] = minutes
	}
	return out
}
