package models

// ChangeType вид изменяемой настройки. Фиксированное перечисление.
type ChangeType string

const (
	// Настройки безопасности (путь через период охлаждения)
	ChangeMonitoringInterval ChangeType = "monitoring_interval"
	ChangeRetentionPeriod    ChangeType = "retention_period"
	ChangeAgeRestriction     ChangeType = "age_restriction"
	ChangeScreenTimeDaily    ChangeType = "screen_time_daily"
	ChangeScreenTimePerApp   ChangeType = "screen_time_per_app"
	ChangeBedtimeStart       ChangeType = "bedtime_start"
	ChangeBedtimeEnd         ChangeType = "bedtime_end"
	ChangeCrisisAllowlist    ChangeType = "crisis_allowlist"

	// Условия семейного соглашения (путь через подписи)
	ChangeAgreementScreenTime ChangeType = "agreement_screen_time"
	ChangeAgreementBedtime    ChangeType = "agreement_bedtime"
	ChangeAgreementAppLimits  ChangeType = "agreement_app_limits"
	ChangeAgreementCurfew     ChangeType = "agreement_curfew"
)

// ProposalFlow определяет, каким защищенным путем идет одобренное предложение.
type ProposalFlow string

const (
	FlowCooling    ProposalFlow = "cooling"
	FlowSignatures ProposalFlow = "signatures"
)

var AllChangeTypes = []ChangeType{
	ChangeMonitoringInterval,
	ChangeRetentionPeriod,
	ChangeAgeRestriction,
	ChangeScreenTimeDaily,
	ChangeScreenTimePerApp,
	ChangeBedtimeStart,
	ChangeBedtimeEnd,
	ChangeCrisisAllowlist,
	ChangeAgreementScreenTime,
	ChangeAgreementBedtime,
	ChangeAgreementAppLimits,
	ChangeAgreementCurfew,
}

func (t ChangeType) IsValid() bool {
	for _, known := range AllChangeTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ChangeType) IsAgreement() bool {
	switch t {
	case ChangeAgreementScreenTime, ChangeAgreementBedtime, ChangeAgreementAppLimits, ChangeAgreementCurfew:
		return true
	}
	return false
}

func (t ChangeType) IsSafetySetting() bool {
	return t.IsValid() && !t.IsAgreement()
}

func (t ChangeType) Flow() ProposalFlow {
	if t.IsAgreement() {
		return FlowSignatures
	}
	return FlowCooling
}
