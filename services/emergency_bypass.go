package services

import "PinguinGuard/models"

// IsEmergencySafetyIncrease решает, является ли изменение строго защитным.
// Ужесточить защиту опекун может сразу и в одиночку; ослабить только через
// защищенный путь с участием второго опекуна.
func IsEmergencySafetyIncrease(changeType models.ChangeType, oldValue, newValue models.ChangeValue) bool {
	switch changeType {
	case models.ChangeMonitoringInterval:
		return newValue.Number < oldValue.Number
	case models.ChangeRetentionPeriod:
		return newValue.Number > oldValue.Number
	case models.ChangeScreenTimeDaily:
		return newValue.Number < oldValue.Number
	case models.ChangeScreenTimePerApp:
		return newValue.App == oldValue.App && newValue.Number < oldValue.Number
	case models.ChangeCrisisAllowlist:
		return true
	case models.ChangeAgeRestriction,
		models.ChangeBedtimeStart,
		models.ChangeBedtimeEnd,
		models.ChangeAgreementScreenTime,
		models.ChangeAgreementBedtime,
		models.ChangeAgreementAppLimits,
		models.ChangeAgreementCurfew:
		return false
	}
	return false
}
