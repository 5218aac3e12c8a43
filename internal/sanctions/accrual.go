// Package sanctions считает задолженность студента по санкциям: какие
// контрольные точки требовались, какие отмечены, какие пропущены и
// сколько в итоге накопилось денег и минут отработки.
package sanctions

import (
	"github.com/shopspring/decimal"

	"github.com/junyours/CSDL/models"
)

// EventResult - разбор одного события с непустым списком пропусков.
type EventResult struct {
	Event               *models.Event    `json:"event"`
	RequiredCheckpoints []string         `json:"required_checkpoints"`
	AttendedCheckpoints []string         `json:"attended_checkpoints"`
	MissingCheckpoints  []string         `json:"missing_checkpoints"`
	SanctionApplied     *models.Sanction `json:"sanction_applied"`
}

// Totals - накопленные итоги по всем событиям студента.
type Totals struct {
	Monetary       decimal.Decimal
	ServiceMinutes int64
}

// ComputeOwedSanctions - чистая функция: на вход уже отфильтрованный
// список событий студента (активные, не отмененные, не будущие, без
// действующего погашения - этот отбор делает вызывающая сторона) с
// предзагруженными Attendances и Sanction. События без пропусков в
// результат не попадают.
func ComputeOwedSanctions(userIDNo string, events []models.Event) ([]EventResult, Totals) {
	results := make([]EventResult, 0, len(events))
	totals := Totals{Monetary: decimal.Zero}

	for i := range events {
		event := &events[i]

		required := event.RequiredCheckpoints()

		attended := make([]string, 0, len(required))
		attendedSet := make(map[string]bool)
		for _, att := range event.Attendances {
			if att.UserIDNo != userIDNo {
				continue
			}
			if !attendedSet[att.Checkpoint] {
				attendedSet[att.Checkpoint] = true
				attended = append(attended, att.Checkpoint)
			}
		}

		// Разность множеств с сохранением порядка required.
		missing := make([]string, 0, len(required))
		for _, cp := range required {
			if !attendedSet[cp] {
				missing = append(missing, cp)
			}
		}

		if len(missing) == 0 {
			continue
		}

		var applied *models.Sanction
		if event.Sanction != nil {
			applied = event.Sanction
			missingCount := int64(len(missing))

			switch applied.SanctionType {
			case models.SanctionTypeMonetary:
				if applied.MonetaryAmount.Valid {
					accrued := applied.MonetaryAmount.Decimal.Mul(decimal.NewFromInt(missingCount))
					totals.Monetary = totals.Monetary.Add(accrued)
				}
			case models.SanctionTypeService:
				if applied.ServiceTime != nil {
					units := int64(*applied.ServiceTime) * missingCount
					if applied.ServiceTimeType != nil && *applied.ServiceTimeType == models.ServiceTimeHours {
						units *= 60
					}
					totals.ServiceMinutes += units
				}
			}
		}

		results = append(results, EventResult{
			Event:               event,
			RequiredCheckpoints: required,
			AttendedCheckpoints: attended,
			MissingCheckpoints:  missing,
			SanctionApplied:     applied,
		})
	}

	return results, totals
}
