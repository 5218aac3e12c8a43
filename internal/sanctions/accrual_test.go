package sanctions

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/junyours/CSDL/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func monetarySanction(amount string) *models.Sanction {
	return &models.Sanction{
		SanctionType:   models.SanctionTypeMonetary,
		SanctionName:   "Absence fine",
		MonetaryAmount: decimal.NullDecimal{Decimal: decimal.RequireFromString(amount), Valid: true},
	}
}

func serviceSanction(timeUnits int, timeType string) *models.Sanction {
	return &models.Sanction{
		SanctionType:    models.SanctionTypeService,
		SanctionName:    "Community service",
		ServiceTime:     intPtr(timeUnits),
		ServiceTimeType: strPtr(timeType),
	}
}

func TestComputeOwedSanctionsDoubleEvent(t *testing.T) {
	event := models.Event{
		EventName:       "Foundation Day",
		AttendanceType:  models.AttendanceTypeDouble,
		FirstStartTime:  strPtr("08:00"),
		FirstEndTime:    strPtr("10:00"),
		SecondStartTime: strPtr("13:00"),
		SecondEndTime:   strPtr("15:00"),
		Sanction:        monetarySanction("50.00"),
		Attendances: []models.EventAttendance{
			{UserIDNo: "2021-0001", Checkpoint: models.CheckpointFirstStartTime},
			{UserIDNo: "2021-0001", Checkpoint: models.CheckpointFirstEndTime},
			// Чужие отметки не засчитываются.
			{UserIDNo: "2021-9999", Checkpoint: models.CheckpointSecondStartTime},
		},
	}

	results, totals := ComputeOwedSanctions("2021-0001", []models.Event{event})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	res := results[0]
	wantMissing := []string{models.CheckpointSecondStartTime, models.CheckpointSecondEndTime}
	if len(res.MissingCheckpoints) != len(wantMissing) {
		t.Fatalf("missing = %v, want %v", res.MissingCheckpoints, wantMissing)
	}
	for i, cp := range wantMissing {
		if res.MissingCheckpoints[i] != cp {
			t.Errorf("missing[%d] = %s, want %s", i, res.MissingCheckpoints[i], cp)
		}
	}

	// 50.00 за каждую из двух пропущенных точек.
	if !totals.Monetary.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("monetary total = %s, want 100.00", totals.Monetary)
	}
	if totals.ServiceMinutes != 0 {
		t.Errorf("service minutes = %d, want 0", totals.ServiceMinutes)
	}
}

func TestComputeOwedSanctionsServiceHours(t *testing.T) {
	event := models.Event{
		EventName:      "Orientation",
		AttendanceType: models.AttendanceTypeSingle,
		StartTime:      strPtr("09:00"),
		EndTime:        strPtr("11:00"),
		Sanction:       serviceSanction(1, models.ServiceTimeHours),
	}

	// Студент не отметился вообще: 1 час x 2 точки = 120 минут.
	_, totals := ComputeOwedSanctions("2021-0002", []models.Event{event})
	if totals.ServiceMinutes != 120 {
		t.Errorf("service minutes = %d, want 120", totals.ServiceMinutes)
	}
}

func TestComputeOwedSanctionsServiceMinutes(t *testing.T) {
	event := models.Event{
		EventName:      "Assembly",
		AttendanceType: models.AttendanceTypeSingle,
		StartTime:      strPtr("09:00"),
		EndTime:        strPtr("11:00"),
		Sanction:       serviceSanction(30, models.ServiceTimeMinutes),
		Attendances: []models.EventAttendance{
			{UserIDNo: "2021-0003", Checkpoint: models.CheckpointStartTime},
		},
	}

	_, totals := ComputeOwedSanctions("2021-0003", []models.Event{event})
	if totals.ServiceMinutes != 30 {
		t.Errorf("service minutes = %d, want 30", totals.ServiceMinutes)
	}
}

func TestComputeOwedSanctionsSkipsFullyAttended(t *testing.T) {
	event := models.Event{
		EventName:      "Seminar",
		AttendanceType: models.AttendanceTypeSingle,
		StartTime:      strPtr("09:00"),
		EndTime:        strPtr("11:00"),
		Sanction:       monetarySanction("25.00"),
		Attendances: []models.EventAttendance{
			{UserIDNo: "2021-0004", Checkpoint: models.CheckpointStartTime},
			{UserIDNo: "2021-0004", Checkpoint: models.CheckpointEndTime},
		},
	}

	results, totals := ComputeOwedSanctions("2021-0004", []models.Event{event})
	if len(results) != 0 {
		t.Fatalf("fully attended event must be excluded, got %d results", len(results))
	}
	if !totals.Monetary.IsZero() {
		t.Errorf("monetary total = %s, want 0", totals.Monetary)
	}
}

func TestComputeOwedSanctionsPartialSchedule(t *testing.T) {
	// У double-события запланированы только первая пара точек: вторая
	// смена не требуется и не попадает в пропуски.
	event := models.Event{
		EventName:      "Half-day event",
		AttendanceType: models.AttendanceTypeDouble,
		FirstStartTime: strPtr("08:00"),
		FirstEndTime:   strPtr("10:00"),
		Sanction:       monetarySanction("10.00"),
	}

	results, totals := ComputeOwedSanctions("2021-0005", []models.Event{event})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(results[0].RequiredCheckpoints) != 2 {
		t.Errorf("required = %v, want first pair only", results[0].RequiredCheckpoints)
	}
	if !totals.Monetary.Equal(decimal.RequireFromString("20.00")) {
		t.Errorf("monetary total = %s, want 20.00", totals.Monetary)
	}
}

func TestComputeOwedSanctionsDuplicateAttendanceCountedOnce(t *testing.T) {
	event := models.Event{
		EventName:      "Sports Fest",
		AttendanceType: models.AttendanceTypeSingle,
		StartTime:      strPtr("09:00"),
		EndTime:        strPtr("11:00"),
		Sanction:       monetarySanction("25.00"),
		Attendances: []models.EventAttendance{
			{UserIDNo: "2021-0006", Checkpoint: models.CheckpointStartTime},
			{UserIDNo: "2021-0006", Checkpoint: models.CheckpointStartTime},
		},
	}

	results, _ := ComputeOwedSanctions("2021-0006", []models.Event{event})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(results[0].AttendedCheckpoints) != 1 {
		t.Errorf("attended = %v, duplicates must collapse", results[0].AttendedCheckpoints)
	}
	if len(results[0].MissingCheckpoints) != 1 || results[0].MissingCheckpoints[0] != models.CheckpointEndTime {
		t.Errorf("missing = %v, want [end_time]", results[0].MissingCheckpoints)
	}
}
