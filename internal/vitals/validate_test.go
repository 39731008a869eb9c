package vitals

import (
	"testing"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name      string
		reading   Reading
		wantField string
	}{
		{"heart rate too low", Reading{HeartRate: intPtr(20)}, "vitals.heart_rate"},
		{"heart rate too high", Reading{HeartRate: intPtr(300)}, "vitals.heart_rate"},
		{"respiratory rate too low", Reading{RespiratoryRate: intPtr(2)}, "vitals.respiratory_rate"},
		{"temperature too low", Reading{TemperatureF: floatPtr(85)}, "vitals.temperature"},
		{"temperature too high", Reading{TemperatureF: floatPtr(113)}, "vitals.temperature"},
		{"oxygen saturation too low", Reading{OxygenSaturation: intPtr(40)}, "vitals.oxygen_saturation"},
		{"oxygen saturation over 100", Reading{OxygenSaturation: intPtr(101)}, "vitals.oxygen_saturation"},
		{"pain level out of range", Reading{PainLevel: intPtr(11)}, "vitals.pain_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := Validate(&tt.reading)
			if len(errs[tt.wantField]) == 0 {
				t.Errorf("expected error keyed %q, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateIndependentFields(t *testing.T) {
	// A bad heart rate must not hide a valid temperature, and the error must
	// be keyed to the specific measurement.
	reading := Reading{
		HeartRate:    intPtr(20),
		TemperatureF: floatPtr(98.6),
	}
	_, errs := Validate(&reading)
	if len(errs["vitals.heart_rate"]) == 0 {
		t.Error("expected vitals.heart_rate error")
	}
	if len(errs["vitals.temperature"]) != 0 {
		t.Errorf("valid temperature must not error: %v", errs["vitals.temperature"])
	}
}

func TestValidateEmptyReading(t *testing.T) {
	_, errs := Validate(&Reading{})
	if len(errs["vitals"]) == 0 {
		t.Errorf("expected an error for an empty reading, got %v", errs)
	}
}

func TestBloodPressureCombinedString(t *testing.T) {
	reading := Reading{BloodPressure: "120/80"}
	norm, errs := Validate(&reading)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if norm.Systolic == nil || *norm.Systolic != 120 {
		t.Errorf("expected systolic normalized to 120, got %v", norm.Systolic)
	}
	if norm.Diastolic == nil || *norm.Diastolic != 80 {
		t.Errorf("expected diastolic normalized to 80, got %v", norm.Diastolic)
	}
}

func TestBloodPressureCombinedStringWithSpaces(t *testing.T) {
	reading := Reading{BloodPressure: " 118 / 76 "}
	norm, errs := Validate(&reading)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if *norm.Systolic != 118 || *norm.Diastolic != 76 {
		t.Errorf("unexpected normalization: %d/%d", *norm.Systolic, *norm.Diastolic)
	}
}

func TestValidateLeavesInputUntouched(t *testing.T) {
	reading := Reading{BloodPressure: "120/80"}
	if _, errs := Validate(&reading); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if reading.Systolic != nil || reading.Diastolic != nil {
		t.Errorf("input reading was modified: %+v", reading)
	}
}

func TestBloodPressureSystolicOutOfRange(t *testing.T) {
	reading := Reading{BloodPressure: "999/80"}
	_, errs := Validate(&reading)
	if len(errs["vitals.systolic"]) == 0 {
		t.Errorf("expected vitals.systolic range error, got %v", errs)
	}
	if len(errs["vitals.diastolic"]) != 0 {
		t.Errorf("diastolic 80 must not error: %v", errs["vitals.diastolic"])
	}
}

func TestBloodPressureMalformed(t *testing.T) {
	for _, bp := range []string{"120", "120-80", "abc/def", "1/2"} {
		reading := Reading{BloodPressure: bp}
		_, errs := Validate(&reading)
		if len(errs["vitals.blood_pressure"]) == 0 {
			t.Errorf("expected vitals.blood_pressure error for %q, got %v", bp, errs)
		}
	}
}

func TestBloodPressureDiscreteFields(t *testing.T) {
	reading := Reading{Systolic: intPtr(130), Diastolic: intPtr(85)}
	if _, errs := Validate(&reading); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestBloodPressureHalfDiscrete(t *testing.T) {
	reading := Reading{Systolic: intPtr(130)}
	_, errs := Validate(&reading)
	if len(errs["vitals.blood_pressure"]) == 0 {
		t.Errorf("expected error when only systolic is given, got %v", errs)
	}
}

func TestBloodPressureBothForms(t *testing.T) {
	reading := Reading{BloodPressure: "120/80", Systolic: intPtr(120)}
	_, errs := Validate(&reading)
	if len(errs["vitals.blood_pressure"]) == 0 {
		t.Errorf("expected error when both forms are given, got %v", errs)
	}
}

func TestObservationsAbnormalFlags(t *testing.T) {
	reading := Reading{
		HeartRate:        intPtr(120), // tachycardic but submittable
		OxygenSaturation: intPtr(99),
		BloodPressure:    "150/95",
	}
	norm, errs := Validate(&reading)
	if len(errs) != 0 {
		t.Fatalf("expected valid reading, got %v", errs)
	}

	obs := Observations(&norm, "enc-1", "pat-1", "user-1")
	byCode := map[Code]Observation{}
	for _, o := range obs {
		byCode[o.Code] = o
	}

	if !byCode[CodeHeartRate].Abnormal {
		t.Error("heart rate 120 should be flagged abnormal")
	}
	if byCode[CodeOxygenSaturation].Abnormal {
		t.Error("SpO2 99 should not be flagged abnormal")
	}
	bp := byCode[CodeBloodPressure]
	if bp.Value != "150/95" || !bp.Abnormal {
		t.Errorf("expected abnormal 150/95 observation, got %+v", bp)
	}
	if bp.EncounterID != "enc-1" || bp.RecorderID != "user-1" {
		t.Errorf("observation references not set: %+v", bp)
	}
}
