package vitals

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Submission ranges. Values outside these bounds are rejected outright; they
// are implausible for a live patient and almost always data-entry mistakes.
const (
	minHeartRate = 30
	maxHeartRate = 250
	minRespRate  = 5
	maxRespRate  = 60
	minTempF     = 90.0
	maxTempF     = 110.0
	minSpO2      = 50
	maxSpO2      = 100
	minPain      = 0
	maxPain      = 10
	minSystolic  = 50
	maxSystolic  = 300
	minDiastolic = 30
	maxDiastolic = 200
)

var bpPattern = regexp.MustCompile(`^\s*(\d{2,3})\s*/\s*(\d{2,3})\s*$`)

// Validate checks a reading and returns a normalized copy alongside
// field-keyed errors. The input itself is never modified; when blood
// pressure arrives as the combined "120/80" string, the copy carries it as
// discrete Systolic and Diastolic. Each measurement is validated
// independently so callers know exactly which one to flag.
func Validate(in *Reading) (Reading, map[string][]string) {
	errs := make(map[string][]string)

	if in == nil || in.Empty() {
		errs["vitals"] = append(errs["vitals"], "at least one measurement is required")
		return Reading{}, errs
	}
	r := *in

	if r.HeartRate != nil && (*r.HeartRate < minHeartRate || *r.HeartRate > maxHeartRate) {
		errs["vitals.heart_rate"] = append(errs["vitals.heart_rate"],
			fmt.Sprintf("heart rate must be between %d and %d bpm", minHeartRate, maxHeartRate))
	}
	if r.RespiratoryRate != nil && (*r.RespiratoryRate < minRespRate || *r.RespiratoryRate > maxRespRate) {
		errs["vitals.respiratory_rate"] = append(errs["vitals.respiratory_rate"],
			fmt.Sprintf("respiratory rate must be between %d and %d breaths/min", minRespRate, maxRespRate))
	}
	if r.TemperatureF != nil && (*r.TemperatureF < minTempF || *r.TemperatureF > maxTempF) {
		errs["vitals.temperature"] = append(errs["vitals.temperature"],
			fmt.Sprintf("temperature must be between %.0f and %.0f F", minTempF, maxTempF))
	}
	if r.OxygenSaturation != nil && (*r.OxygenSaturation < minSpO2 || *r.OxygenSaturation > maxSpO2) {
		errs["vitals.oxygen_saturation"] = append(errs["vitals.oxygen_saturation"],
			fmt.Sprintf("oxygen saturation must be between %d and %d percent", minSpO2, maxSpO2))
	}
	if r.PainLevel != nil && (*r.PainLevel < minPain || *r.PainLevel > maxPain) {
		errs["vitals.pain_level"] = append(errs["vitals.pain_level"],
			fmt.Sprintf("pain level must be between %d and %d", minPain, maxPain))
	}

	validateBloodPressure(&r, errs)

	return r, errs
}

// validateBloodPressure accepts either the combined "120/80" string or the
// two discrete fields, and normalizes the combined form into Systolic and
// Diastolic on the copy under validation.
func validateBloodPressure(r *Reading, errs map[string][]string) {
	if r.BloodPressure != "" {
		if r.Systolic != nil || r.Diastolic != nil {
			errs["vitals.blood_pressure"] = append(errs["vitals.blood_pressure"],
				"blood pressure must be submitted as either a combined string or discrete fields, not both")
			return
		}
		m := bpPattern.FindStringSubmatch(r.BloodPressure)
		if m == nil {
			errs["vitals.blood_pressure"] = append(errs["vitals.blood_pressure"],
				`blood pressure must be in "systolic/diastolic" form, e.g. "120/80"`)
			return
		}
		sys, _ := strconv.Atoi(strings.TrimSpace(m[1]))
		dia, _ := strconv.Atoi(strings.TrimSpace(m[2]))
		r.Systolic = &sys
		r.Diastolic = &dia
	}

	if (r.Systolic == nil) != (r.Diastolic == nil) {
		errs["vitals.blood_pressure"] = append(errs["vitals.blood_pressure"],
			"systolic and diastolic must be provided together")
		return
	}
	if r.Systolic != nil && (*r.Systolic < minSystolic || *r.Systolic > maxSystolic) {
		errs["vitals.systolic"] = append(errs["vitals.systolic"],
			fmt.Sprintf("systolic pressure must be between %d and %d mmHg", minSystolic, maxSystolic))
	}
	if r.Diastolic != nil && (*r.Diastolic < minDiastolic || *r.Diastolic > maxDiastolic) {
		errs["vitals.diastolic"] = append(errs["vitals.diastolic"],
			fmt.Sprintf("diastolic pressure must be between %d and %d mmHg", minDiastolic, maxDiastolic))
	}
}

// Observations expands a validated reading into observation rows. The
// abnormal flag marks values outside clinically normal bands, which is a
// narrower range than the submission bounds above.
func Observations(r *Reading, encounterID, patientID, recorderID string) []Observation {
	observedAt := r.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	var out []Observation
	add := func(code Code, value, units string, abnormal bool) {
		out = append(out, Observation{
			EncounterID: encounterID,
			PatientID:   patientID,
			Code:        code,
			Value:       value,
			Units:       units,
			Abnormal:    abnormal,
			ObservedAt:  observedAt,
			RecorderID:  recorderID,
		})
	}

	if r.HeartRate != nil {
		v := *r.HeartRate
		add(CodeHeartRate, strconv.Itoa(v), "bpm", v < 60 || v > 100)
	}
	if r.RespiratoryRate != nil {
		v := *r.RespiratoryRate
		add(CodeRespiratoryRate, strconv.Itoa(v), "breaths/min", v < 12 || v > 20)
	}
	if r.TemperatureF != nil {
		v := *r.TemperatureF
		add(CodeTemperature, strconv.FormatFloat(v, 'f', 1, 64), "F", v < 97.0 || v > 100.4)
	}
	if r.OxygenSaturation != nil {
		v := *r.OxygenSaturation
		add(CodeOxygenSaturation, strconv.Itoa(v), "%", v < 95)
	}
	if r.Systolic != nil && r.Diastolic != nil {
		sys, dia := *r.Systolic, *r.Diastolic
		value := fmt.Sprintf("%d/%d", sys, dia)
		add(CodeBloodPressure, value, "mmHg", sys >= 140 || dia >= 90 || sys < 90)
	}
	if r.PainLevel != nil {
		v := *r.PainLevel
		add(CodePainLevel, strconv.Itoa(v), "0-10", v >= 7)
	}

	return out
}
