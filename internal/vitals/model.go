// Package vitals records clinical measurements taken during an encounter.
package vitals

import "time"

// Code identifies the kind of measurement.
type Code string

const (
	CodeHeartRate        Code = "heart-rate"
	CodeRespiratoryRate  Code = "respiratory-rate"
	CodeTemperature      Code = "temperature"
	CodeOxygenSaturation Code = "oxygen-saturation"
	CodeBloodPressure    Code = "blood-pressure"
	CodePainLevel        Code = "pain-level"
)

// Observation is a single recorded measurement. Observations are immutable
// after creation; corrections go through the encounter amendment flow, never
// through edits.
type Observation struct {
	ID          string    `json:"id"`
	EncounterID string    `json:"encounter_id"`
	PatientID   string    `json:"patient_id"`
	Code        Code      `json:"code"`
	Value       string    `json:"value"`
	Units       string    `json:"units"`
	Abnormal    bool      `json:"abnormal"`
	ObservedAt  time.Time `json:"observed_at"`
	RecorderID  string    `json:"recorder_id"`
}

// Reading is one measurement event as submitted by a caller. All fields are
// optional; blood pressure may arrive as the combined "120/80" string or as
// two discrete numeric fields.
type Reading struct {
	HeartRate        *int      `json:"heart_rate,omitempty"`
	RespiratoryRate  *int      `json:"respiratory_rate,omitempty"`
	TemperatureF     *float64  `json:"temperature,omitempty"`
	OxygenSaturation *int      `json:"oxygen_saturation,omitempty"`
	PainLevel        *int      `json:"pain_level,omitempty"`
	BloodPressure    string    `json:"blood_pressure,omitempty"`
	Systolic         *int      `json:"systolic,omitempty"`
	Diastolic        *int      `json:"diastolic,omitempty"`
	ObservedAt       time.Time `json:"observed_at,omitempty"`
}

// Empty reports whether the reading carries no measurements at all.
func (r *Reading) Empty() bool {
	return r.HeartRate == nil &&
		r.RespiratoryRate == nil &&
		r.TemperatureF == nil &&
		r.OxygenSaturation == nil &&
		r.PainLevel == nil &&
		r.BloodPressure == "" &&
		r.Systolic == nil &&
		r.Diastolic == nil
}
