package clinical

import (
	"fmt"
	"sort"
	"strings"
)

// Canonical field names.
const (
	FieldFirstName          = "first_name"
	FieldLastName           = "last_name"
	FieldFiscalCode         = "fiscal_code"
	FieldBirthDate          = "birth_date"
	FieldBirthPlace         = "birth_place"
	FieldAge                = "age"
	FieldGender             = "gender"
	FieldResidenceCity      = "residence_city"
	FieldResidenceAddress   = "residence_address"
	FieldPhone              = "phone"
	FieldEmergencyContact   = "emergency_contact"
	FieldAccessMode         = "access_mode"
	FieldHeartRate          = "heart_rate"
	FieldOxygenation        = "oxygenation"
	FieldBloodPressure      = "blood_pressure"
	FieldTemperature        = "temperature"
	FieldBloodGlucose       = "blood_glucose"
	FieldSkinState          = "skin_state"
	FieldConsciousnessState = "consciousness_state"
	FieldPupilsState        = "pupils_state"
	FieldRespiratoryState   = "respiratory_state"
	FieldHistory            = "history"
	FieldMedicationsTaken   = "medications_taken"
	FieldAllergies          = "allergies"
	FieldSymptoms           = "symptoms"
	FieldMedicalActions     = "medical_actions"
	FieldAssessment         = "assessment"
	FieldPlan               = "plan"
	FieldTriageCode         = "triage_code"
)

// FieldSet is the fixed clinical record every backend fills. Unset fields are
// empty strings; the JSON form always carries every key.
type FieldSet struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	FiscalCode       string `json:"fiscal_code"`
	BirthDate        string `json:"birth_date"`
	BirthPlace       string `json:"birth_place"`
	Age              string `json:"age"`
	Gender           string `json:"gender"`
	ResidenceCity    string `json:"residence_city"`
	ResidenceAddress string `json:"residence_address"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergency_contact"`
	AccessMode       string `json:"access_mode"`

	HeartRate     string `json:"heart_rate"`
	Oxygenation   string `json:"oxygenation"`
	BloodPressure string `json:"blood_pressure"`
	Temperature   string `json:"temperature"`
	BloodGlucose  string `json:"blood_glucose"`

	SkinState          string `json:"skin_state"`
	ConsciousnessState string `json:"consciousness_state"`
	PupilsState        string `json:"pupils_state"`
	RespiratoryState   string `json:"respiratory_state"`
	History            string `json:"history"`
	MedicationsTaken   string `json:"medications_taken"`
	Allergies          string `json:"allergies"`
	Symptoms           string `json:"symptoms"`
	MedicalActions     string `json:"medical_actions"`
	Assessment         string `json:"assessment"`
	Plan               string `json:"plan"`
	TriageCode         string `json:"triage_code"`
}

// Group is the section a field belongs to in stored and rendered records.
type Group string

const (
	GroupPatient    Group = "patient_data"
	GroupVitals     Group = "vital_signs"
	GroupAssessment Group = "clinical_assessment"
)

type fieldDef struct {
	name  string
	group Group
	ref   func(*FieldSet) *string
}

var fieldTable = []fieldDef{
	{FieldFirstName, GroupPatient, func(f *FieldSet) *string { return &f.FirstName }},
	{FieldLastName, GroupPatient, func(f *FieldSet) *string { return &f.LastName }},
	{FieldFiscalCode, GroupPatient, func(f *FieldSet) *string { return &f.FiscalCode }},
	{FieldBirthDate, GroupPatient, func(f *FieldSet) *string { return &f.BirthDate }},
	{FieldBirthPlace, GroupPatient, func(f *FieldSet) *string { return &f.BirthPlace }},
	{FieldAge, GroupPatient, func(f *FieldSet) *string { return &f.Age }},
	{FieldGender, GroupPatient, func(f *FieldSet) *string { return &f.Gender }},
	{FieldResidenceCity, GroupPatient, func(f *FieldSet) *string { return &f.ResidenceCity }},
	{FieldResidenceAddress, GroupPatient, func(f *FieldSet) *string { return &f.ResidenceAddress }},
	{FieldPhone, GroupPatient, func(f *FieldSet) *string { return &f.Phone }},
	{FieldEmergencyContact, GroupPatient, func(f *FieldSet) *string { return &f.EmergencyContact }},
	{FieldAccessMode, GroupPatient, func(f *FieldSet) *string { return &f.AccessMode }},

	{FieldHeartRate, GroupVitals, func(f *FieldSet) *string { return &f.HeartRate }},
	{FieldOxygenation, GroupVitals, func(f *FieldSet) *string { return &f.Oxygenation }},
	{FieldBloodPressure, GroupVitals, func(f *FieldSet) *string { return &f.BloodPressure }},
	{FieldTemperature, GroupVitals, func(f *FieldSet) *string { return &f.Temperature }},
	{FieldBloodGlucose, GroupVitals, func(f *FieldSet) *string { return &f.BloodGlucose }},

	{FieldSkinState, GroupAssessment, func(f *FieldSet) *string { return &f.SkinState }},
	{FieldConsciousnessState, GroupAssessment, func(f *FieldSet) *string { return &f.ConsciousnessState }},
	{FieldPupilsState, GroupAssessment, func(f *FieldSet) *string { return &f.PupilsState }},
	{FieldRespiratoryState, GroupAssessment, func(f *FieldSet) *string { return &f.RespiratoryState }},
	{FieldHistory, GroupAssessment, func(f *FieldSet) *string { return &f.History }},
	{FieldMedicationsTaken, GroupAssessment, func(f *FieldSet) *string { return &f.MedicationsTaken }},
	{FieldAllergies, GroupAssessment, func(f *FieldSet) *string { return &f.Allergies }},
	{FieldSymptoms, GroupAssessment, func(f *FieldSet) *string { return &f.Symptoms }},
	{FieldMedicalActions, GroupAssessment, func(f *FieldSet) *string { return &f.MedicalActions }},
	{FieldAssessment, GroupAssessment, func(f *FieldSet) *string { return &f.Assessment }},
	{FieldPlan, GroupAssessment, func(f *FieldSet) *string { return &f.Plan }},
	{FieldTriageCode, GroupAssessment, func(f *FieldSet) *string { return &f.TriageCode }},
}

var fieldIndex = func() map[string]int {
	idx := make(map[string]int, len(fieldTable))
	for i, def := range fieldTable {
		idx[def.name] = i
	}
	return idx
}()

// FieldNames returns the canonical keys in record order.
func FieldNames() []string {
	names := make([]string, len(fieldTable))
	for i, def := range fieldTable {
		names[i] = def.name
	}
	return names
}

// IsField reports whether name is a canonical key.
func IsField(name string) bool {
	_, ok := fieldIndex[name]
	return ok
}

// GroupOf returns the section of a canonical field.
func GroupOf(name string) (Group, bool) {
	i, ok := fieldIndex[name]
	if !ok {
		return "", false
	}
	return fieldTable[i].group, true
}

func (f FieldSet) Get(name string) string {
	i, ok := fieldIndex[name]
	if !ok {
		return ""
	}
	return *fieldTable[i].ref(&f)
}

// Set assigns a canonical field; unknown names are rejected.
func (f *FieldSet) Set(name, value string) bool {
	i, ok := fieldIndex[name]
	if !ok {
		return false
	}
	*fieldTable[i].ref(f) = value
	return true
}

// Each visits every field in canonical order with a pointer to its value.
func (f *FieldSet) Each(fn func(name string, value *string)) {
	for _, def := range fieldTable {
		fn(def.name, def.ref(f))
	}
}

func (f FieldSet) IsEmpty() bool {
	for _, def := range fieldTable {
		if strings.TrimSpace(*def.ref(&f)) != "" {
			return false
		}
	}
	return true
}

// Populated returns the names of non-empty fields in canonical order.
func (f FieldSet) Populated() []string {
	var out []string
	for _, def := range fieldTable {
		if strings.TrimSpace(*def.ref(&f)) != "" {
			out = append(out, def.name)
		}
	}
	return out
}

func (f FieldSet) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(fieldTable))
	for _, def := range fieldTable {
		out[def.name] = *def.ref(&f)
	}
	return out
}

// Grouped splits the record into patient_data, vital_signs and clinical_assessment.
func (f FieldSet) Grouped() map[string]interface{} {
	out := map[string]interface{}{
		string(GroupPatient):    map[string]interface{}{},
		string(GroupVitals):     map[string]interface{}{},
		string(GroupAssessment): map[string]interface{}{},
	}
	for _, def := range fieldTable {
		out[string(def.group)].(map[string]interface{})[def.name] = *def.ref(&f)
	}
	return out
}

// FieldSetFromMap copies canonical keys out of a loosely typed map. Keys that
// are not canonical are returned so callers can report them.
func FieldSetFromMap(in map[string]interface{}) (FieldSet, []string) {
	var fs FieldSet
	var unknown []string
	for key, value := range in {
		if !fs.Set(key, stringify(value)) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return fs, unknown
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
