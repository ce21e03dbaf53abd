package ner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/normalizer"
	"gopkg.in/yaml.v3"
)

// How a label group is folded into its field.
const (
	FoldJoin  = "join"  // all unique spans joined with ", "
	FoldFirst = "first" // first span only, first label wins
	FoldName  = "name"  // first span split into first and last name
	FoldUnits = "units" // unit-aware extraction through the normalizer
)

type LabelMapping struct {
	Label string `yaml:"label" json:"label"`
	Field string `yaml:"field" json:"field"`
	Fold  string `yaml:"fold" json:"fold"`
}

type LabelsConfig struct {
	Labels []LabelMapping `yaml:"labels" json:"labels"`
}

func LoadLabels(path string) (LabelsConfig, error) {
	if path == "" {
		return DefaultLabels(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultLabels(), err
	}

	var cfg LabelsConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return LabelsConfig{}, err
	}
	if len(cfg.Labels) == 0 {
		return LabelsConfig{}, errors.New("no NER labels configured")
	}
	return cfg, nil
}

// DefaultLabels covers the Text2NER label set plus the generic aliases other
// Italian clinical taggers emit.
func DefaultLabels() LabelsConfig {
	m := func(label, field, fold string) LabelMapping {
		return LabelMapping{Label: label, Field: field, Fold: fold}
	}
	return LabelsConfig{Labels: []LabelMapping{
		m("NOME_COGNOME", clinical.FieldFirstName, FoldName),
		m("SESSO", clinical.FieldGender, FoldFirst),
		m("DATA_NASCITA", clinical.FieldBirthDate, FoldFirst),
		m("LUOGO_NASCITA", clinical.FieldBirthPlace, FoldJoin),
		m("CODICE_FISCALE", clinical.FieldFiscalCode, FoldFirst),
		m("COMUNE_RESIDENZA", clinical.FieldResidenceCity, FoldJoin),
		m("VIA_RESIDENZA", clinical.FieldResidenceAddress, FoldJoin),
		m("NUMERO_RESIDENZA", clinical.FieldResidenceAddress, FoldJoin),
		m("TELEFONO", clinical.FieldPhone, FoldJoin),
		m("NUMERO_TELEFONO", clinical.FieldPhone, FoldJoin),
		m("CONTATTO_EMERGENZA", clinical.FieldEmergencyContact, FoldJoin),
		m("ETA", clinical.FieldAge, FoldJoin),
		m("AGE", clinical.FieldAge, FoldJoin),
		m("ANNI", clinical.FieldAge, FoldJoin),
		m("MODALITA_ACCESSO", clinical.FieldAccessMode, FoldJoin),
		m("ACCESS_MODE", clinical.FieldAccessMode, FoldJoin),
		m("ARRIVO", clinical.FieldAccessMode, FoldJoin),

		m("FC_BPM", clinical.FieldHeartRate, FoldUnits),
		m("SpO2", clinical.FieldOxygenation, FoldUnits),
		m("PA_MMHG", clinical.FieldBloodPressure, FoldUnits),
		m("TEMPERATURA", clinical.FieldTemperature, FoldUnits),
		m("GLICEMIA", clinical.FieldBloodGlucose, FoldUnits),

		m("CUTE", clinical.FieldSkinState, FoldJoin),
		m("COSCIENZA", clinical.FieldConsciousnessState, FoldJoin),
		m("PUPILLE_TIPO_DX", clinical.FieldPupilsState, FoldJoin),
		m("PUPILLE_TIPO_SX", clinical.FieldPupilsState, FoldJoin),
		m("PUPILLE_REATTIVITA", clinical.FieldPupilsState, FoldJoin),
		m("RESPIRO", clinical.FieldRespiratoryState, FoldJoin),
		m("ANAMNESI", clinical.FieldHistory, FoldJoin),
		m("STORIA_CLINICA", clinical.FieldHistory, FoldJoin),
		m("HISTORY", clinical.FieldHistory, FoldJoin),
		m("MEDICINA", clinical.FieldMedicationsTaken, FoldJoin),
		m("ALLERGIA", clinical.FieldAllergies, FoldJoin),
		m("CONDIZIONE_RIFERITA", clinical.FieldSymptoms, FoldJoin),
		m("PROVVEDIMENTI_ALTRO", clinical.FieldMedicalActions, FoldJoin),
		m("PROVVEDIMENTI_CIRCOLO", clinical.FieldMedicalActions, FoldJoin),
		m("PROVVEDIMENTI_IMMOBILIZZAZIONE", clinical.FieldMedicalActions, FoldJoin),
		m("PROVVEDIMENTI_RESPIRO", clinical.FieldMedicalActions, FoldJoin),
		m("VALUTAZIONE", clinical.FieldAssessment, FoldJoin),
		m("ASSESSMENT", clinical.FieldAssessment, FoldJoin),
		m("DIAGNOSI", clinical.FieldAssessment, FoldJoin),
		m("PIANO", clinical.FieldPlan, FoldJoin),
		m("PLAN", clinical.FieldPlan, FoldJoin),
		m("TERAPIA", clinical.FieldPlan, FoldJoin),
		m("TRATTAMENTO", clinical.FieldPlan, FoldJoin),
		m("CODICE_USCITA", clinical.FieldTriageCode, FoldFirst),
	}}
}

// LabelMap folds aggregated entity groups into a FieldSet.
type LabelMap struct {
	byLabel map[string]LabelMapping
}

func NewLabelMap(cfg LabelsConfig) (*LabelMap, error) {
	byLabel := make(map[string]LabelMapping, len(cfg.Labels))
	for _, mapping := range cfg.Labels {
		if !clinical.IsField(mapping.Field) {
			return nil, fmt.Errorf("label %s maps to unknown field %q", mapping.Label, mapping.Field)
		}
		switch mapping.Fold {
		case "":
			mapping.Fold = FoldJoin
		case FoldJoin, FoldFirst, FoldName, FoldUnits:
		default:
			return nil, fmt.Errorf("label %s has unknown fold %q", mapping.Label, mapping.Fold)
		}
		if mapping.Fold == FoldUnits && !normalizer.IsUnitField(mapping.Field) {
			return nil, fmt.Errorf("label %s: field %s has no unit normalizer", mapping.Label, mapping.Field)
		}
		byLabel[strings.ToUpper(mapping.Label)] = mapping
	}
	return &LabelMap{byLabel: byLabel}, nil
}

// Lookup resolves a label case-insensitively.
func (m *LabelMap) Lookup(label string) (LabelMapping, bool) {
	mapping, ok := m.byLabel[strings.ToUpper(strings.TrimSpace(label))]
	return mapping, ok
}

// Apply folds groups in first-seen order. Labels without a mapping are
// returned so the caller can log them.
func (m *LabelMap) Apply(groups []EntityGroup) (clinical.FieldSet, []string) {
	var fs clinical.FieldSet
	var unmapped []string
	joined := make(map[string][]string)
	spans := make(map[string][]string)

	for _, group := range groups {
		if len(group.Texts) == 0 {
			continue
		}
		mapping, ok := m.Lookup(group.Label)
		if !ok {
			unmapped = append(unmapped, group.Label)
			continue
		}

		switch mapping.Fold {
		case FoldName:
			if fs.FirstName != "" {
				continue
			}
			parts := strings.Fields(group.Texts[0])
			if len(parts) == 0 {
				continue
			}
			fs.FirstName = parts[0]
			fs.LastName = strings.Join(parts[1:], " ")
		case FoldFirst:
			if fs.Get(mapping.Field) == "" {
				fs.Set(mapping.Field, group.Texts[0])
			}
		case FoldUnits:
			spans[mapping.Field] = append(spans[mapping.Field], group.Texts...)
		default:
			joined[mapping.Field] = appendUnique(joined[mapping.Field], group.Texts...)
		}
	}

	for field, values := range joined {
		fs.Set(field, strings.Join(values, ", "))
	}
	for field, values := range spans {
		fs.Set(field, normalizer.FromSpans(field, values))
	}
	return fs, unmapped
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

// LoadLabelMap reads a label file and builds the map in one step.
func LoadLabelMap(path string) (*LabelMap, error) {
	cfg, err := LoadLabels(path)
	if err != nil {
		return nil, err
	}
	return NewLabelMap(cfg)
}
