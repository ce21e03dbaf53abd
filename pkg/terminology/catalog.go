// Package terminology attaches standard codes to extracted vital signs so
// downstream systems can consume them without parsing field names.
package terminology

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"gopkg.in/yaml.v3"
)

type Concept struct {
	Display string `yaml:"display" json:"display"`
	SNOMED  string `yaml:"snomed" json:"snomed,omitempty"`
	LOINC   string `yaml:"loinc" json:"loinc,omitempty"`
	// Unit is the UCUM unit of the normalized value.
	Unit string `yaml:"unit" json:"unit,omitempty"`
}

// Catalog maps clinical field names to concepts.
type Catalog struct {
	Concepts map[string]Concept `yaml:"concepts" json:"concepts"`
}

// Coding is a populated field with its concept.
type Coding struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Concept
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Concepts) == 0 {
		return Catalog{}, fmt.Errorf("terminology catalog empty")
	}
	for field := range cat.Concepts {
		if !clinical.IsField(field) {
			return Catalog{}, fmt.Errorf("terminology catalog: unknown field %q", field)
		}
	}
	return cat, nil
}

func (c Catalog) Lookup(field string) (Concept, bool) {
	concept, ok := c.Concepts[strings.ToLower(strings.TrimSpace(field))]
	return concept, ok
}

// Annotate returns a coding for every populated field the catalog knows,
// in field order.
func (c Catalog) Annotate(fs clinical.FieldSet) []Coding {
	codings := []Coding{}
	for _, field := range fs.Populated() {
		concept, ok := c.Lookup(field)
		if !ok {
			continue
		}
		codings = append(codings, Coding{Field: field, Value: fs.Get(field), Concept: concept})
	}
	return codings
}

func DefaultCatalog() Catalog {
	return Catalog{Concepts: map[string]Concept{
		clinical.FieldHeartRate: {
			Display: "Heart rate",
			SNOMED:  "364075005",
			LOINC:   "8867-4",
			Unit:    "/min",
		},
		clinical.FieldOxygenation: {
			Display: "Oxygen saturation by pulse oximetry",
			SNOMED:  "431314004",
			LOINC:   "59408-5",
			Unit:    "%",
		},
		clinical.FieldBloodPressure: {
			Display: "Blood pressure panel",
			SNOMED:  "75367002",
			LOINC:   "85354-9",
			Unit:    "mm[Hg]",
		},
		clinical.FieldTemperature: {
			Display: "Body temperature",
			SNOMED:  "386725007",
			LOINC:   "8310-5",
			Unit:    "Cel",
		},
		clinical.FieldBloodGlucose: {
			Display: "Glucose in blood",
			SNOMED:  "33747003",
			LOINC:   "2339-0",
			Unit:    "mg/dL",
		},
	}}
}
