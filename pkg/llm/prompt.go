package llm

import (
	"strings"
	"text/template"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

type fieldPrompt struct {
	Name        string
	Description string
}

var fieldPrompts = []fieldPrompt{
	{clinical.FieldFirstName, "nome del paziente"},
	{clinical.FieldLastName, "cognome del paziente"},
	{clinical.FieldFiscalCode, "codice fiscale"},
	{clinical.FieldBirthDate, "data di nascita (YYYY-MM-DD)"},
	{clinical.FieldBirthPlace, "luogo di nascita"},
	{clinical.FieldAge, "età in anni"},
	{clinical.FieldGender, "sesso (M/F/O)"},
	{clinical.FieldResidenceCity, "città di residenza"},
	{clinical.FieldResidenceAddress, "indirizzo di residenza"},
	{clinical.FieldPhone, "numero di telefono"},
	{clinical.FieldEmergencyContact, "contatto di emergenza"},
	{clinical.FieldAccessMode, "modalità di arrivo del paziente"},
	{clinical.FieldHeartRate, `frequenza cardiaca (INCLUDI unità: es. "120 bpm")`},
	{clinical.FieldOxygenation, `saturazione ossigeno (INCLUDI unità: es. "95%")`},
	{clinical.FieldBloodPressure, `pressione arteriosa (INCLUDI unità: es. "120/80 mmHg")`},
	{clinical.FieldTemperature, `temperatura corporea (INCLUDI unità: es. "37.2°C")`},
	{clinical.FieldBloodGlucose, `glicemia (INCLUDI unità: es. "110 mg/dl")`},
	{clinical.FieldSkinState, "stato della cute"},
	{clinical.FieldConsciousnessState, "stato di coscienza"},
	{clinical.FieldPupilsState, "stato delle pupille"},
	{clinical.FieldRespiratoryState, "stato respiratorio"},
	{clinical.FieldHistory, "anamnesi"},
	{clinical.FieldMedicationsTaken, "farmaci assunti"},
	{clinical.FieldAllergies, "allergie note"},
	{clinical.FieldSymptoms, "sintomi riferiti"},
	{clinical.FieldMedicalActions, "azioni mediche effettuate"},
	{clinical.FieldAssessment, "valutazione clinica"},
	{clinical.FieldPlan, "piano terapeutico"},
	{clinical.FieldTriageCode, "codice triage (bianco/verde/giallo/rosso/nero)"},
}

var promptTemplate = template.Must(template.New("extraction").Parse(`Estrai le informazioni richieste in formato JSON dal seguente testo clinico in italiano:

{{.Text}}

----

Requisiti:
- Traduci campi e valori nella stessa lingua del testo di input (italiano).
- Mantieni il JSON compatto e ben formattato.
- Per i campi non esplicitamente menzionati nel testo, restituisci una stringa vuota "".
- Estrai solo informazioni effettivamente presenti nel testo.
- IMPORTANTE: Per i parametri vitali, INCLUDI SEMPRE le unità di misura quando disponibili.
{{- if .Checkup}}
- Visita di controllo: compila solo anagrafica essenziale, parametri vitali, farmaci, sintomi, azioni, valutazione e piano.
{{- end}}

Informazioni richieste:
{{range .Fields}}- {{.Name}}: {{.Description}}
{{end}}
JSON:
`))

type promptData struct {
	Text    string
	Checkup bool
	Fields  []fieldPrompt
}

// BuildPrompt renders the extraction prompt for one transcript.
func BuildPrompt(text string, mode clinical.UsageMode) (string, error) {
	var sb strings.Builder
	err := promptTemplate.Execute(&sb, promptData{
		Text:    strings.TrimSpace(text),
		Checkup: mode.Restricted(),
		Fields:  fieldPrompts,
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
