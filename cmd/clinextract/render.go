package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/extraction"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

func renderResult(result clinical.ExtractionResult) string {
	var b strings.Builder

	method := result.ExtractionMethod
	if result.Degraded() {
		method = errStyle.Render(method)
	} else {
		method = okStyle.Render(method)
	}
	fmt.Fprintf(&b, "%s %s  %s\n", titleStyle.Render("Extraction"), method,
		mutedStyle.Render(fmt.Sprintf("model=%s chars=%d", result.Model, result.TextLength)))

	populated := result.ExtractedData.Populated()
	if len(populated) == 0 {
		b.WriteString(mutedStyle.Render("no fields extracted") + "\n")
	} else {
		t := newTable("group", "field", "value")
		for _, name := range populated {
			group, _ := clinical.GroupOf(name)
			t.Row(string(group), name, result.ExtractedData.Get(name))
		}
		b.WriteString(t.String() + "\n")
	}

	writeList(&b, "validation errors", result.ValidationErrors, errStyle)
	writeList(&b, "warnings", result.Warnings, warnStyle)
	writeList(&b, "unparsed", result.UnparsedFields, mutedStyle)
	return b.String()
}

func renderComparison(cmp extraction.Comparison) string {
	var b strings.Builder
	fc := cmp.FieldComparison

	fmt.Fprintf(&b, "%s similarity %.2f%%  %s\n", titleStyle.Render("Comparison"), fc.SimilarityScore,
		mutedStyle.Render(fmt.Sprintf("llm=%s ner=%s", cmp.LLMResult.ExtractionMethod, cmp.NERResult.ExtractionMethod)))

	t := newTable("field", "llm", "ner", "")
	for _, name := range fc.MatchingFields {
		t.Row(name, cmp.LLMResult.ExtractedData.Get(name), cmp.NERResult.ExtractedData.Get(name), okStyle.Render("="))
	}
	for _, d := range fc.DifferentFields {
		t.Row(d.Field, d.LLMValue, d.NERValue, errStyle.Render("≠"))
	}
	for _, name := range fc.LLMOnlyFields {
		t.Row(name, cmp.LLMResult.ExtractedData.Get(name), "", warnStyle.Render("llm"))
	}
	for _, name := range fc.NEROnlyFields {
		t.Row(name, "", cmp.NERResult.ExtractedData.Get(name), warnStyle.Render("ner"))
	}
	b.WriteString(t.String() + "\n")

	writeList(&b, "llm warnings", cmp.LLMResult.Warnings, warnStyle)
	writeList(&b, "ner warnings", cmp.NERResult.Warnings, warnStyle)
	return b.String()
}

func renderMethods(defaultMethod clinical.Method, statuses map[clinical.Method]clinical.BackendStatus) string {
	methods := make([]string, 0, len(statuses))
	for m := range statuses {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)

	t := newTable("method", "name", "available", "state", "model")
	for _, m := range methods {
		st := statuses[clinical.Method(m)]
		label := m
		if clinical.Method(m) == defaultMethod {
			label += " *"
		}
		available := errStyle.Render("no")
		if st.Available {
			available = okStyle.Render("yes")
		}
		t.Row(label, st.Name, available, st.State, st.Model)
	}

	var b strings.Builder
	b.WriteString(t.String() + "\n")
	for _, m := range methods {
		if st := statuses[clinical.Method(m)]; st.Error != "" {
			b.WriteString(warnStyle.Render(m+": "+st.Error) + "\n")
		}
	}
	b.WriteString(mutedStyle.Render("* default method") + "\n")
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string, style lipgloss.Style) {
	if len(items) == 0 {
		return
	}
	b.WriteString(style.Bold(true).Render(title) + "\n")
	for _, item := range items {
		b.WriteString("  - " + style.Render(item) + "\n")
	}
}
