package ner

import "strings"

// Entity is one labelled span produced by a token classifier.
type Entity struct {
	Text  string  `json:"word"`
	Label string  `json:"entity_group"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// EntityGroup holds the distinct span texts seen for one label.
type EntityGroup struct {
	Label string
	Texts []string
}

// GroupEntities groups spans by label, keeping labels and texts in the order
// they were first seen and dropping exact-text repeats.
func GroupEntities(entities []Entity) []EntityGroup {
	index := make(map[string]int)
	var groups []EntityGroup
	for _, e := range entities {
		text := strings.TrimSpace(e.Text)
		label := strings.TrimSpace(e.Label)
		if text == "" || label == "" {
			continue
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, EntityGroup{Label: label})
		}
		groups[i].Texts = appendUnique(groups[i].Texts, text)
	}
	return groups
}
