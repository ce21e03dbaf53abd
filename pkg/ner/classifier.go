package ner

import "context"

// TokenClassifier tags spans of a single sentence.
type TokenClassifier interface {
	Name() string
	Load(ctx context.Context) error
	Classify(ctx context.Context, sentence string) ([]Entity, error)
}
