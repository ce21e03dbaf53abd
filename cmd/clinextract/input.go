package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/engine"
	"github.com/synaptica-ai/clinextract/pkg/extraction"
)

// readTranscript reads the transcript from a file argument, or stdin when
// the argument is missing or "-".
func readTranscript(args []string, stdin io.Reader) (string, error) {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", errors.New("transcript is empty")
	}
	return text, nil
}

func startService(ctx context.Context) (*extraction.Service, func(), error) {
	svc, err := engine.Build(loadConfig())
	if err != nil {
		return nil, nil, err
	}
	// Init errors leave the failing backend in fallback, which the output shows.
	_ = svc.Init(ctx)
	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(shutdownCtx)
	}
	return svc, stop, nil
}
