package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tinytelemetry/flashdeck/internal/cardsource"
	"github.com/tinytelemetry/flashdeck/internal/model"
)

var errNoCards = errors.New("no cards with both a question and an answer")

// stdinPiped reports whether stdin is a pipe or file rather than a terminal.
func stdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// importStdin parses r as one deck and imports it, returning the number of
// cards imported.
func importStdin(api model.StudyAPI, r io.Reader, format, name string) (int, error) {
	f, err := cardsource.ParseFormat(format)
	if err != nil {
		return 0, err
	}
	src, err := cardsource.Parse(r, f)
	if err != nil {
		return 0, fmt.Errorf("stdin: %w", err)
	}
	if len(src.Cards) == 0 {
		return 0, errNoCards
	}
	if src.Name != "" {
		name = src.Name
	}
	st, err := api.Import(name, src.Cards)
	if err != nil {
		return 0, err
	}
	decks := st.Table.Folders[model.DefaultFolder]
	if len(decks) == 0 {
		return 0, errNoCards
	}
	n := len(decks[len(decks)-1].Cards)
	log.Printf("stdin: imported %d cards into %q", n, name)
	return n, nil
}
