// Package cardsource turns tabular or YAML card files into question/answer
// rows ready for import.
package cardsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tinytelemetry/flashdeck/internal/model"
	"gopkg.in/yaml.v3"
)

// Format selects the parser.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTSV:
		return "tsv"
	case FormatYAML:
		return "yaml"
	default:
		return "csv"
	}
}

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("cardsource: unknown format")

// ParseFormat accepts csv, tsv, yaml and yml (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "tsv", "tab":
		return FormatTSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatCSV, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks a format from the file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return FormatCSV
	}
	return f
}

// DeckName is the file name without directory and extension.
func DeckName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Source is a parsed card file. Name is only set when the file carries one.
type Source struct {
	Name  string
	Cards []model.CardInput
}

// Parse reads r in the given format. Values are stripped of markup and
// trimmed; rows missing either side are dropped.
func Parse(r io.Reader, f Format) (Source, error) {
	switch f {
	case FormatYAML:
		return parseYAML(r)
	case FormatTSV:
		return parseDelimited(r, '\t')
	default:
		return parseDelimited(r, ',')
	}
}

// ParseFile parses the file at path, naming the deck after the file when the
// content does not name it.
func ParseFile(path string) (Source, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("cardsource: open %s: %w", path, err)
	}
	defer fh.Close()

	src, err := Parse(fh, FormatFromPath(path))
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}
	if src.Name == "" {
		src.Name = DeckName(path)
	}
	return src, nil
}

func parseDelimited(r io.Reader, comma rune) (Source, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Source{}, fmt.Errorf("cardsource: read %s: %w", delimName(comma), err)
	}
	if len(records) == 0 {
		return Source{}, nil
	}
	records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")

	qi, ai, header := columns(records[0])
	if header {
		records = records[1:]
	}

	var out []model.CardInput
	for _, rec := range records {
		if qi >= len(rec) || ai >= len(rec) {
			continue
		}
		if row, ok := clean(rec[qi], rec[ai]); ok {
			out = append(out, row)
		}
	}
	return Source{Cards: out}, nil
}

func delimName(comma rune) string {
	if comma == '\t' {
		return "tsv"
	}
	return "csv"
}

// columns finds the question and answer columns in a header row. Exact
// names win over names that merely contain the word. A row naming neither
// is data, read as question then answer.
func columns(row []string) (qi, ai int, header bool) {
	qi = find(row, "question")
	ai = find(row, "answer")
	if qi < 0 && ai < 0 {
		return 0, 1, false
	}
	switch {
	case qi < 0:
		qi = other(ai)
	case ai < 0:
		ai = other(qi)
	}
	return qi, ai, true
}

func find(row []string, word string) int {
	for i, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), word) {
			return i
		}
	}
	for i, cell := range row {
		if strings.Contains(strings.ToLower(cell), word) {
			return i
		}
	}
	return -1
}

func other(i int) int {
	if i == 0 {
		return 1
	}
	return 0
}

type yamlCard struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type yamlDeck struct {
	Name  string     `yaml:"name"`
	Cards []yamlCard `yaml:"cards"`
}

// parseYAML accepts either a bare list of cards or a mapping with a name and
// a cards list.
func parseYAML(r io.Reader) (Source, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return Source{}, nil
		}
		return Source{}, fmt.Errorf("cardsource: read yaml: %w", err)
	}

	var doc yamlDeck
	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&doc.Cards); err != nil {
			return Source{}, fmt.Errorf("cardsource: decode cards: %w", err)
		}
	case yaml.MappingNode:
		if err := node.Decode(&doc); err != nil {
			return Source{}, fmt.Errorf("cardsource: decode deck: %w", err)
		}
	default:
		return Source{}, errors.New("cardsource: yaml must be a list of cards or a deck mapping")
	}

	src := Source{Name: strings.TrimSpace(doc.Name)}
	for _, c := range doc.Cards {
		if row, ok := clean(c.Question, c.Answer); ok {
			src.Cards = append(src.Cards, row)
		}
	}
	return src, nil
}

var strict = bluemonday.StrictPolicy()

func clean(q, a string) (model.CardInput, bool) {
	q = sanitize(q)
	a = sanitize(a)
	if q == "" || a == "" {
		return model.CardInput{}, false
	}
	return model.CardInput{Question: q, Answer: a}, true
}

// sanitize drops any markup and undoes the entity escaping the policy adds,
// since cards are rendered as plain text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
