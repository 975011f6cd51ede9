package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/flashdeck/internal/model"
)

type rowKind int

const (
	rowFolder rowKind = iota
	rowDeck
)

// libraryRow is one selectable line: a folder header or a deck under it.
type libraryRow struct {
	kind   rowKind
	folder model.FolderKey
	deck   model.Deck
}

// LibraryPage lists folders, their decks, and the learned decks.
type LibraryPage struct {
	session *Session
	keys    KeyMap
	help    help.Model
	rows    []libraryRow
	cursor  int
	offset  int
}

// NewLibraryPage creates the library page.
func NewLibraryPage(session *Session) *LibraryPage {
	return &LibraryPage{
		session: session,
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
}

func (p *LibraryPage) ID() string { return PageLibrary }

func (p *LibraryPage) Init() tea.Cmd {
	p.rebuild()
	if !p.session.loaded {
		return tea.Batch(p.session.refresh(), startSpinner())
	}
	return nil
}

// buildRows flattens the table into display order: user folders first, then
// learned folders, each followed by its decks.
func buildRows(t model.FolderTable) []libraryRow {
	var rows []libraryRow
	for _, name := range t.FolderNames() {
		key := model.Original(name)
		rows = append(rows, libraryRow{kind: rowFolder, folder: key})
		for _, d := range t.Folders[name] {
			rows = append(rows, libraryRow{kind: rowDeck, folder: key, deck: d})
		}
	}
	for _, name := range t.LearnedNames() {
		key := model.Learned(name)
		rows = append(rows, libraryRow{kind: rowFolder, folder: key})
		for _, d := range t.Learned[name] {
			rows = append(rows, libraryRow{kind: rowDeck, folder: key, deck: d})
		}
	}
	return rows
}

func (p *LibraryPage) rebuild() {
	var selected *libraryRow
	if p.cursor < len(p.rows) {
		r := p.rows[p.cursor]
		selected = &r
	}
	p.rows = buildRows(p.session.state.Table)
	if selected != nil {
		for i, r := range p.rows {
			if r.kind == selected.kind && r.folder == selected.folder && r.deck.ID == selected.deck.ID {
				p.cursor = i
				break
			}
		}
	}
	p.cursor = min(p.cursor, max(len(p.rows)-1, 0))
}

func (p *LibraryPage) selected() (libraryRow, bool) {
	if p.cursor < 0 || p.cursor >= len(p.rows) {
		return libraryRow{}, false
	}
	return p.rows[p.cursor], true
}

func (p *LibraryPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case stateMsg:
		p.session.apply(msg)
		p.rebuild()
		if msg.op == "open" && msg.err == nil && p.session.state.View != nil {
			return nil, &PageNav{PageID: PageStudy}
		}
		return nil, nil

	case statsMsg:
		if msg.err != nil {
			p.session.err = fmt.Sprintf("statistics: %v", msg.err)
			return nil, nil
		}
		return pushModal(NewStatsModal(msg.name, msg.rows)), nil

	case spinnerTickMsg:
		if !p.session.loaded && p.session.err == "" {
			return startSpinner(), nil
		}
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg), nil
	}
	return nil, nil
}

func (p *LibraryPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := p.keys
	switch {
	case key.Matches(msg, k.Quit):
		return tea.Quit
	case key.Matches(msg, k.Help):
		return pushModal(NewHelpModal())
	case key.Matches(msg, k.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, k.Down):
		if p.cursor < len(p.rows)-1 {
			p.cursor++
		}
	case key.Matches(msg, k.Home):
		p.cursor = 0
	case key.Matches(msg, k.End):
		p.cursor = max(len(p.rows)-1, 0)

	case key.Matches(msg, k.NewFolder):
		return pushModal(NewPromptModal("new-folder", "New folder name", "", func(name string) tea.Cmd {
			return p.session.createFolder(name)
		}))

	case key.Matches(msg, k.Import):
		return pushModal(NewPromptModal("import", "Import CSV, TSV or YAML file", "path/to/deck.csv", func(path string) tea.Cmd {
			return p.session.importFile(path)
		}))
	}

	row, ok := p.selected()
	if !ok {
		return nil
	}

	switch {
	case key.Matches(msg, k.Open):
		if row.kind == rowDeck {
			return p.session.open(row.folder, row.deck.ID)
		}

	case key.Matches(msg, k.Move):
		if row.kind != rowDeck || row.folder.IsLearned() {
			return nil
		}
		from := row.folder.Name
		return pushModal(NewPromptModal("move", fmt.Sprintf("Move %q to folder", row.deck.Name), "", func(to string) tea.Cmd {
			return p.session.moveDeck(row.deck.ID, from, to)
		}))

	case key.Matches(msg, k.Reset):
		if row.kind != rowDeck {
			return nil
		}
		prompt := fmt.Sprintf("Reset %q? Learned cards return to the deck and statistics are cleared.", row.deck.Name)
		if row.folder.IsLearned() {
			prompt = fmt.Sprintf("Return every learned card of %q to its deck?", row.deck.Name)
		}
		return pushModal(NewConfirmModal("reset", prompt, p.session.reset(row.deck.ID, row.folder)))

	case key.Matches(msg, k.Delete):
		if row.kind == rowFolder {
			name := row.folder.Name
			return pushModal(NewConfirmModal("delete", fmt.Sprintf("Delete folder %q and every deck in it?", name), p.session.deleteFolder(name)))
		}
		return pushModal(NewConfirmModal("delete", fmt.Sprintf("Delete deck %q and its learned cards?", row.deck.Name), p.session.deleteDeck(row.deck.ID, row.folder.Name)))

	case key.Matches(msg, k.Stats):
		if row.kind == rowDeck {
			return p.session.fetchStats(row.deck.ID, row.deck.Name)
		}
	}
	return nil
}

func (p *LibraryPage) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	status := renderStatusLine(width, "Library", p.statusRight())
	p.help.Width = width
	footer := p.help.View(libraryHelp{p.keys})
	bodyHeight := max(height-lipgloss.Height(status)-lipgloss.Height(footer), 1)

	var body string
	switch {
	case !p.session.loaded && p.session.err == "":
		body = renderLoadingPlaceholder(width, bodyHeight)
	case len(p.rows) == 0:
		body = lipgloss.Place(width, bodyHeight, lipgloss.Center, lipgloss.Center,
			mutedStyle.Render("No decks yet. Press i to import a CSV, TSV or YAML file."))
	default:
		body = p.renderRows(width, bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, footer, status)
}

func (p *LibraryPage) statusRight() string {
	if e := p.session.Error(); e != "" {
		return errorStyle.Render(e)
	}
	decks := 0
	for _, list := range p.session.state.Table.Folders {
		decks += len(list)
	}
	return fmt.Sprintf("%d folders, %d decks", len(p.session.state.Table.Folders), decks)
}

func (p *LibraryPage) renderRows(width, height int) string {
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+height {
		p.offset = p.cursor - height + 1
	}

	lines := make([]string, 0, height)
	for i := p.offset; i < len(p.rows) && len(lines) < height; i++ {
		line := renderRow(p.rows[i])
		if i == p.cursor {
			line = selectedStyle.Render(padRight(stripLine(p.rows[i]), width))
		}
		lines = append(lines, line)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderRow(r libraryRow) string {
	if r.kind == rowFolder {
		if r.folder.IsLearned() {
			return learnedStyle.Render("▸ " + r.folder.String())
		}
		return folderStyle.Render("▸ " + r.folder.String())
	}
	return "    " + deckLine(r) + mutedStyle.Render(deckMeta(r.deck))
}

func stripLine(r libraryRow) string {
	if r.kind == rowFolder {
		return "▸ " + r.folder.String()
	}
	return "    " + deckLine(r) + deckMeta(r.deck)
}

func deckLine(r libraryRow) string {
	mark := "  "
	if r.deck.Finished {
		mark = "✓ "
	}
	return mark + r.deck.Name
}

func deckMeta(d model.Deck) string {
	return fmt.Sprintf("  %d cards, %d knew, %d didn't know", len(d.Cards), d.Stats.Knew, d.Stats.DidntKnow)
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
