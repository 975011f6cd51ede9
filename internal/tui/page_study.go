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

// StudyPage shows the current card of the open deck and sends judgments.
type StudyPage struct {
	session *Session
	keys    KeyMap
	help    help.Model
	flipped bool
	cardID  string
}

// NewStudyPage creates the study page.
func NewStudyPage(session *Session) *StudyPage {
	return &StudyPage{
		session: session,
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
}

func (p *StudyPage) ID() string { return PageStudy }

func (p *StudyPage) Init() tea.Cmd {
	p.syncCard()
	return nil
}

// syncCard hides the answer whenever a different card comes up.
func (p *StudyPage) syncCard() {
	id := ""
	if c := p.session.state.Current; c != nil {
		id = c.ID
	}
	if id != p.cardID {
		p.cardID = id
		p.flipped = false
	}
}

func (p *StudyPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case stateMsg:
		p.session.apply(msg)
		p.syncCard()
		if msg.err == nil && p.session.state.View == nil {
			return nil, &PageNav{PageID: PageLibrary}
		}
		return nil, nil

	case tea.KeyMsg:
		return p.handleKey(msg), nil
	}
	return nil, nil
}

func (p *StudyPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := p.keys
	st := p.session.state
	switch {
	case key.Matches(msg, k.Escape), key.Matches(msg, k.Quit):
		return p.session.closeDeck()
	case key.Matches(msg, k.Help):
		return pushModal(NewHelpModal())
	case key.Matches(msg, k.Previous):
		if st.CanGoPrevious {
			return p.session.previous()
		}
	}

	if st.Current == nil {
		if key.Matches(msg, k.Reset) && st.View != nil {
			return p.session.reset(st.View.DeckID, st.View.Folder)
		}
		return nil
	}

	switch {
	case key.Matches(msg, k.Flip):
		p.flipped = !p.flipped
	case key.Matches(msg, k.Knew):
		return p.session.judge(model.Knew)
	case key.Matches(msg, k.DidntKnow):
		return p.session.judge(model.DidntKnow)
	}
	return nil
}

// progressLine renders "N cards left out of T".
func progressLine(d model.Deck) string {
	left := len(d.Cards)
	total := max(d.Stats.Total, left)
	noun := "cards"
	if left == 1 {
		noun = "card"
	}
	return fmt.Sprintf("%d %s left out of %d", left, noun, total)
}

// completionSummary describes a finished deck.
func completionSummary(d model.Deck) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Deck complete"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Knew it:      %d\n", d.Stats.Knew)
	fmt.Fprintf(&b, "Didn't know:  %d\n", d.Stats.DidntKnow)
	fmt.Fprintf(&b, "Judgments:    %d\n", d.Stats.Swipes)
	if d.Stats.Swipes > 0 {
		fmt.Fprintf(&b, "Score:        %d%%\n", d.Stats.Knew*100/d.Stats.Swipes)
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("r: reset deck   p: previous card   esc: back to library"))
	return b.String()
}

func (p *StudyPage) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	st := p.session.state

	left := "Study"
	if st.View != nil {
		left = st.View.Folder.String()
		if st.Deck != nil {
			left += " / " + st.Deck.Name
		}
	}
	right := ""
	if e := p.session.Error(); e != "" {
		right = errorStyle.Render(e)
	} else if st.Deck != nil {
		right = progressLine(*st.Deck)
	}
	status := renderStatusLine(width, left, right)

	p.help.Width = width
	footer := p.help.View(studyHelp{p.keys})
	bodyHeight := max(height-lipgloss.Height(status)-lipgloss.Height(footer), 1)

	var body string
	switch {
	case st.Deck == nil:
		body = mutedStyle.Render("No deck is open.")
	case st.Current == nil:
		body = completionSummary(*st.Deck)
	default:
		body = p.renderCard(*st.Current, width)
	}
	body = lipgloss.Place(width, bodyHeight, lipgloss.Center, lipgloss.Center, body)

	return lipgloss.JoinVertical(lipgloss.Left, body, footer, status)
}

func (p *StudyPage) renderCard(c model.Card, width int) string {
	cardWidth := min(max(width-10, 20), 80)

	question := cardStyle.Width(cardWidth).Render(c.Question)
	parts := []string{question}

	if p.flipped {
		parts = append(parts, answerCardStyle.Width(cardWidth).Render(c.Answer))
	} else {
		parts = append(parts, mutedStyle.Render("space to reveal the answer"))
	}
	if c.WrongCount > 0 {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("missed %d times", c.WrongCount)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, parts...)
}
