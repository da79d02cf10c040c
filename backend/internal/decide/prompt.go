package decide

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD479"))
	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#6BCB77"))
	abortStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type choice struct {
	label    string
	decision Decision
	key      key.Binding
}

// `choices()` lists the options for a conflict kind.  The first entry is
// the default.
func choices(k Kind) []choice {
	mk := func(label string, d Decision, k string) choice {
		return choice{
			label:    label,
			decision: d,
			key: key.NewBinding(
				key.WithKeys(k),
				key.WithHelp(k, label),
			),
		}
	}
	abort := mk("abort", Abort, "a")
	switch k {
	case KindConfirmBatch:
		return []choice{mk("continue", Proceed, "y"), abort}
	case KindExistingArtifact:
		return []choice{
			mk("skip", Skip, "s"),
			mk("compress again", Proceed, "r"),
			abort,
		}
	case KindExistingDestination:
		return []choice{
			mk("skip", Skip, "s"),
			mk("replace", Proceed, "r"),
			abort,
		}
	case KindMissingWitness:
		return []choice{
			mk("skip", Skip, "s"),
			mk("delete redundant archive", Proceed, "d"),
			abort,
		}
	default:
		return []choice{abort}
	}
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "abort"),
	),
}

type model struct {
	conflict Conflict
	choices  []choice
	cursor   int
	help     help.Model
	done     bool
	decision Decision
}

func newModel(c Conflict) model {
	return model{
		conflict: c,
		choices:  choices(c.Kind),
		help:     help.New(),
		decision: Abort,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(kmsg, keys.Quit):
		m.done = true
		m.decision = Abort
		return m, tea.Quit
	case key.Matches(kmsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(kmsg, keys.Down):
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(kmsg, keys.Select):
		m.done = true
		m.decision = m.choices[m.cursor].decision
		return m, tea.Quit
	}

	for i, c := range m.choices {
		if key.Matches(kmsg, c.key) {
			m.cursor = i
			m.done = true
			m.decision = c.decision
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(questionStyle.Render(question(m.conflict)))
	b.WriteString("\n")
	if m.conflict.Path != "" {
		b.WriteString(pathStyle.Render("  " + m.conflict.Path))
		b.WriteString("\n")
	}
	for i, c := range m.choices {
		label := fmt.Sprintf("[%s] %s", c.key.Help().Key, c.label)
		if c.decision == Abort {
			label = abortStyle.Render(label)
		}
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> ") + label)
		} else {
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))
	b.WriteString("\n")
	return b.String()
}

func question(c Conflict) string {
	if c.Summary != "" {
		return c.Summary
	}
	switch c.Kind {
	case KindConfirmBatch:
		return fmt.Sprintf("%d services. Continue?", c.Services)
	case KindExistingArtifact:
		return fmt.Sprintf(
			"Service %s: archive already exists.", c.Service,
		)
	case KindExistingDestination:
		return fmt.Sprintf(
			"Service %s: destination directory already exists.",
			c.Service,
		)
	case KindMissingWitness:
		return fmt.Sprintf(
			"Service %s: expanded destination is missing; "+
				"the source cannot be deleted.",
			c.Service,
		)
	default:
		return fmt.Sprintf("Service %s: unknown decision.", c.Service)
	}
}

// `Interactive` asks on a terminal.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

func NewInteractive() *Interactive {
	return &Interactive{In: os.Stdin, Out: os.Stderr}
}

func (p *Interactive) Decide(
	ctx context.Context, c Conflict,
) (Decision, error) {
	prog := tea.NewProgram(
		newModel(c),
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := prog.Run()
	if err != nil {
		return Abort, fmt.Errorf("prompt failed: %w", err)
	}
	m, ok := final.(model)
	if !ok || !m.done {
		return Abort, nil
	}
	return m.decision, nil
}

// `New()` returns the decider for `policy`.  `yes` confirms batches without
// asking.
func New(policy Policy, yes bool) Decider {
	var d Decider
	switch policy {
	case PolicySkip:
		d = AlwaysSkip{}
	case PolicyRedo:
		d = AlwaysRedo{}
	default:
		d = NewInteractive()
	}
	if yes {
		d = AutoConfirm{D: d}
	}
	return d
}
