// Package tui is a terminal client for the fitting-room wizard. It drives a
// running server through the session API and mirrors its steps on screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
	"vesteja/model"
)

const defaultPollInterval = 500 * time.Millisecond

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25F5C")).MarginBottom(1)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE066"))
)

type snapshotMsg struct {
	snap entities.WizardSnapshot
	err  error
}

type closetMsg struct {
	closet *Closet
	err    error
}

type notificationsMsg struct {
	notes []valueobjects.Notification
}

type pollMsg struct{}

type savedMsg struct {
	path string
	err  error
}

type genderItem struct {
	gender valueobjects.Gender
	label  string
}

func (i genderItem) Title() string       { return i.label }
func (i genderItem) Description() string { return string(i.gender) }
func (i genderItem) FilterValue() string { return i.label }

type garmentItem struct {
	entry model.GarmentEntry
}

func (i garmentItem) Title() string       { return i.entry.Name }
func (i garmentItem) Description() string { return i.entry.Description }
func (i garmentItem) FilterValue() string { return i.entry.Name }

type Options struct {
	Locale string
	// ResultPath is where "s" saves the try-on result.
	ResultPath   string
	PollInterval time.Duration
}

// Model is the bubbletea model of the terminal wizard.
type Model struct {
	api  WizardAPI
	opts Options

	snap       entities.WizardSnapshot
	hasSession bool
	closet     *Closet

	genders    list.Model
	garments   list.Model
	photoInput textinput.Model
	spinner    spinner.Model

	status string
	err    error
	busy   bool

	width  int
	height int
}

func New(api WizardAPI, opts Options) *Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ResultPath == "" {
		opts.ResultPath = "VesteJa-Resultado.png"
	}

	genders := list.New([]list.Item{
		genderItem{gender: valueobjects.Feminino, label: "Feminino"},
		genderItem{gender: valueobjects.Masculino, label: "Masculino"},
	}, list.NewDefaultDelegate(), 0, 0)
	genders.Title = "Para quem é a roupa?"
	genders.SetShowStatusBar(false)
	genders.SetFilteringEnabled(false)
	genders.SetShowHelp(false)

	garments := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	garments.SetShowStatusBar(false)
	garments.SetFilteringEnabled(false)
	garments.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = "caminho/para/foto.jpg"
	input.CharLimit = 512
	input.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &Model{
		api:        api,
		opts:       opts,
		genders:    genders,
		garments:   garments,
		photoInput: input,
		spinner:    spin,
		busy:       true,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.createSession())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.genders.SetSize(msg.Width, max(msg.Height-8, 6))
		m.garments.SetSize(msg.Width, max(msg.Height-10, 6))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)

	case snapshotMsg:
		return m, m.handleSnapshot(msg)

	case closetMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.closet = msg.closet
		items := make([]list.Item, 0, len(msg.closet.Garments))
		for _, g := range msg.closet.Garments {
			items = append(items, garmentItem{entry: g})
		}
		m.garments.Title = "Categoria: " + msg.closet.ActiveCategory
		return m, m.garments.SetItems(items)

	case notificationsMsg:
		for _, n := range msg.notes {
			m.status = n.Message
			if n.Level == valueobjects.NotifyError {
				m.err = errors.New(n.Message)
			}
		}
		return m, nil

	case pollMsg:
		if m.snap.Step != valueobjects.StepLoading {
			return m, nil
		}
		return m, m.fetch()

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "Resultado salvo em " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch m.snap.Step {
	case valueobjects.StepIntro:
		switch key {
		case "enter":
			return m, m.action("start", nil)
		case "q":
			return m, tea.Quit
		}

	case valueobjects.StepGender:
		if key == "enter" {
			if item, ok := m.genders.SelectedItem().(genderItem); ok {
				return m, m.action("gender", map[string]string{"gender": string(item.gender)})
			}
			return m, nil
		}
		if key == "q" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.genders, cmd = m.genders.Update(msg)
		return m, cmd

	case valueobjects.StepPhoto:
		if m.snap.Analysis.Status == valueobjects.AnalysisError {
			if key == "enter" {
				return m, m.action("analysis/dismiss", nil)
			}
			return m, nil
		}
		if key == "enter" {
			path := strings.TrimSpace(m.photoInput.Value())
			if path == "" {
				return m, nil
			}
			return m, m.upload(path)
		}
		var cmd tea.Cmd
		m.photoInput, cmd = m.photoInput.Update(msg)
		return m, cmd

	case valueobjects.StepCloset:
		switch key {
		case "tab", "shift+tab":
			return m, m.cycleCategory(key == "tab")
		case "enter":
			if item, ok := m.garments.SelectedItem().(garmentItem); ok {
				return m, m.action("garment", map[string]int{"garmentId": item.entry.ID})
			}
			return m, nil
		case "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.garments, cmd = m.garments.Update(msg)
		return m, cmd

	case valueobjects.StepConfirm:
		switch key {
		case "enter", "y":
			return m, m.action("confirm", nil)
		case "esc", "b":
			return m, m.action("back", nil)
		case "q":
			return m, tea.Quit
		}

	case valueobjects.StepResult:
		switch key {
		case "s":
			return m, m.save()
		case "r":
			return m, m.action("restart", nil)
		case "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *Model) handleSnapshot(msg snapshotMsg) tea.Cmd {
	m.busy = false
	if msg.err != nil {
		m.err = msg.err
		return nil
	}

	previous := m.snap.Step
	m.snap = msg.snap
	m.hasSession = true
	m.err = nil

	var cmds []tea.Cmd
	if len(msg.snap.Notifications) > 0 {
		cmds = append(cmds, m.drain())
	}

	switch msg.snap.Step {
	case valueobjects.StepPhoto:
		if previous != valueobjects.StepPhoto {
			m.photoInput.SetValue("")
		}
		cmds = append(cmds, m.photoInput.Focus())
		if msg.snap.Analysis.Status == valueobjects.AnalysisError {
			m.err = errors.New(msg.snap.Analysis.Message)
		}
	case valueobjects.StepCloset:
		m.photoInput.Blur()
		m.busy = true
		cmds = append(cmds, m.fetchCloset())
	case valueobjects.StepLoading:
		cmds = append(cmds, m.pollLater())
	case valueobjects.StepIntro:
		m.closet = nil
		m.status = ""
	}

	return tea.Batch(cmds...)
}

func (m *Model) cycleCategory(forward bool) tea.Cmd {
	if m.closet == nil || len(m.closet.Categories) < 2 {
		return nil
	}
	cats := m.closet.Categories
	idx := 0
	for i, c := range cats {
		if c == m.closet.ActiveCategory {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(cats)
	} else {
		idx = (idx - 1 + len(cats)) % len(cats)
	}
	return m.action("category", map[string]string{"category": cats[idx]})
}

func (m *Model) createSession() tea.Cmd {
	api, locale := m.api, m.opts.Locale
	return func() tea.Msg {
		snap, err := api.Create(context.Background(), locale)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) action(name string, body any) tea.Cmd {
	m.busy = true
	m.err = nil
	api, id := m.api, m.snap.ID
	return func() tea.Msg {
		snap, err := api.Action(context.Background(), id, name, body)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) upload(path string) tea.Cmd {
	m.busy = true
	m.err = nil
	m.status = "Analisando sua foto..."
	api, id := m.api, m.snap.ID
	return func() tea.Msg {
		snap, err := api.UploadPhoto(context.Background(), id, path)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) fetch() tea.Cmd {
	api, id := m.api, m.snap.ID
	return func() tea.Msg {
		snap, err := api.Get(context.Background(), id)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m *Model) fetchCloset() tea.Cmd {
	api, id := m.api, m.snap.ID
	return func() tea.Msg {
		closet, err := api.Closet(context.Background(), id)
		return closetMsg{closet: closet, err: err}
	}
}

func (m *Model) drain() tea.Cmd {
	api, id := m.api, m.snap.ID
	return func() tea.Msg {
		notes, _ := api.Drain(context.Background(), id)
		return notificationsMsg{notes: notes}
	}
}

func (m *Model) pollLater() tea.Cmd {
	return tea.Tick(m.opts.PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m *Model) save() tea.Cmd {
	api, id, path := m.api, m.snap.ID, m.opts.ResultPath
	return func() tea.Msg {
		data, err := api.DownloadResult(context.Background(), id)
		if err != nil {
			return savedMsg{err: err}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: path}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("VesteJá · provador virtual"))
	b.WriteString("\n")

	if !m.hasSession {
		if m.err != nil {
			b.WriteString(errorStyle.Render("Não foi possível abrir a sessão: " + m.err.Error()))
			b.WriteString("\n")
			b.WriteString(subtleStyle.Render("ctrl+c para sair"))
			return b.String()
		}
		b.WriteString(m.spinner.View() + " Conectando...")
		return b.String()
	}

	b.WriteString(stepStyle.Render(stepLabel(m.snap.Step)))
	b.WriteString("\n\n")

	switch m.snap.Step {
	case valueobjects.StepIntro:
		b.WriteString("Experimente roupas do nosso catálogo usando uma foto sua.\n")
	case valueobjects.StepGender:
		b.WriteString(m.genders.View())
	case valueobjects.StepPhoto:
		b.WriteString("Foto de corpo inteiro, de frente e bem iluminada:\n")
		b.WriteString(m.photoInput.View())
		b.WriteString("\n")
		if m.busy {
			b.WriteString(m.spinner.View() + " " + m.status + "\n")
		}
	case valueobjects.StepCloset:
		if m.closet != nil {
			b.WriteString(subtleStyle.Render(strings.Join(m.closet.Categories, " · ")))
			b.WriteString("\n")
		}
		b.WriteString(m.garments.View())
	case valueobjects.StepConfirm:
		if m.closet != nil {
			for _, g := range m.closet.Garments {
				if entities.GarmentID(g.ID) == m.snap.GarmentID {
					fmt.Fprintf(&b, "Peça escolhida: %s\n%s\n", g.Name, subtleStyle.Render(g.Description))
				}
			}
		}
		b.WriteString("Confirmar e gerar a prova virtual?\n")
	case valueobjects.StepLoading:
		b.WriteString(m.spinner.View() + " " + m.snap.Progress + "\n")
	case valueobjects.StepResult:
		b.WriteString(successStyle.Render("Sua prova virtual está pronta!"))
		b.WriteString("\n")
		if m.snap.ArchiveURL != "" {
			b.WriteString(subtleStyle.Render(m.snap.ArchiveURL))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" && !m.busy {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(subtleStyle.Render(helpFor(m.snap)))
	return b.String()
}

func stepLabel(step valueobjects.Step) string {
	switch step {
	case valueobjects.StepIntro:
		return "Boas-vindas"
	case valueobjects.StepGender:
		return "1/4 · Gênero"
	case valueobjects.StepPhoto:
		return "2/4 · Sua foto"
	case valueobjects.StepCloset:
		return "3/4 · Provador"
	case valueobjects.StepConfirm:
		return "4/4 · Confirmação"
	case valueobjects.StepLoading:
		return "Gerando..."
	case valueobjects.StepResult:
		return "Resultado"
	}
	return string(step)
}

func helpFor(snap entities.WizardSnapshot) string {
	switch snap.Step {
	case valueobjects.StepIntro:
		return "enter começar · q sair"
	case valueobjects.StepGender:
		return "↑/↓ escolher · enter confirmar"
	case valueobjects.StepPhoto:
		if snap.Analysis.Status == valueobjects.AnalysisError {
			return "enter tentar outra foto"
		}
		return "enter enviar · ctrl+c sair"
	case valueobjects.StepCloset:
		return "↑/↓ peça · tab categoria · enter escolher"
	case valueobjects.StepConfirm:
		return "enter confirmar · esc voltar"
	case valueobjects.StepResult:
		return "s salvar · r recomeçar · q sair"
	}
	return "ctrl+c sair"
}
