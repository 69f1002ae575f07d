// Package tui is a terminal front end for the token wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"token-deploy-wizard/internal/deploy"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/fees"
	"token-deploy-wizard/internal/form"
	"token-deploy-wizard/internal/preview"
	"token-deploy-wizard/internal/storage"
	"token-deploy-wizard/internal/validation"
	"token-deploy-wizard/internal/wizard"
)

// fieldImagePath is the path input of the Metadata step. It is not a draft field.
const fieldImagePath = "imagePath"

var stepFields = map[domain.Step][]string{
	domain.StepBasicInfo: domain.BasicInfoFields,
	domain.StepMetadata:  {fieldImagePath, domain.FieldDescription},
	domain.StepReview:    nil,
}

var fieldLabels = map[string]string{
	domain.FieldName:          "Name",
	domain.FieldSymbol:        "Symbol",
	domain.FieldDecimals:      "Decimals",
	domain.FieldInitialSupply: "Initial supply",
	domain.FieldAdminWallet:   "Admin wallet",
	fieldImagePath:            "Image file",
	domain.FieldDescription:   "Description",
}

// Options for creating Model.
type Options struct {
	Engine          *validation.Engine
	Calculator      *fees.Calculator
	Deployer        deploy.Deployer
	Network         string
	FileReader      preview.FileReader
	DeploymentStore storage.DeploymentStore
	EventStore      storage.WizardEventStore

	// LoadImage reads the file at path. Defaults to preview.LoadFile.
	LoadImage func(path string) (*domain.ImageFile, error)

	Logger  *log.Logger
	Verbose bool
}

type snapshotMsg wizard.Snapshot

type deployDoneMsg domain.DeploymentStatus

// Model is the bubbletea model of one wizard session.
type Model struct {
	wizard    *wizard.Wizard
	engine    *validation.Engine
	updates   chan wizard.Snapshot
	loadImage func(string) (*domain.ImageFile, error)

	snap    wizard.Snapshot
	focus   int
	inputs  map[string]string
	touched map[string]bool
	notice  string
	width   int
	quit    bool
}

// New creates a Model with a fresh wizard session.
func New(opts Options) Model {
	engine := opts.Engine
	if engine == nil {
		engine = validation.NewEngine(nil)
	}
	loadImage := opts.LoadImage
	if loadImage == nil {
		loadImage = func(path string) (*domain.ImageFile, error) {
			return preview.LoadFile(path, validation.MaxImageBytes)
		}
	}

	updates := make(chan wizard.Snapshot, 16)
	w := wizard.New(wizard.Options{
		Engine:          engine,
		Calculator:      opts.Calculator,
		Deployer:        opts.Deployer,
		Network:         opts.Network,
		FileReader:      opts.FileReader,
		DeploymentStore: opts.DeploymentStore,
		EventStore:      opts.EventStore,
		OnChange: func(s wizard.Snapshot) {
			select {
			case updates <- s:
			default:
			}
		},
		Logger:  opts.Logger,
		Verbose: opts.Verbose,
	})

	return Model{
		wizard:    w,
		engine:    engine,
		updates:   updates,
		loadImage: loadImage,
		snap:      w.Snapshot(),
		inputs:    map[string]string{},
		touched:   map[string]bool{},
	}
}

// Run starts the interactive program and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Wizard exposes the underlying session.
func (m Model) Wizard() *wizard.Wizard {
	return m.wizard
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func waitForSnapshot(ch <-chan wizard.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

func waitForDeploy(ch <-chan domain.DeploymentStatus) tea.Cmd {
	return func() tea.Msg {
		return deployDoneMsg(<-ch)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case snapshotMsg:
		m.apply(wizard.Snapshot(msg))
		return m, waitForSnapshot(m.updates)
	case deployDoneMsg:
		m.apply(m.wizard.Snapshot())
		st := domain.DeploymentStatus(msg)
		if st.State == domain.DeploymentSucceeded {
			m.notice = "Token deployed"
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quit = true
		return m, tea.Quit
	case "tab", "down":
		m.moveFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil
	case "enter":
		return m.submit()
	case "esc":
		snap, err := m.wizard.Back()
		m.afterAction(snap, err)
		return m, nil
	case "ctrl+s":
		snap, err := m.wizard.Skip()
		m.afterAction(snap, err)
		return m, nil
	case "ctrl+x":
		snap, err := m.wizard.RemoveImage()
		m.afterAction(snap, err)
		return m, nil
	case "ctrl+r":
		snap, err := m.wizard.Reset()
		if err == nil {
			m.inputs = map[string]string{}
			m.touched = map[string]bool{}
			m.focus = 0
		}
		m.afterAction(snap, err)
		return m, nil
	case "backspace":
		field := m.focusedField()
		if field == "" {
			return m, nil
		}
		r := []rune(m.inputs[field])
		if len(r) > 0 {
			m.edit(field, string(r[:len(r)-1]))
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		field := m.focusedField()
		if field == "" {
			return m, nil
		}
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		m.edit(field, m.inputs[field]+text)
	}
	return m, nil
}

// submit handles enter: load an image, advance, or deploy.
func (m Model) submit() (tea.Model, tea.Cmd) {
	switch m.snap.Step {
	case domain.StepMetadata:
		if m.focusedField() == fieldImagePath && m.inputs[fieldImagePath] != "" {
			m.selectImage(m.inputs[fieldImagePath])
			return m, nil
		}
	case domain.StepReview:
		ch, snap, err := m.wizard.StartDeploy(context.Background())
		m.afterAction(snap, err)
		if err != nil {
			return m, nil
		}
		m.notice = ""
		return m, waitForDeploy(ch)
	}

	snap, err := m.wizard.Next()
	if err == nil {
		m.focus = 0
	}
	m.afterAction(snap, err)
	return m, nil
}

func (m *Model) selectImage(path string) {
	file, err := m.loadImage(path)
	if err != nil {
		m.notice = err.Error()
		return
	}
	snap, err := m.wizard.SelectImage(context.Background(), file)
	m.afterAction(snap, err)
	if err == nil {
		m.notice = "Selected " + file.Name
	}
}

// edit stores the raw input and forwards the coerced value to the wizard.
func (m *Model) edit(field, text string) {
	if st := m.snap.Deployment.State; st == domain.DeploymentInFlight || st == domain.DeploymentSucceeded {
		m.afterAction(m.snap, wizard.ErrLocked)
		return
	}
	if field == domain.FieldSymbol {
		text = form.NormalizeSymbol(text)
	}
	m.inputs[field] = text
	if field == fieldImagePath {
		return
	}
	m.touched[field] = true

	var (
		snap wizard.Snapshot
		err  error
	)
	switch field {
	case domain.FieldDescription:
		snap, err = m.wizard.SetDescription(text)
	case domain.FieldDecimals:
		d := form.ParseDecimals(text)
		snap, err = m.wizard.UpdateBasic(domain.DraftPatch{Decimals: &d})
	default:
		snap, err = m.wizard.UpdateBasic(patchFor(field, text))
	}
	m.afterAction(snap, err)
}

func patchFor(field, text string) domain.DraftPatch {
	var p domain.DraftPatch
	switch field {
	case domain.FieldName:
		p.Name = &text
	case domain.FieldSymbol:
		p.Symbol = &text
	case domain.FieldInitialSupply:
		p.InitialSupply = &text
	case domain.FieldAdminWallet:
		p.AdminWallet = &text
	}
	return p
}

func (m *Model) afterAction(snap wizard.Snapshot, err error) {
	m.apply(snap)
	var verr *wizard.ValidationError
	switch {
	case err == nil:
		m.notice = ""
	case errors.As(err, &verr):
		m.notice = fmt.Sprintf("Fix %d field(s) to continue", len(verr.Result.Errors))
	case errors.Is(err, wizard.ErrInvalidTransition):
		m.notice = "Not available on this step"
	case errors.Is(err, deploy.ErrAlreadyDeployed),
		errors.Is(err, wizard.ErrLocked) && snap.Deployment.State == domain.DeploymentSucceeded:
		m.notice = "Token already deployed; press ctrl+r to start over"
	case errors.Is(err, wizard.ErrLocked), errors.Is(err, deploy.ErrInFlight):
		m.notice = "Deployment in progress"
	default:
		m.notice = err.Error()
	}
}

func (m *Model) apply(snap wizard.Snapshot) {
	if snap.Version < m.snap.Version {
		return
	}
	if snap.Step != m.snap.Step {
		m.focus = 0
	}
	m.snap = snap
}

func (m *Model) moveFocus(delta int) {
	n := len(stepFields[m.snap.Step])
	if n == 0 {
		return
	}
	m.focus = (m.focus + delta + n) % n
}

func (m Model) focusedField() string {
	fields := stepFields[m.snap.Step]
	if m.focus < 0 || m.focus >= len(fields) {
		return ""
	}
	return fields[m.focus]
}

// fieldError returns the message to show under field. Errors stored by a
// blocked transition always show; otherwise only touched fields are checked.
func (m Model) fieldError(field string) string {
	if msg := m.snap.Errors[field]; msg != "" {
		return msg
	}
	if !m.touched[field] {
		return ""
	}
	return m.engine.Field(field, m.snap.Draft).Error(field)
}
