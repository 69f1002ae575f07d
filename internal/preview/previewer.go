package preview

import (
	"context"
	"sync"

	"token-deploy-wizard/internal/domain"
)

// State is the preview of the currently selected file.
type State struct {
	File    *domain.ImageFile `json:"-"`
	URI     string            `json:"uri,omitempty"`
	Pending bool              `json:"pending"`
	Error   string            `json:"error,omitempty"`
}

// Previewer reads at most one preview per selection. Selecting a new file
// supersedes any outstanding read: a stale read never overwrites the newer state.
type Previewer struct {
	reader   FileReader
	onChange func(State)

	mu    sync.Mutex
	state State
}

// NewPreviewer creates a Previewer. onChange may be nil.
func NewPreviewer(reader FileReader, onChange func(State)) *Previewer {
	if reader == nil {
		reader = DataURIReader{}
	}
	return &Previewer{reader: reader, onChange: onChange}
}

// Current returns the preview state.
func (p *Previewer) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Select makes file the current selection and starts reading it.
// The returned channel yields the state produced by this read and is then closed.
// If the read was superseded, the channel yields the newer state with applied=false.
func (p *Previewer) Select(ctx context.Context, file *domain.ImageFile) <-chan Outcome {
	out := make(chan Outcome, 1)

	p.mu.Lock()
	p.state = State{File: file, Pending: file != nil}
	pending := p.state
	p.mu.Unlock()
	p.notify(pending)

	if file == nil {
		out <- Outcome{State: pending, Applied: true}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		uri, err := p.reader.Read(ctx, file)

		p.mu.Lock()
		if p.state.File != file {
			// superseded
			current := p.state
			p.mu.Unlock()
			out <- Outcome{State: current, Applied: false}
			return
		}
		p.state = State{File: file, URI: uri}
		if err != nil {
			p.state.URI = ""
			p.state.Error = err.Error()
		}
		next := p.state
		p.mu.Unlock()

		p.notify(next)
		out <- Outcome{State: next, Applied: true}
	}()

	return out
}

// Clear drops the selection. Outstanding reads become stale.
func (p *Previewer) Clear() {
	p.mu.Lock()
	p.state = State{}
	p.mu.Unlock()
	p.notify(State{})
}

// Outcome reports the result of one Select call.
type Outcome struct {
	State   State
	Applied bool
}

func (p *Previewer) notify(s State) {
	if p.onChange != nil {
		p.onChange(s)
	}
}
