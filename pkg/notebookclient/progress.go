package notebookclient

import "notebook-ai/pkg/stream"

// ProgressState is the in-flight progress shown while a question runs.
type ProgressState struct {
	CurrentStatus stream.StatusToken
	StatusHistory []stream.StatusToken
	IsLoading     bool
}

// Push records a status. History only grows when the token differs from the
// previous entry, so [a a b a] is kept as [a b a].
func (p *ProgressState) Push(token stream.StatusToken) {
	p.CurrentStatus = token
	if n := len(p.StatusHistory); n == 0 || p.StatusHistory[n-1] != token {
		p.StatusHistory = append(p.StatusHistory, token)
	}
}

func (p *ProgressState) Reset() {
	p.CurrentStatus = ""
	p.StatusHistory = nil
	p.IsLoading = false
}

// CurrentDisplay is the display entry for the current status.
func (p ProgressState) CurrentDisplay() stream.StatusDisplay {
	return p.CurrentStatus.Display()
}

func (p ProgressState) clone() ProgressState {
	cp := p
	if p.StatusHistory != nil {
		cp.StatusHistory = append([]stream.StatusToken(nil), p.StatusHistory...)
	}
	return cp
}
