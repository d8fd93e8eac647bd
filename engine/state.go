package engine

// State is the engine lifecycle state.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Start moves stopped or paused to running and records the start time.
// It reports whether the state changed.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case Stopped:
		e.stopCh = make(chan struct{})
	case Paused:
	default:
		return false
	}
	e.state = Running
	e.startedAt = e.now()
	e.stoppedAt = e.startedAt
	e.log.Info("engine started")
	return true
}

// Stop moves any state to stopped. A tick already in progress finishes.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Stopped {
		return false
	}
	e.state = Stopped
	e.stoppedAt = e.now()
	close(e.stopCh)
	e.log.Info("engine stopped")
	return true
}

func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Running {
		return false
	}
	e.state = Paused
	e.log.Info("engine paused")
	return true
}

func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Paused {
		return false
	}
	e.state = Running
	e.log.Info("engine resumed")
	return true
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) running() bool { return e.State() == Running }

// stopped returns a channel closed by Stop, nil before the first Start.
func (e *Engine) stopped() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopCh
}
