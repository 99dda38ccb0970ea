package servo

// ChannelStatus is the calibration of one channel.
type ChannelStatus struct {
	Channel int `json:"channel"`
	Calibration
}

// Status is a read-only snapshot of the engine state.
type Status struct {
	ActiveBoard int             `json:"active_board"`
	Frequency   int             `json:"frequency"`
	Topology    string          `json:"topology"`
	Scale       float64         `json:"scale"`
	Boards      []int           `json:"boards"`
	Channels    []ChannelStatus `json:"channels,omitempty"`
}

// Status returns the engine state, including the calibration of the active board.
func (e *Engine) Status() Status {
	s := Status{
		ActiveBoard: e.active,
		Frequency:   e.frequency,
		Topology:    e.drive.Topology.String(),
		Scale:       e.drive.Scale,
		Boards:      e.Initialized(),
	}
	if !ValidBoard(e.active) {
		return s
	}
	for i, cal := range e.channels[e.active-1] {
		s.Channels = append(s.Channels, ChannelStatus{Channel: i + 1, Calibration: cal})
	}
	return s
}
