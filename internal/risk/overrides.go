package risk

// Overrides is the per-project signal configuration stored alongside a
// review policy. The zero value applies no adjustments.
type Overrides struct {
	Signals map[Signal]SignalOverride `json:"signals,omitempty"`
}

// SignalOverride adjusts one signal. Nil pointer fields mean "use the
// server default".
type SignalOverride struct {
	Enabled *bool `json:"enabled,omitempty"`
	Weight  *int  `json:"weight,omitempty"`
}

// IsEnabled reports whether the signal should run. Defaults to true.
func (o SignalOverride) IsEnabled() bool {
	if o.Enabled == nil {
		return true
	}
	return *o.Enabled
}

// EffectiveWeight returns the weight to apply, falling back to the server
// default when unset.
func (o SignalOverride) EffectiveWeight(serverDefault int) int {
	if o.Weight == nil {
		return serverDefault
	}
	return *o.Weight
}

func (o Overrides) effectiveWeight(sig Signal, serverDefault int) (weight int, enabled bool) {
	ov, ok := o.Signals[sig]
	if !ok {
		return serverDefault, true
	}
	if !ov.IsEnabled() {
		return 0, false
	}
	return ov.EffectiveWeight(serverDefault), true
}
