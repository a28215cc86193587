package strategies

import (
	"errors"
	"fmt"
	"sort"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/panel"
)

// ErrUnknownStrategy is returned by Lookup for unregistered names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy turns a price panel into entry and exit signal matrices. Both
// outputs share the panel's shape; exits may depend on the entry signals.
type Strategy interface {
	Name() string
	Signals(p *panel.Panel) (entries, exits *panel.BoolMatrix, err error)
}

// Definition binds a strategy name to its fixed parameter sweep and a
// constructor. The registry is closed: only registered names run.
type Definition struct {
	Name  string
	Sets  []models.ParameterSet
	Build func(set models.ParameterSet) Strategy
}

var registry = map[string]Definition{
	NameSqueezeBreakout: {
		Name: NameSqueezeBreakout,
		Sets: []models.ParameterSet{
			squeezeSet(10, 1.0, 34, 1.3),
			squeezeSet(10, 1.3, 30, 1.2),
			squeezeSet(14, 1.1, 12, 2.0),
		},
		Build: func(set models.ParameterSet) Strategy { return NewSqueezeBreakout(set) },
	},
	NameBreakoutTTMv2: {
		Name: NameBreakoutTTMv2,
		Sets: []models.ParameterSet{
			ttmSet("v2", 14, 1.4, 40, 1.2, 12, 12, 12),
			ttmSet("v1", 16, 1.0, 40, 1.2, 14, 12, 12),
		},
		Build: func(set models.ParameterSet) Strategy { return NewBreakoutTTM(set) },
	},
}

// Lookup resolves a registered strategy by name.
func Lookup(name string) (Definition, error) {
	def, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("strategies: %w %q", ErrUnknownStrategy, name)
	}
	return def, nil
}

// Names lists the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func squeezeSet(bbWindow int, bbMult float64, kcWindow int, kcMult float64) models.ParameterSet {
	return models.ParameterSet{
		{Name: "bb_window", Value: bbWindow},
		{Name: "bb_multiplier", Value: bbMult},
		{Name: "kc_window", Value: kcWindow},
		{Name: "kc_multiplier", Value: kcMult},
	}
}

// ttmSet keeps entry_version first so trade metadata serializes in the
// documented order.
func ttmSet(version string, bbWindow int, bbMult float64, kcWindow int, kcMult float64, atrWindow, momentumWindow, donchianWindow int) models.ParameterSet {
	return models.ParameterSet{
		{Name: "entry_version", Value: version},
		{Name: "bb_window", Value: bbWindow},
		{Name: "bb_multiplier", Value: bbMult},
		{Name: "kc_window", Value: kcWindow},
		{Name: "kc_multiplier", Value: kcMult},
		{Name: "atr_window", Value: atrWindow},
		{Name: "momentum_window", Value: momentumWindow},
		{Name: "donichan_window", Value: donchianWindow},
	}
}
