package opt

import (
	"fmt"
	"strings"

	"github.com/cwbudde/greywolf/internal/gwo"
)

// Lookup builds an optimizer by name: a grey wolf variant ("continuous",
// "gwo-hybrid", ...) or "mayfly".
func Lookup(name string, s Settings) (Optimizer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "mayfly" {
		return NewMayfly(s), nil
	}
	v, err := gwo.ParseVariant(strings.TrimPrefix(name, "gwo-"))
	if err != nil {
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
	return NewGWO(v, s), nil
}

// All returns every grey wolf variant followed by the mayfly baseline.
func All(s Settings) []Optimizer {
	out := make([]Optimizer, 0, len(gwo.Variants())+1)
	for _, v := range gwo.Variants() {
		out = append(out, NewGWO(v, s))
	}
	return append(out, NewMayfly(s))
}
