package optimize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradesim/backtest"
)

// ParameterDef is one dimension of the search space: Start, Start+Step,
// ... up to and including End.
type ParameterDef struct {
	Name  string  `yaml:"name" json:"name"`
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Step  float64 `yaml:"step" json:"step"`
}

// count is the number of values the parameter takes.
func (d ParameterDef) count() int {
	return int(math.Floor((d.End-d.Start)/d.Step+1e-9)) + 1
}

func (d ParameterDef) value(i int) float64 {
	return d.Start + float64(i)*d.Step
}

// Values lists every value the parameter takes.
func (d ParameterDef) Values() []float64 {
	n := d.count()
	out := make([]float64, n)
	for i := range out {
		out[i] = d.value(i)
	}
	return out
}

// ParseParameterDef parses "name=start:end:step".
func ParseParameterDef(s string) (ParameterDef, error) {
	name, rng, ok := strings.Cut(s, "=")
	if !ok {
		return ParameterDef{}, fmt.Errorf("optimize: parameter %q: want name=start:end:step", s)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return ParameterDef{}, fmt.Errorf("optimize: parameter %q: want name=start:end:step", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ParameterDef{}, fmt.Errorf("optimize: parameter %q: %w", s, err)
		}
		vals[i] = v
	}
	d := ParameterDef{Name: strings.TrimSpace(name), Start: vals[0], End: vals[1], Step: vals[2]}
	return d, validateDefs([]ParameterDef{d})
}

func validateDefs(defs []ParameterDef) error {
	if len(defs) == 0 {
		return ErrNoParameters
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("optimize: parameter name is required")
		}
		if seen[d.Name] {
			return fmt.Errorf("optimize: duplicate parameter %q", d.Name)
		}
		seen[d.Name] = true
		if d.Step <= 0 {
			return fmt.Errorf("optimize: parameter %q: step must be positive, got %v", d.Name, d.Step)
		}
		if d.End < d.Start {
			return fmt.Errorf("optimize: parameter %q: end %v is before start %v", d.Name, d.End, d.Start)
		}
	}
	return nil
}

// point is a position in the search grid as one value index per def.
type point []int

func (p point) key() string {
	var b strings.Builder
	for i, v := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

func (p point) params(defs []ParameterDef) backtest.Params {
	out := make(backtest.Params, len(defs))
	for i, d := range defs {
		out[d.Name] = d.value(p[i])
	}
	return out
}

// gridPoints enumerates the Cartesian product, first def outermost.
func gridPoints(defs []ParameterDef) []point {
	total := 1
	for _, d := range defs {
		total *= d.count()
	}
	out := make([]point, 0, total)
	cur := make(point, len(defs))
	var walk func(dim int)
	walk = func(dim int) {
		if dim == len(defs) {
			out = append(out, append(point(nil), cur...))
			return
		}
		for i := 0; i < defs[dim].count(); i++ {
			cur[dim] = i
			walk(dim + 1)
		}
	}
	walk(0)
	return out
}

// neighbors returns the points one step away along each dimension.
func neighbors(p point, defs []ParameterDef) []point {
	var out []point
	for dim, d := range defs {
		for _, delta := range []int{-1, +1} {
			v := p[dim] + delta
			if v < 0 || v >= d.count() {
				continue
			}
			n := append(point(nil), p...)
			n[dim] = v
			out = append(out, n)
		}
	}
	return out
}
