// Package config - model files for the lp and ilp commands.

package config

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/lvmatch/model"
)

// ErrUnknownVar reports a term naming an undeclared variable.
var ErrUnknownVar = errors.New("config: unknown variable")

// VarRow declares a variable. A nil Upper is unbounded above.
type VarRow struct {
	Name   string   `yaml:"name" toml:"name" json:"name" validate:"required"`
	Domain string   `yaml:"domain" toml:"domain" json:"domain,omitempty" validate:"omitempty,oneof=continuous integer binary"`
	Lower  float64  `yaml:"lower" toml:"lower" json:"lower"`
	Upper  *float64 `yaml:"upper" toml:"upper" json:"upper,omitempty"`
}

// RowSpec declares a constraint: sum(terms) relation rhs.
type RowSpec struct {
	Name     string             `yaml:"name" toml:"name" json:"name" validate:"required"`
	Terms    map[string]float64 `yaml:"terms" toml:"terms" json:"terms" validate:"required,min=1"`
	Relation string             `yaml:"relation" toml:"relation" json:"relation" validate:"required,oneof=<= == = >="`
	RHS      float64            `yaml:"rhs" toml:"rhs" json:"rhs"`
}

// ModelFile is a linear or integer program written out by name.
type ModelFile struct {
	Sense       string             `yaml:"sense" toml:"sense" json:"sense" validate:"required,oneof=minimize maximize"`
	Variables   []VarRow           `yaml:"variables" toml:"variables" json:"variables" validate:"required,min=1,dive"`
	Constraints []RowSpec          `yaml:"constraints" toml:"constraints" json:"constraints" validate:"dive"`
	Objective   map[string]float64 `yaml:"objective" toml:"objective" json:"objective" validate:"required,min=1"`
}

// Validate checks that names are unique and every term names a variable.
func (m *ModelFile) Validate() error {
	known := make(map[string]bool, len(m.Variables))
	for _, v := range m.Variables {
		if known[v.Name] {
			return fmt.Errorf("%w: %q", model.ErrDuplicateName, v.Name)
		}
		known[v.Name] = true
	}
	check := func(where string, terms map[string]float64) error {
		for name := range terms {
			if !known[name] {
				return fmt.Errorf("%w: %q in %s", ErrUnknownVar, name, where)
			}
		}

		return nil
	}
	if err := check("objective", m.Objective); err != nil {
		return err
	}
	for _, c := range m.Constraints {
		if err := check(c.Name, c.Terms); err != nil {
			return err
		}
	}

	return nil
}

// LoadModel reads and validates a model file.
func LoadModel(path string) (*ModelFile, error) {
	var m ModelFile
	if err := load(path, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// ParseModel decodes and validates a model file held in memory.
func ParseModel(data []byte, f Format) (*ModelFile, error) {
	var m ModelFile
	if err := parse(data, f, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// Build constructs the model with the linear or the integer builder. Terms
// are added in variable-name order. The returned names are indexed like
// the model's variables.
func (m *ModelFile) Build(integer bool) (*model.Model, []string, error) {
	b := model.NewLinearBuilder()
	if integer {
		b = model.NewIntegerBuilder()
	}
	refs := make(map[string]model.VarRef, len(m.Variables))
	names := make([]string, len(m.Variables))
	for i, v := range m.Variables {
		d := model.Continuous
		switch v.Domain {
		case "integer":
			d = model.Integer
		case "binary":
			d = model.Binary
		}
		up := math.Inf(1)
		if v.Upper != nil {
			up = *v.Upper
		}
		ref, err := b.AddVariable(v.Name, d, v.Lower, up)
		if err != nil {
			return nil, nil, err
		}
		refs[v.Name], names[i] = ref, v.Name
	}

	for _, c := range m.Constraints {
		rel, err := model.ParseRelation(c.Relation)
		if err != nil {
			return nil, nil, err
		}
		if _, err = b.AddConstraint(c.Name, model.SourceUser, expr(refs, c.Terms), rel, c.RHS); err != nil {
			return nil, nil, err
		}
	}
	sense := model.Minimize
	if m.Sense == "maximize" {
		sense = model.Maximize
	}
	if err := b.SetObjective(expr(refs, m.Objective), sense); err != nil {
		return nil, nil, err
	}
	mdl, err := b.Freeze()
	if err != nil {
		return nil, nil, err
	}

	return mdl, names, nil
}

func expr(refs map[string]model.VarRef, terms map[string]float64) model.Expr {
	names := make([]string, 0, len(terms))
	for n := range terms {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]model.Term, len(names))
	for i, n := range names {
		out[i] = model.T(refs[n], terms[n])
	}

	return model.Sum(out...)
}
