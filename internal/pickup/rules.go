package pickup

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"areastate.ai/internal/areastate"
)

type Config struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec accepts an item when every configured part matches. Empty parts match anything.
type RuleSpec struct {
	Name        string `yaml:"name"`
	Metadata    string `yaml:"metadata,omitempty"`
	NamePattern string `yaml:"name_pattern,omitempty"`
	When        string `yaml:"when,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"`
}

type rule struct {
	name     string
	metadata glob.Glob
	itemName glob.Glob
	when     cel.Program
}

// Filter is a compiled, immutable rule set.
type Filter struct {
	rules []rule
}

func Load(path string) (*Filter, error) {
	if strings.TrimSpace(path) == "" {
		return New(Config{})
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("pickup.yaml: %w", err)
	}
	f, err := New(cfg)
	if err != nil {
		return nil, fmt.Errorf("pickup.yaml: %w", err)
	}
	return f, nil
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("metadata", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("rarity", cel.IntType),
		cel.Variable("stack", cel.IntType),
	)
}

func New(cfg Config) (*Filter, error) {
	env, err := newEnv()
	if err != nil {
		return nil, err
	}
	f := &Filter{}
	for i, rs := range cfg.Rules {
		if rs.Enabled != nil && !*rs.Enabled {
			continue
		}
		name := strings.TrimSpace(rs.Name)
		if name == "" {
			name = fmt.Sprintf("rule%d", i+1)
		}
		r := rule{name: name}
		if rs.Metadata != "" {
			if r.metadata, err = glob.Compile(rs.Metadata, '/'); err != nil {
				return nil, fmt.Errorf("rule %q metadata: %w", name, err)
			}
		}
		if rs.NamePattern != "" {
			if r.itemName, err = glob.Compile(rs.NamePattern); err != nil {
				return nil, fmt.Errorf("rule %q name_pattern: %w", name, err)
			}
		}
		if when := strings.TrimSpace(rs.When); when != "" {
			if r.when, err = compileWhen(env, when); err != nil {
				return nil, fmt.Errorf("rule %q when: %w", name, err)
			}
		}
		if r.metadata == nil && r.itemName == nil && r.when == nil {
			return nil, fmt.Errorf("rule %q matches every item", name)
		}
		f.rules = append(f.rules, r)
	}
	return f, nil
}

func compileWhen(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.New("expression must evaluate to bool")
	}
	return env.Program(ast)
}

func (f *Filter) Len() int { return len(f.rules) }

// Match returns the first rule accepting item.
func (f *Filter) Match(item areastate.Object) (string, bool) {
	var vars map[string]any
	for _, r := range f.rules {
		if r.metadata != nil && !r.metadata.Match(item.Metadata) {
			continue
		}
		if r.itemName != nil && !r.itemName.Match(item.Name) {
			continue
		}
		if r.when != nil {
			if vars == nil {
				vars = map[string]any{
					"name":     item.Name,
					"metadata": item.Metadata,
					"kind":     item.Kind.String(),
					"rarity":   int64(item.Rarity),
					"stack":    int64(item.Stack),
				}
			}
			out, _, err := r.when.Eval(vars)
			if err != nil {
				continue
			}
			if ok, _ := out.Value().(bool); !ok {
				continue
			}
		}
		return r.name, true
	}
	return "", false
}
