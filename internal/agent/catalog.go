package agent

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Names of the built-in agents.
const (
	RootName       = "root_agent"
	OnboardingName = "onboarding_agent"
	PlanningName   = "planning_agent"
	DietitianName  = "dietitian_agent"
	CalculatorName = "nutrition_calculator_agent"
	CoachName      = "coach_agent"
	MonitoringName = "monitoring_agent"
	FeedbackName   = "feedback_agent"
)

// Spec is the declarative part of an agent: what it is for, the instruction
// a hosting model would receive, its tool and sub-agent bindings and the
// message templates it speaks with.
type Spec struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Instruction string            `yaml:"instruction" json:"instruction"`
	Tools       []string          `yaml:"tools" json:"tools"`
	SubAgents   []string          `yaml:"sub_agents" json:"sub_agents"`
	Messages    map[string]string `yaml:"messages" json:"-"`
}

// HasTool reports whether name is bound to the agent.
func (s Spec) HasTool(name string) bool { return slices.Contains(s.Tools, name) }

// CanDelegate reports whether name is one of the agent's sub-agents.
func (s Spec) CanDelegate(name string) bool { return slices.Contains(s.SubAgents, name) }

// Catalog is the set of agent specs in declaration order.
type Catalog struct {
	Agents []Spec `yaml:"agents"`
}

// LoadCatalog parses the embedded catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses a catalog document and checks its references.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing agent catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get returns the spec for name.
func (c *Catalog) Get(name string) (Spec, bool) {
	for _, s := range c.Agents {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Names returns agent names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Agents))
	for _, s := range c.Agents {
		out = append(out, s.Name)
	}
	return out
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Agents))
	for _, s := range c.Agents {
		if s.Name == "" {
			return fmt.Errorf("agent catalog: entry without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("agent catalog: %s declared twice", s.Name)
		}
		seen[s.Name] = true
	}
	for _, s := range c.Agents {
		for _, sub := range s.SubAgents {
			if !seen[sub] {
				return fmt.Errorf("agent catalog: %s lists unknown sub-agent %s", s.Name, sub)
			}
		}
	}
	return nil
}
