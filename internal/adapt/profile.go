package adapt

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownProfile means no style profile has the requested name.
var ErrUnknownProfile = errors.New("unknown style profile")

// StrategyGroup is a titled list of rewriting instructions.
type StrategyGroup struct {
	Title string   `yaml:"title" json:"title"`
	Items []string `yaml:"items" json:"items"`
}

// Profile describes the target audience and how text is rewritten for it.
type Profile struct {
	Name        string          `yaml:"name" json:"name"`
	Audience    string          `yaml:"audience" json:"audience"`
	System      string          `yaml:"system,omitempty" json:"system,omitempty"`
	Task        string          `yaml:"task,omitempty" json:"task,omitempty"` // {audience} is substituted
	Strategies  []StrategyGroup `yaml:"strategies" json:"strategies"`
	Formatting  []string        `yaml:"formatting,omitempty" json:"formatting,omitempty"`
	Temperature *float64        `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int             `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Markup      string          `yaml:"markup,omitempty" json:"markup,omitempty"` // Markup mode the output is written in
}

// Profiles is a registry of style profiles keyed by name.
type Profiles map[string]Profile

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "teen-philosophy"

// BuiltinProfiles returns the profiles shipped with the binary.
func BuiltinProfiles() Profiles {
	return Profiles{
		"teen-philosophy": {
			Name:     "teen-philosophy",
			Audience: "16-year-old students",
			System:   "You are an assistant that adapts philosophical texts for 16-year-old students by applying simplification, relevance and engagement strategies.",
			Strategies: []StrategyGroup{
				{Title: "Simplify the language", Items: []string{
					"Replace complex philosophical terms with everyday language.",
					"Use shorter sentences.",
					"Explain abstract concepts with analogies from a teenager's daily life.",
					"Remove academic jargon.",
				}},
				{Title: "Relevance for teenagers", Items: []string{
					"Connect the ideas with exploring personal identity, social relationships, school and life challenges, technology and modern experiences, personal growth and emotional intelligence.",
				}},
				{Title: "Engagement techniques", Items: []string{
					"Use a conversational tone.",
					"Use real-world examples.",
					"Add reflective questions.",
					"Break complex ideas into parts that are easy to understand.",
					"Highlight practical applications for daily life.",
				}},
			},
			Markup: "heuristic",
		},
		"corporate-2024": {
			Name:     "corporate-2024",
			Audience: "corporate managers in 2024",
			Task:     "Reimagine the following text in a modern corporate setting. Imagine the author is writing in 2024 for {audience}.",
			Strategies: []StrategyGroup{
				{Title: "Adaptation instructions", Items: []string{
					"Maintain the essence of the original wisdom.",
					"Use simple, contemporary language.",
					"Incorporate references to modern technology, work-life balance, stress, leadership and productivity.",
					"Adjust metaphors and examples to fit today's corporate culture.",
				}},
			},
			Markup: "heuristic",
		},
		"corporate-2024-formatted": {
			Name:     "corporate-2024-formatted",
			Audience: "corporate managers in 2024",
			System:   "You are an assistant that adapts philosophical texts to modern corporate contexts using proper formatting.",
			Task:     "Reimagine the following text in a modern corporate environment of 2024 for {audience}.",
			Strategies: []StrategyGroup{
				{Title: "Adaptation instructions", Items: []string{
					"Use simple and contemporary language while preserving the original wisdom.",
					"Make examples and metaphors relevant to current challenges faced by corporate managers.",
					"Reference modern technology, work-life balance, and common issues such as stress, leadership and productivity.",
				}},
			},
			Formatting: []string{
				"Use proper formatting without Markdown symbols.",
				"Mark bold text with <b></b> and italics with <i></i> instead of asterisks.",
				"Mark headings with <h2></h2> or <h3></h3> instead of hashtags.",
			},
			Markup: "tags",
		},
	}
}

// LoadProfiles reads a YAML list of profiles and merges it over the
// built-ins. An empty path returns the built-ins.
func LoadProfiles(path string) (Profiles, error) {
	profiles := BuiltinProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var file struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	for i, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d in %s has no name", i, path)
		}
		if p.Audience == "" {
			return nil, fmt.Errorf("profile %q has no audience", p.Name)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Get looks up a profile by name.
func (ps Profiles) Get(name string) (Profile, error) {
	p, ok := ps[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns the profile names in sorted order.
func (ps Profiles) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
