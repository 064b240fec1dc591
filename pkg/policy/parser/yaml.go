package parser

import (
	"gopkg.in/yaml.v3"

	"mercator-hq/ganymede/pkg/policy/ast"
)

// yamlDocument mirrors the policy file layout before transformation
// to the AST.
type yamlDocument struct {
	Name          string                        `yaml:"name"`
	HostURL       string                        `yaml:"host_url"`
	ResourceRules map[string]yamlResourcePolicy `yaml:"resource_rules"`
}

// yamlResourcePolicy holds the rules and summaries for one resource
// type as they appear in the file.
type yamlResourcePolicy struct {
	Rules     []yamlRule    `yaml:"rules"`
	Summaries []yamlSummary `yaml:"summaries"`
}

// yamlRule is the intermediate rule structure.
type yamlRule struct {
	Name       string                 `yaml:"name"`
	Conditions map[string]interface{} `yaml:"conditions"`
	Limits     *yamlLimits            `yaml:"limits"`
	Actions    *ast.Actions           `yaml:"actions"`

	line int
}

// UnmarshalYAML decodes the rule and records its source line.
func (r *yamlRule) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlRule
	if err := node.Decode((*plain)(r)); err != nil {
		return err
	}
	r.line = node.Line
	return nil
}

// yamlLimits is the intermediate limit structure.
type yamlLimits struct {
	MostRecent int `yaml:"most_recent"`
	Oldest     int `yaml:"oldest"`
}

// yamlSummary is the intermediate summary policy structure.
type yamlSummary struct {
	Name      string            `yaml:"name"`
	Rules     []yamlSummaryRule `yaml:"rules"`
	Summarize yamlSummarize     `yaml:"summarize"`

	line int
}

// UnmarshalYAML decodes the summary and records its source line.
func (s *yamlSummary) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlSummary
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	s.line = node.Line
	return nil
}

// yamlSummaryRule is the intermediate summary sub-rule structure.
type yamlSummaryRule struct {
	Name       string                 `yaml:"name"`
	Conditions map[string]interface{} `yaml:"conditions"`
	Limits     *yamlLimits            `yaml:"limits"`
	Summarize  struct {
		Item string `yaml:"item"`
	} `yaml:"summarize"`
}

// yamlSummarize is the aggregate summarize block of a summary policy.
type yamlSummarize struct {
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	Destination string `yaml:"destination"`
}

// parseYAMLBytes decodes policy bytes into the intermediate structure.
func parseYAMLBytes(data []byte) (*yamlDocument, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
