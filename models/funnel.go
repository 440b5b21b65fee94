package models

// StageDefinition is one named point of the booking funnel.
type StageDefinition struct {
	ID         string   `mapstructure:"id" json:"id" yaml:"id"`
	ToolNames  []string `mapstructure:"tools" json:"tools" yaml:"tools"`
	IsTerminal bool     `mapstructure:"terminal" json:"terminal" yaml:"terminal"`
	HasAgent   bool     `mapstructure:"agent" json:"agent" yaml:"agent"`
	Prompt     string   `mapstructure:"prompt" json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// TransitionDefinition moves a conversation from one stage to another.
// Condition is a CEL expression over `ctx` and `events`; empty means always.
// From "*" matches any stage.
type TransitionDefinition struct {
	From      string `mapstructure:"from" json:"from" yaml:"from"`
	To        string `mapstructure:"to" json:"to" yaml:"to"`
	Condition string `mapstructure:"condition" json:"condition,omitempty" yaml:"condition,omitempty"`
}

// FunnelDefinition is the full stage table.
type FunnelDefinition struct {
	InitialStage string                 `mapstructure:"initial" json:"initial" yaml:"initial"`
	Stages       []StageDefinition      `mapstructure:"stages" json:"stages" yaml:"stages"`
	Transitions  []TransitionDefinition `mapstructure:"transitions" json:"transitions" yaml:"transitions"`
}
