package viz

import (
	"github.com/google/uuid"

	"climaviz/internal/llm"
)

// TierUnresolved marks a run whose complexity tier still has to be
// derived from the persona description.
const TierUnresolved = -1

// Context carries everything one pipeline run needs. It owns all
// per-run values; nothing in it outlives the run.
type Context struct {
	RunID    string
	ChatID   string
	Messages []llm.Message
	Persona  string
	Tier     int
	Location string
	Topic    string
	Scenario string
	Options  []string
	Lang     string
}

// NewContext assigns a run ID and applies defaults.
func NewContext() Context {
	return Context{
		RunID: uuid.NewString(),
		Tier:  TierUnresolved,
		Lang:  "en",
	}
}

// Normalize fills defaults on a context built by hand: a run ID, the
// "en" language tag, and tier 0 when no persona is available to
// resolve one from.
func (c Context) Normalize() Context {
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	if c.Lang == "" {
		c.Lang = "en"
	}
	if (c.Tier < 0 || c.Tier > 2) && c.Persona == "" {
		c.Tier = 0
	}
	return c
}

// LastUserMessage returns the newest user-authored message text.
func (c Context) LastUserMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == llm.RoleUser {
			return c.Messages[i].Text
		}
	}
	return ""
}
