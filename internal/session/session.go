// Package session scopes core operations to the selected field agent.
//
// The agent id is an opaque string supplied by the identity provider.
// It is threaded explicitly into every derivation, enqueue, and
// preflight call instead of being read from ambient state: one agent's
// pending mutations must never leak into another's totals after an
// account switch, and an explicit value makes that impossible to get
// wrong at a call site.
package session

import (
	"fmt"
	"time"
)

// Context identifies the active working session.
type Context struct {
	AgentID   string
	StartedAt time.Time
}

// New creates a session for the given agent id.
func New(agentID string, now time.Time) (Context, error) {
	if agentID == "" {
		return Context{}, fmt.Errorf("session: empty agent id")
	}
	return Context{AgentID: agentID, StartedAt: now}, nil
}

// Owns reports whether the session owns an entry recorded for agentID.
func (c Context) Owns(agentID string) bool {
	return c.AgentID != "" && c.AgentID == agentID
}

func (c Context) String() string {
	return fmt.Sprintf("session(agent=%s, started=%s)", c.AgentID, c.StartedAt.Format(time.RFC3339))
}
