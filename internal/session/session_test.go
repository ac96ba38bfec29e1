package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	started := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	sess, err := New("agent-1", started)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", sess.AgentID)
	assert.True(t, sess.StartedAt.Equal(started))
}

func TestNew_EmptyAgent(t *testing.T) {
	_, err := New("", time.Now())
	assert.Error(t, err)
}

func TestOwns(t *testing.T) {
	sess, err := New("agent-1", time.Now())
	require.NoError(t, err)

	assert.True(t, sess.Owns("agent-1"))
	assert.False(t, sess.Owns("agent-2"))
	assert.False(t, sess.Owns(""))

	// The zero Context owns nothing, not even empty ids.
	var zero Context
	assert.False(t, zero.Owns(""))
}

func TestString(t *testing.T) {
	sess, err := New("agent-1", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, sess.String(), "agent-1")
}
