package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, RoleSystem, NewSystemMessage("s").Role)
	assert.Equal(t, RoleUser, NewUserMessage("u").Role)
	assert.Equal(t, RoleAssistant, NewAssistantMessage("a").Role)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleSystem.Valid())
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("tool").Valid())
	assert.False(t, Role("").Valid())
}
