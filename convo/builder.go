package convo

import (
	"github.com/BaSui01/voiceloop/types"
)

// Builder constructs seeded conversation contexts. The seed role decides how
// strongly the language model treats the seed: as an instruction (system) or
// as prior dialogue (assistant).
type Builder struct {
	seedRole types.Role
}

// NewBuilder creates a builder that seeds contexts with the given role.
// An invalid or user role falls back to assistant.
func NewBuilder(seedRole types.Role) *Builder {
	if !seedRole.Valid() || seedRole == types.RoleUser {
		seedRole = types.RoleAssistant
	}
	return &Builder{seedRole: seedRole}
}

// Build constructs a new conversation context. A non-empty seed becomes the
// single first message with the configured seed role; an empty seed yields
// an empty context. Build is pure: calling it twice with the same seed
// yields structurally identical contexts.
func (b *Builder) Build(seed string) *Context {
	ctx := NewContext()
	if seed != "" {
		ctx.Append(types.NewMessage(b.seedRole, seed))
	}
	return ctx
}

// SeedRole returns the role applied to seed messages.
func (b *Builder) SeedRole() types.Role {
	return b.seedRole
}
