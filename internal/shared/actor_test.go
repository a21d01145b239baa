package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleFor(t *testing.T) {
	assert.Equal(t, RoleAdmin, RoleFor("admin"))
	assert.Equal(t, RoleCustomer, RoleFor("Admin"))
	assert.Equal(t, RoleCustomer, RoleFor("lab-north"))
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithActor(context.Background(), NewActor(7, "lab-north"))
	actor, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(7), actor.ID)
	assert.False(t, actor.IsAdmin())

	ctx = ContextWithActor(context.Background(), Actor{})
	_, ok = ActorFromContext(ctx)
	assert.False(t, ok, "zero actor is anonymous")
}
