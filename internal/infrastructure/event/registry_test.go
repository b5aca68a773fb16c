package event

import (
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Order(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	wild := newTestHandler()

	r.Register(a, "X")
	r.Register(wild)
	r.Register(b, "X", "Y")

	assert.Equal(t, []shared.EventHandler{a, b, wild}, r.Handlers("X"))
	assert.Equal(t, []shared.EventHandler{b, wild}, r.Handlers("Y"))
	assert.Equal(t, []shared.EventHandler{wild}, r.Handlers("Z"))
}

func TestHandlerRegistry_UnregisterKeepsOthers(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	r.Register(a, "X")
	r.Register(b, "X")

	before := r.Handlers("X")
	r.Unregister(a)

	assert.Equal(t, []shared.EventHandler{b}, r.Handlers("X"))
	assert.Len(t, before, 2, "previously returned slices are not mutated")
}
