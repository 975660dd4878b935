package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var got []string

	d.Subscribe(EventTicketEscalated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketEscalated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketResolved, func(context.Context, Event) error {
		t.Fatal("resolved handler must not run")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketEscalated, TicketID: "TKT-1"})

	assert.NoError(t, err)
	assert.Equal(t, []string{"first:TKT-1", "second:TKT-1"}, got)
}

func TestDispatcher_PanickingHandlerIsContained(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var after bool

	d.Subscribe(EventTicketRejected, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventTicketRejected, func(context.Context, Event) error {
		after = true
		return nil
	})

	assert.NotPanics(t, func() {
		assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketRejected}))
	})
	assert.True(t, after)
}
