package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscard(t *testing.T) {
	var b Broker = Discard{}
	assert.NoError(t, b.PublishEvent(context.Background(), "orders.placed", "k", struct{}{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	b.Consume(ctx, "orders.placed", "g", func(context.Context, []byte) error {
		t.Fatal("handler must not be called")
		return nil
	})
	assert.NoError(t, b.Close())
}
