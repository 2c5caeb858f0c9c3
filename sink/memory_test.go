package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()
	env := testEnvelope()

	require.NoError(t, s.Write(ctx, Record{Key: clickKey, Envelope: env}))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, env, s.Envelopes()[0])

	s.FailWith(errors.New("nope"))
	assert.EqualError(t, s.Write(ctx, Record{Key: clickKey}), "nope")
	assert.Equal(t, 1, s.Len())

	s.Reset()
	assert.Empty(t, s.Records())
}
