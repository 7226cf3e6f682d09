package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/fieldops/internal/storage"
	"github.com/cory-johannsen/fieldops/internal/storage/memory"
)

func TestKV_GetMissing(t *testing.T) {
	_, err := memory.New().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestKV_PutGet_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	in := []byte("alpha")
	require.NoError(t, kv.Put(ctx, "k", in))
	in[0] = 'X'

	out, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(out))
	out[0] = 'Y'

	again, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(again))
}

func TestKV_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	kv := memory.New()
	assert.ErrorIs(t, kv.Put(ctx, "k", nil), context.Canceled)
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProperty_LastWriteWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		kv := memory.New()
		values := rapid.SliceOfN(rapid.SliceOf(rapid.Byte()), 1, 10).Draw(rt, "values")
		for _, v := range values {
			require.NoError(rt, kv.Put(ctx, "key", v))
		}
		got, err := kv.Get(ctx, "key")
		require.NoError(rt, err)
		assert.Equal(rt, len(values[len(values)-1]), len(got))
		assert.Equal(rt, string(values[len(values)-1]), string(got))
	})
}
