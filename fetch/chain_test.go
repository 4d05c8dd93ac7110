package fetch_test

import (
	"context"
	"errors"
	"testing"

	"clubfeed/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticStrategy(name, value string, err error, calls *[]string) fetch.Strategy[string] {
	return fetch.Strategy[string]{
		Name: name,
		Run: func(ctx context.Context) (string, error) {
			*calls = append(*calls, name)
			return value, err
		},
	}
}

func TestFirstSuccess(t *testing.T) {
	boom := errors.New("boom")

	t.Run("first wins", func(t *testing.T) {
		var calls []string
		v, err := fetch.FirstSuccess(context.Background(),
			staticStrategy("a", "A", nil, &calls),
			staticStrategy("b", "B", nil, &calls),
		)
		require.NoError(t, err)
		assert.Equal(t, "A", v)
		assert.Equal(t, []string{"a"}, calls)
	})

	t.Run("falls through failures", func(t *testing.T) {
		var calls []string
		v, err := fetch.FirstSuccess(context.Background(),
			staticStrategy("a", "", boom, &calls),
			staticStrategy("b", "B", nil, &calls),
			staticStrategy("c", "C", nil, &calls),
		)
		require.NoError(t, err)
		assert.Equal(t, "B", v)
		assert.Equal(t, []string{"a", "b"}, calls)
	})

	t.Run("exhausted keeps every cause", func(t *testing.T) {
		other := errors.New("other")
		var calls []string
		_, err := fetch.FirstSuccess(context.Background(),
			staticStrategy("a", "", boom, &calls),
			staticStrategy("b", "", other, &calls),
		)
		assert.ErrorIs(t, err, fetch.ErrExhausted)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, other)
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := fetch.FirstSuccess[string](context.Background())
		assert.ErrorIs(t, err, fetch.ErrExhausted)
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var calls []string
		_, err := fetch.FirstSuccess(ctx, staticStrategy("a", "A", nil, &calls))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, calls)
	})
}
