package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestRetryingProviderRecovers(t *testing.T) {
	p := &scriptedProvider{next: func(n int, _ []Message) (*Message, error) {
		if n < 2 {
			return nil, errors.New("503 service unavailable")
		}
		return answer("ok"), nil
	}}
	r := NewRetryingProvider(p, time.Second, 3)
	r.NewBackOff = zeroBackOff

	msg, err := r.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Len(t, p.calls, 3)
}

func TestRetryingProviderGivesUp(t *testing.T) {
	p := &scriptedProvider{next: func(int, []Message) (*Message, error) {
		return nil, errors.New("unreachable")
	}}
	r := NewRetryingProvider(p, 0, 2)
	r.NewBackOff = zeroBackOff

	_, err := r.Chat(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "unreachable")
	assert.Len(t, p.calls, 3)
}

func TestRetryingProviderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &scriptedProvider{next: func(int, []Message) (*Message, error) {
		cancel()
		return nil, errors.New("interrupted")
	}}
	r := NewRetryingProvider(p, 0, 5)
	r.NewBackOff = zeroBackOff

	_, err := r.Chat(ctx, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, p.calls, 1)
}

func TestRetryingProviderPassesOptions(t *testing.T) {
	p := &scriptedProvider{responses: []*Message{answer("ok")}}
	r := NewRetryingProvider(p, 0, 0)

	_, err := r.Chat(context.Background(), nil, nil, WithTemperature(0.1), WithToolChoice(ToolChoiceAuto))
	require.NoError(t, err)
	require.Len(t, p.options, 1)
	require.NotNil(t, p.options[0].Temperature)
	assert.InDelta(t, 0.1, *p.options[0].Temperature, 1e-6)
	assert.Equal(t, ToolChoiceAuto, p.options[0].ToolChoice)
}

type embeddingProvider struct{ scriptedProvider }

func (*embeddingProvider) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }

func TestEmbedderOfUnwraps(t *testing.T) {
	_, ok := EmbedderOf(&scriptedProvider{})
	assert.False(t, ok)

	_, ok = EmbedderOf(NewRetryingProvider(&embeddingProvider{}, 0, 1))
	assert.True(t, ok)
}
