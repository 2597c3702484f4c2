package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	resp  Response
	err   error
	calls int
}

func (s *stubClient) Complete(_ context.Context, _ Request) (Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &stubClient{resp: Response{Text: "hallo"}}
	fallback := &stubClient{resp: Response{Text: "fallback"}}

	client := NewFallbackClient(primary, fallback, nil)
	resp, err := client.Complete(context.Background(), Request{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})

	require.NoError(t, err)
	assert.Equal(t, "hallo", resp.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestFallbackClientUsesFallbackOnPrimaryFailure(t *testing.T) {
	primary := &stubClient{err: errors.New("quota exceeded")}
	fallback := &stubClient{resp: Response{Text: "fallback"}}

	client := NewFallbackClient(primary, fallback, nil)
	resp, err := client.Complete(context.Background(), Request{})

	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	primary := &stubClient{err: errors.New("unavailable")}

	client := NewFallbackClient(primary, nil, nil)
	_, err := client.Complete(context.Background(), Request{})

	assert.EqualError(t, err, "unavailable")
}

func TestFallbackClientBothFail(t *testing.T) {
	primary := &stubClient{err: errors.New("primary down")}
	fallback := &stubClient{err: errors.New("fallback down")}

	client := NewFallbackClient(primary, fallback, nil)
	_, err := client.Complete(context.Background(), Request{})

	assert.EqualError(t, err, "fallback down")
}
