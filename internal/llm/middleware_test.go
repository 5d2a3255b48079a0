package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetdistill/internal/llmclient"
)

func TestWrap_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			return &recorder{next: next, name: name, order: &order}
		}
	}
	cli := Wrap(NewFakeClient(), mk("A"), nil, mk("B"))
	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
}

type recorder struct {
	next  llmclient.LLMClient
	name  string
	order *[]string
}

func (r *recorder) Name() string { return r.next.Name() }
func (r *recorder) Close() error { return r.next.Close() }
func (r *recorder) GenerateJSON(ctx context.Context, p string, in any) (json.RawMessage, error) {
	*r.order = append(*r.order, r.name)
	return r.next.GenerateJSON(ctx, p, in)
}

func TestRetry(t *testing.T) {
	ctx := WithWorker(context.Background(), "w")

	t.Run("Should retry transient errors then succeed", func(t *testing.T) {
		fake := NewFakeClient().Script("w",
			FakeReply{Err: errors.New("503")},
			FakeReply{Err: errors.New("503")},
			FakeReply{Raw: `{"ok":true}`},
		)
		raw, err := Wrap(fake, Retry(3, time.Millisecond)).GenerateJSON(ctx, "p", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(raw))
		assert.Len(t, fake.Calls(), 3)
	})

	t.Run("Should give up after max attempts with the last error", func(t *testing.T) {
		fake := NewFakeClient().Script("w", FakeReply{Err: errors.New("boom")})
		_, err := Wrap(fake, Retry(2, time.Millisecond)).GenerateJSON(ctx, "p", nil)
		require.EqualError(t, err, "boom")
		assert.Len(t, fake.Calls(), 2)
	})

	t.Run("Should not retry permanent errors", func(t *testing.T) {
		fake := NewFakeClient().Script("w", FakeReply{Err: llmclient.NewPermanentError(errors.New("bad key"))})
		_, err := Wrap(fake, Retry(5, time.Millisecond)).GenerateJSON(ctx, "p", nil)
		require.Error(t, err)
		assert.True(t, llmclient.IsPermanent(err))
		assert.Len(t, fake.Calls(), 1)
	})
}

func TestTimeout(t *testing.T) {
	ctx := WithWorker(context.Background(), "slow")

	t.Run("Should report a per-call timeout while the parent is live", func(t *testing.T) {
		fake := NewFakeClient().Script("slow", FakeReply{Raw: "{}", Delay: time.Second})
		_, err := Wrap(fake, Timeout(10*time.Millisecond)).GenerateJSON(ctx, "p", nil)
		assert.ErrorIs(t, err, ErrCallTimeout)
	})

	t.Run("Should give each retry a fresh deadline", func(t *testing.T) {
		fake := NewFakeClient().Script("slow",
			FakeReply{Raw: "{}", Delay: time.Second},
			FakeReply{Raw: `{"second":true}`},
		)
		raw, err := Wrap(fake, Retry(2, time.Millisecond), Timeout(10*time.Millisecond)).GenerateJSON(ctx, "p", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"second":true}`, string(raw))
	})

	t.Run("Should pass through parent cancellation", func(t *testing.T) {
		fake := NewFakeClient().Script("slow", FakeReply{Raw: "{}", Delay: time.Second})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Wrap(fake, Timeout(time.Second)).GenerateJSON(cctx, "p", nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrCallTimeout)
	})
}

type countingHook struct {
	mu     sync.Mutex
	before map[string]int
	errs   int
}

func (h *countingHook) Before(_ context.Context, worker, _ string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.before[worker]++
}

func (h *countingHook) After(_ context.Context, _ string, _ json.RawMessage, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.errs++
	}
}

func TestWithHooks(t *testing.T) {
	hook := &countingHook{before: map[string]int{}}
	fake := NewFakeClient().Script("bad", FakeReply{Err: errors.New("x")})
	cli := Wrap(fake, WithHooks())

	ctx := WithPromptHook(context.Background(), hook)
	_, _ = cli.GenerateJSON(WithWorker(ctx, "good"), "p", nil)
	_, _ = cli.GenerateJSON(WithWorker(ctx, "bad"), "p", nil)
	_, _ = cli.GenerateJSON(context.Background(), "p", nil)

	assert.Equal(t, map[string]int{"good": 1, "bad": 1}, hook.before)
	assert.Equal(t, 1, hook.errs)
}

func TestFakeClient_ScriptOrder(t *testing.T) {
	fake := NewFakeClient().ScriptJSON("w", map[string]int{"n": 1}, map[string]int{"n": 2})
	ctx := WithWorker(context.Background(), "w")
	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":2}`} {
		raw, err := fake.GenerateJSON(ctx, "p", nil)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(raw))
	}
	assert.Len(t, fake.CallsFor("w"), 3)

	raw, err := fake.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestRateLimit(t *testing.T) {
	cli := Wrap(NewFakeClient(), RateLimit(1000, 2))
	defer cli.Close()
	for i := 0; i < 5; i++ {
		_, err := cli.GenerateJSON(context.Background(), "p", nil)
		require.NoError(t, err)
	}

	assert.IsType(t, &FakeClient{}, Wrap(NewFakeClient(), RateLimit(0, 0)), "disabled limiter is a no-op")

	t.Run("Should not call the backend once the context is done", func(t *testing.T) {
		fake := NewFakeClient()
		slow := Wrap(fake, RateLimit(0.01, 1))
		_, err := slow.GenerateJSON(context.Background(), "p", nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = slow.GenerateJSON(ctx, "p", nil)
		require.Error(t, err)
		assert.Len(t, fake.Calls(), 1)
	})

	assert.Equal(t, 3, computeBurst(2.5, 0))
	assert.Equal(t, 1, computeBurst(0.2, 0))
	assert.Equal(t, 7, computeBurst(2.5, 7))
}
