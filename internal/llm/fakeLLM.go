package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"meetdistill/internal/llmclient"
)

// FakeReply is one scripted answer. Raw is returned verbatim so tests can
// feed malformed model output; Delay simulates a slow backend.
type FakeReply struct {
	Raw   string
	Err   error
	Delay time.Duration
}

// FakeCall records one request seen by the FakeClient.
type FakeCall struct {
	Worker string
	Prompt string
	Input  any
}

// FakeClient returns deterministic replies per worker for offline runs and tests.
// Replies for a worker are consumed in order and the last one repeats.
// Workers without a script get Fallback, or "{}" when that is nil.
type FakeClient struct {
	Fallback func(worker, prompt string, input any) FakeReply

	mu      sync.Mutex
	scripts map[string][]FakeReply
	next    map[string]int
	calls   []FakeCall
}

func NewFakeClient() *FakeClient {
	return &FakeClient{scripts: map[string][]FakeReply{}, next: map[string]int{}}
}

// Script sets the replies for worker, replacing any earlier script.
func (f *FakeClient) Script(worker string, replies ...FakeReply) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[worker] = replies
	f.next[worker] = 0
	return f
}

// ScriptJSON is Script for replies given as values to marshal.
func (f *FakeClient) ScriptJSON(worker string, values ...any) *FakeClient {
	replies := make([]FakeReply, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		replies = append(replies, FakeReply{Raw: string(b)})
	}
	return f.Script(worker, replies...)
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls returns a copy of the recorded requests.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// CallsFor returns the recorded requests for one worker, in order.
func (f *FakeClient) CallsFor(worker string) []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeCall
	for _, c := range f.calls {
		if c.Worker == worker {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	worker := WorkerFrom(ctx)
	reply := f.take(worker, prompt, input)
	if reply.Delay > 0 {
		t := time.NewTimer(reply.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return json.RawMessage(reply.Raw), nil
}

func (f *FakeClient) take(worker, prompt string, input any) FakeReply {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Worker: worker, Prompt: prompt, Input: input})
	script, ok := f.scripts[worker]
	if !ok || len(script) == 0 {
		fb := f.Fallback
		f.mu.Unlock()
		if fb != nil {
			return fb(worker, prompt, input)
		}
		return FakeReply{Raw: "{}"}
	}
	i := f.next[worker]
	if i < len(script)-1 {
		f.next[worker] = i + 1
	}
	f.mu.Unlock()
	return script[i]
}

// RegisterFake makes provider "fake" resolve to cli.
func RegisterFake(reg *llmclient.Registry, cli *FakeClient) error {
	return reg.Register("fake", func(context.Context, llmclient.ProviderConfig) (llmclient.LLMClient, error) {
		return cli, nil
	})
}
