package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	name   string
	answer *Answer
	err    error
	calls  int
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(_ context.Context, _ string) (*Answer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func TestRotationFirstSuccessWins(t *testing.T) {
	first := &fakeGenerator{name: "a", answer: &Answer{Text: "from a", Source: "ai"}}
	second := &fakeGenerator{name: "b", answer: &Answer{Text: "from b", Source: "ai"}}

	r := NewRotation([]Generator{first, second}, time.Second, 10, nil)
	answer, err := r.Generate(context.Background(), "what is go")
	require.NoError(t, err)
	require.Equal(t, "from a", answer.Text)
	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls)
}

func TestRotationFallsThroughOnError(t *testing.T) {
	first := &fakeGenerator{name: "a", err: fmt.Errorf("boom")}
	second := &fakeGenerator{name: "b", answer: &Answer{Text: "from b", Source: "ai"}}

	r := NewRotation([]Generator{first, second}, time.Second, 10, nil)
	answer, err := r.Generate(context.Background(), "what is go")
	require.NoError(t, err)
	require.Equal(t, "from b", answer.Text)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestRotationAllFail(t *testing.T) {
	first := &fakeGenerator{name: "a", err: fmt.Errorf("boom")}
	second := &fakeGenerator{name: "b", err: fmt.Errorf("also boom")}

	r := NewRotation([]Generator{first, second}, time.Second, 10, nil)
	_, err := r.Generate(context.Background(), "what is go")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRotationEmpty(t *testing.T) {
	r := NewRotation(nil, time.Second, 10, nil)
	_, err := r.Generate(context.Background(), "what is go")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestRotationCancelledContext(t *testing.T) {
	gen := &fakeGenerator{name: "a", answer: &Answer{Text: "from a"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRotation([]Generator{gen}, time.Second, 10, nil)
	_, err := r.Generate(ctx, "what is go")
	require.ErrorIs(t, err, ErrUnavailable)
	require.Zero(t, gen.calls)
}

type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingGenerator) Name() string { return "blocking" }

func (b *blockingGenerator) Generate(_ context.Context, _ string) (*Answer, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
	}
	<-b.release
	return &Answer{Text: "shared", Source: "ai"}, nil
}

func TestRotationCollapsesConcurrentIdenticalQueries(t *testing.T) {
	gen := &blockingGenerator{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := NewRotation([]Generator{gen}, time.Second, 100, nil)

	const callers = 5
	var wg sync.WaitGroup
	answers := make([]*Answer, callers)
	errs := make([]error, callers)
	call := func(i int) {
		defer wg.Done()
		answers[i], errs[i] = r.Generate(context.Background(), "what is go")
	}

	wg.Add(1)
	go call(0)
	<-gen.started

	// The first call is now blocked upstream; the rest must join it.
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go call(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(gen.release)
	wg.Wait()

	require.Equal(t, int32(1), gen.calls.Load())
	for i, answer := range answers {
		require.NoError(t, errs[i])
		require.Equal(t, "shared", answer.Text)
	}
}
