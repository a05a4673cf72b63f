package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tailored-agentic-units/sktalk/observability"
	"github.com/tailored-agentic-units/sktalk/protocol"
	"github.com/tailored-agentic-units/sktalk/watch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type notifier struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (n *notifier) Queue(msg protocol.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notifier) values() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.msgs {
		out = append(out, m.Value.(string))
	}
	return out
}

func start(t *testing.T, cfg *watch.Config) *notifier {
	t.Helper()

	n := &notifier{}
	w, err := watch.New(cfg, n, watch.WithObserver(observability.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return n
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		cfg      watch.Config
		notifier watch.Notifier
		want     error
	}{
		{"no paths", watch.Config{}, &notifier{}, watch.ErrNoPaths},
		{"nil notifier", watch.Config{Paths: []string{"."}}, nil, watch.ErrNilNotifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := watch.New(&tt.cfg, tt.notifier)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNew_MissingPath(t *testing.T) {
	cfg := watch.Config{Paths: []string{filepath.Join(t.TempDir(), "missing")}}
	_, err := watch.New(&cfg, &notifier{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}

func TestWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	cfg := watch.Config{Paths: []string{dir}, DebounceMS: 100}
	n := start(t, &cfg)

	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return len(n.values()) > 0 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, []string{"write " + path}, n.values())
	n.mu.Lock()
	assert.Equal(t, string(protocol.StatusNormal), n.msgs[0].Type)
	n.mu.Unlock()
}

func TestWatcher_ReportsCreate(t *testing.T) {
	dir := t.TempDir()
	cfg := watch.Config{Paths: []string{dir}, DebounceMS: 50}
	n := start(t, &cfg)

	path := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		v := n.values()
		return len(v) == 1 && v[0] == "create "+path
	}, 5*time.Second, 10*time.Millisecond)
}

func TestConfig(t *testing.T) {
	cfg := watch.DefaultConfig()
	assert.Equal(t, watch.DefaultDebounce, cfg.Debounce())

	cfg.Merge(&watch.Config{Paths: []string{"a", "b"}, DebounceMS: 25})
	assert.Equal(t, []string{"a", "b"}, cfg.Paths)
	assert.Equal(t, 25*time.Millisecond, cfg.Debounce())

	assert.Equal(t, watch.DefaultDebounce, (&watch.Config{}).Debounce())
}
