package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func writeTestArtifact(t *testing.T, path string, bias float64) *Artifact {
	t.Helper()
	model := bmiModel()
	model.Bias = bias
	artifact, err := NewArtifact("", DefaultColumns(), 0.5, model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := SaveArtifact(path, artifact); err != nil {
		t.Fatalf("save: %v", err)
	}
	return artifact
}

func TestArtifactWatcherReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "model.json")
	writeTestArtifact(t, path, -6)
	initial, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	handle := NewModelHandle(NewPredictor(initial))

	watcher, err := NewArtifactWatcher(path, handle, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	watcher.SetDebounce(20 * time.Millisecond)
	reloaded := make(chan *Predictor, 1)
	watcher.OnReload(func(p *Predictor) {
		select {
		case reloaded <- p:
		default:
		}
	})
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer watcher.Stop()

	writeTestArtifact(t, path, -1)

	select {
	case p := <-reloaded:
		if p.Artifact().Digest == initial.Digest {
			t.Fatal("reloaded artifact has the old digest")
		}
		if handle.Current() != p {
			t.Fatal("handle does not serve the reloaded predictor")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	watcher.Stop()
}

func TestArtifactWatcherKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeTestArtifact(t, path, -6)
	initial, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	current := NewPredictor(initial)
	handle := NewModelHandle(current)

	watcher, err := NewArtifactWatcher(path, handle, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"columns":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := watcher.Reload(); err == nil {
		t.Fatal("expected reload of a broken artifact to fail")
	}
	if handle.Current() != current {
		t.Fatal("failed reload replaced the serving predictor")
	}
}
