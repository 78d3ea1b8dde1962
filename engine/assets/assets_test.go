package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/voxel/engine/assets/loaders"
	"github.com/spaghettifunk/voxel/engine/core"
)

func writeBlob(t *testing.T, path string, words ...uint32) {
	t.Helper()
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadShaders(t *testing.T) {
	dir := t.TempDir()
	am := NewAssetManager(dir)
	defer am.Shutdown()

	if _, err := am.LoadShaders(); !errors.Is(err, core.ErrShaderLoad) {
		t.Fatalf("err = %v, want ErrShaderLoad", err)
	}

	writeBlob(t, filepath.Join(dir, VertexShaderFile), loaders.SPIRVMagic, 1)
	writeBlob(t, filepath.Join(dir, FragmentShaderFile), loaders.SPIRVMagic, 2, 3)

	blobs, err := am.LoadShaders()
	if err != nil {
		t.Fatalf("LoadShaders: %v", err)
	}
	if len(blobs.Vertex) != 2 || len(blobs.Fragment) != 3 {
		t.Fatalf("got %d/%d words", len(blobs.Vertex), len(blobs.Fragment))
	}
}

func TestWatchReportsShaderChanges(t *testing.T) {
	dir := t.TempDir()
	am := NewAssetManager(dir)
	if err := am.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, VertexShaderFile)
	writeBlob(t, target, loaders.SPIRVMagic)

	var changed []string
	deadline := time.Now().Add(5 * time.Second)
	for len(changed) == 0 && time.Now().Before(deadline) {
		changed = am.PollChanges()
		time.Sleep(10 * time.Millisecond)
	}
	if len(changed) == 0 {
		t.Fatal("no change reported")
	}
	for _, p := range changed {
		if filepath.Base(p) != VertexShaderFile {
			t.Fatalf("change reported for %s", p)
		}
	}

	found := false
	for _, a := range am.Assets() {
		if filepath.Base(a.Path) == VertexShaderFile {
			found = true
		}
	}
	if !found {
		t.Fatalf("assets = %v", am.Assets())
	}

	if err := am.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := am.Watch(); err == nil {
		t.Fatal("Watch after Shutdown should fail")
	}
}

func TestPollChangesCoalesces(t *testing.T) {
	am := NewAssetManager(t.TempDir())
	defer am.Shutdown()

	am.handleFileEvent("a.spv")
	am.handleFileEvent("a.spv")
	am.handleFileEvent("b.txt")
	am.handleFileEvent("b.spv")

	got := am.PollChanges()
	if len(got) != 2 || got[0] != "a.spv" || got[1] != "b.spv" {
		t.Fatalf("PollChanges = %v", got)
	}
	if got := am.PollChanges(); len(got) != 0 {
		t.Fatalf("second poll = %v", got)
	}
}
