package assets

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/voxel/engine/assets/loaders"
	"github.com/spaghettifunk/voxel/engine/core"
	"golang.org/x/exp/slices"
)

const (
	VertexShaderFile   = "voxel.vert.spv"
	FragmentShaderFile = "voxel.frag.spv"

	shaderExt = ".spv"
	// pending changes beyond this are dropped; a single reload picks them all up.
	changeBuffer = 32
)

type AssetInfo struct {
	Path        string
	LastChanged time.Time
}

// ShaderBlobs holds the SPIR-V code of the voxel pipeline.
type ShaderBlobs struct {
	Vertex   []uint32
	Fragment []uint32
}

// AssetManager loads the shader blobs of a directory and reports when they
// change on disk.
type AssetManager struct {
	dir     string
	shaders Loader[[]uint32]

	mutex  sync.RWMutex
	assets map[string]AssetInfo

	fsnotify *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool
}

func NewAssetManager(dir string) *AssetManager {
	return &AssetManager{
		dir:     dir,
		shaders: &loaders.ShaderLoader{},
		assets:  make(map[string]AssetInfo),
		changes: make(chan string, changeBuffer),
		done:    make(chan struct{}),
	}
}

func (am *AssetManager) Dir() string {
	return am.dir
}

// LoadShaders reads both voxel shader blobs.
func (am *AssetManager) LoadShaders() (ShaderBlobs, error) {
	vertex, err := am.shaders.Load(filepath.Join(am.dir, VertexShaderFile))
	if err != nil {
		return ShaderBlobs{}, err
	}
	fragment, err := am.shaders.Load(filepath.Join(am.dir, FragmentShaderFile))
	if err != nil {
		return ShaderBlobs{}, err
	}
	return ShaderBlobs{Vertex: vertex, Fragment: fragment}, nil
}

// Watch starts reporting changes to shader blobs in the directory.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	if err := w.Add(am.dir); err != nil {
		w.Close()
		return errors.Wrapf(err, "failed to watch %s", am.dir)
	}
	am.fsnotify = w

	am.wg.Add(1)
	go am.start()
	core.LogDebug("Watching %s for shader changes.", am.dir)
	return nil
}

// PollChanges drains the pending changes without blocking. Repeated changes
// to the same file are reported once.
func (am *AssetManager) PollChanges() []string {
	var paths []string
	seen := make(map[string]bool)
	for {
		select {
		case p, ok := <-am.changes:
			if !ok {
				return paths
			}
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		default:
			return paths
		}
	}
}

// Assets lists every shader blob seen changing, sorted by path.
func (am *AssetManager) Assets() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	out := make([]AssetInfo, 0, len(am.assets))
	for _, a := range am.assets {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b AssetInfo) int { return strings.Compare(a.Path, b.Path) })
	return out
}

func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.wg.Wait()
	close(am.changes)
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleFileEvent(path string) {
	if !isShaderBlob(path) {
		return
	}
	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, LastChanged: time.Now()}
	am.mutex.Unlock()

	select {
	case am.changes <- path:
	default:
		core.LogWarn("Dropping change notification for %s.", path)
	}
}

func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, path)
}

func isShaderBlob(path string) bool {
	return filepath.Ext(path) == shaderExt
}
