package engine

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxel/engine/assets"
	"github.com/spaghettifunk/voxel/engine/core"
	"github.com/spaghettifunk/voxel/engine/platform"
	"github.com/spaghettifunk/voxel/engine/renderer/components"
	"github.com/spaghettifunk/voxel/engine/renderer/vulkan"
	"github.com/spaghettifunk/voxel/engine/voxel"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// metrics are logged every this many frames.
const metricsLogInterval = 300

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig
	isRunning    bool
	isSuspended  bool
	stop         atomic.Bool

	input        *core.InputState
	bus          *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	clock        *core.Clock
	metrics      *core.Metrics

	context   *vulkan.VulkanContext
	surface   *vulkan.VulkanSurface
	scheduler *vulkan.VulkanFrameScheduler
	renderer  *vulkan.VoxelRenderer
	rebuild   *rebuildChain
	pending   rebuildKind

	presentMode vk.PresentMode
	shaders     vulkan.ShaderSet
	// Reloaded blobs not yet built into a pipeline.
	nextShaders *vulkan.ShaderSet
	object      *voxel.Object
	faces       []voxel.Face
	camera      *components.Camera
	gameContext *GameContext

	width  uint32
	height uint32
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("a game with an application config is required")
	}
	config := g.ApplicationConfig
	if err := config.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(config.LogLevel)

	presentMode, err := ParsePresentMode(config.Renderer.PresentMode)
	if err != nil {
		return nil, err
	}

	input := core.NewInputState()
	bus := core.NewEventBus()
	p, err := platform.New(input, bus)
	if err != nil {
		return nil, err
	}

	camera := components.NewCamera(mgl32.Vec3(config.Camera.Position), config.Camera.Yaw, config.Camera.Pitch)

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		input:        input,
		bus:          bus,
		platform:     p,
		assetManager: assets.NewAssetManager(config.Renderer.ShaderDir),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		presentMode:  presentMode,
		camera:       camera,
		width:        config.StartWidth,
		height:       config.StartHeight,
	}
	e.gameContext = &GameContext{
		Config: config,
		Input:  input,
		Camera: camera,
		Cursor: p,
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e.onResized)
	e.bus.Register(core.EVENT_CODE_ASSET_CHANGED, e.onAssetChanged)

	if err := e.buildWorld(); err != nil {
		return err
	}

	blobs, err := e.assetManager.LoadShaders()
	if err != nil {
		return err
	}
	e.shaders = vulkan.ShaderSet{Vertex: blobs.Vertex, Fragment: blobs.Fragment}

	if err := e.platform.Startup(e.config.Name, e.config.StartPosX, e.config.StartPosY, e.config.StartWidth, e.config.StartHeight); err != nil {
		return err
	}

	context, err := vulkan.NewContext(e.platform, vulkan.ContextConfig{
		AppName:    e.config.Name,
		Validation: e.config.Renderer.Validation,
	})
	if err != nil {
		return err
	}
	e.context = context

	e.width, e.height = e.platform.FramebufferSize()
	surface, err := vulkan.NewSurface(context, vulkan.SurfaceConfig{
		ClearColor:  e.config.Renderer.ClearColor,
		PresentMode: e.presentMode,
		Width:       e.width,
		Height:      e.height,
	})
	if err != nil {
		return err
	}
	e.surface = surface

	scheduler, err := vulkan.NewFrameScheduler(surface)
	if err != nil {
		return err
	}
	e.scheduler = scheduler

	renderer, err := vulkan.NewVoxelRenderer(surface, e.shaders, e.faces)
	if err != nil {
		return err
	}
	e.renderer = renderer

	e.rebuild = &rebuildChain{
		device:   e.context,
		surface:  e.rebuildSurface,
		renderer: e.rebuildRenderer,
		reload:   e.reloadRenderer,
	}

	if e.config.Renderer.HotReload {
		if err := e.assetManager.Watch(); err != nil {
			core.LogWarn("Shader hot reload disabled: %s", err)
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.gameContext); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// buildWorld fills the test object and meshes its first chunk.
func (e *Engine) buildWorld() error {
	w := e.config.World
	gen, err := voxel.GeneratorByName(w.Pattern, w.Seed, w.Density)
	if err != nil {
		return err
	}
	e.object = voxel.NewTestObject(w.Size, gen)
	coords := e.object.Coords()
	if len(coords) == 0 {
		return errors.New("test object has no chunks")
	}
	chunk, _ := e.object.Chunk(coords[0])
	e.faces = voxel.Faces(chunk)
	core.LogInfo("World '%s': %d chunks, %d faces in total, %d drawn.", w.Pattern, e.object.Len(), e.object.FaceCount(), len(e.faces))
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()

	for e.isRunning {
		if e.stop.Load() || !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.pollAssets()

		if e.isSuspended {
			e.platform.WaitEvents()
			continue
		}

		delta := e.clock.Tick()
		e.clock.Update()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e.gameContext, delta); err != nil {
				return errors.Wrap(err, "game update failed")
			}
		}

		if e.renderer.Stale(e.surface) {
			e.pending |= rebuildRenderer
		}
		if err := e.applyRebuilds(); err != nil {
			return err
		}
		if e.isSuspended {
			e.input.EndFrame()
			continue
		}

		fresh, err := e.scheduler.Render(e.surface, e.record)
		if err != nil {
			return errors.Wrap(err, "frame rendering failed")
		}
		if !fresh {
			slot := e.scheduler.CurrentSlot()
			core.LogDebug("Swapchain out of date in slot %d (%s), rebuilding.", slot, e.scheduler.SlotState(slot))
			e.pending |= rebuildSurface
		}

		e.metrics.Update(delta)
		if e.scheduler.FrameNumber > 0 && e.scheduler.FrameNumber%metricsLogInterval == 0 {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.2f ms/frame after %s, camera at %v", fps, ms, e.clock.Elapsed().Round(time.Second), e.camera.Position)
		}

		// Input state is copied last so every callback of this frame is seen.
		e.input.EndFrame()
	}
	return nil
}

// Stop asks the main loop to exit. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.stop.Store(true)
	if e.platform.Window != nil {
		e.platform.Wake()
	}
}

func (e *Engine) record(cb *vulkan.VulkanCommandBuffer) {
	transform := e.camera.Matrix(e.config.Camera.FOVRadians(), e.surface.AspectRatio())
	e.renderer.Draw(cb, transform)
}

// applyRebuilds runs the pending rebuilds against the current framebuffer
// size. A zero-sized framebuffer suspends rendering instead.
func (e *Engine) applyRebuilds() error {
	if e.pending == 0 {
		return nil
	}
	width, height := e.platform.FramebufferSize()
	if width == 0 || height == 0 {
		e.suspend()
		return nil
	}
	e.width, e.height = width, height

	kind := e.pending
	e.pending = 0
	return e.rebuild.run(kind, width, height)
}

func (e *Engine) rebuildSurface(width, height uint32) error {
	surface, err := e.surface.Rebuild(width, height)
	if err != nil {
		return err
	}
	e.surface = surface
	return nil
}

func (e *Engine) rebuildRenderer() error {
	renderer, err := e.renderer.Rebuild(e.surface, e.shaders, e.faces)
	if err != nil {
		return err
	}
	e.renderer = renderer
	core.LogDebug("Renderer rebuilt with %d faces.", renderer.FaceCount())
	return nil
}

// reloadRenderer builds a pipeline from the reloaded shader blobs. The
// current renderer is only released once the new one is built.
func (e *Engine) reloadRenderer() error {
	shaders := e.nextShaders
	e.nextShaders = nil
	if shaders == nil {
		return nil
	}
	renderer, err := swapRenderer(e.renderer, func() (*vulkan.VoxelRenderer, error) {
		return vulkan.NewVoxelRenderer(e.surface, *shaders, e.faces)
	})
	e.renderer = renderer
	if err != nil {
		return err
	}
	e.shaders = *shaders
	core.LogInfo("Pipeline rebuilt from reloaded shaders.")
	return nil
}

func (e *Engine) suspend() {
	if !e.isSuspended {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
	}
}

// pollAssets forwards shader changes seen by the watcher to the event bus.
func (e *Engine) pollAssets() {
	for _, path := range e.assetManager.PollChanges() {
		e.bus.Fire(core.EventContext{
			Type: core.EVENT_CODE_ASSET_CHANGED,
			Data: &core.AssetEvent{Path: path},
		})
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	var errs error
	if e.context != nil && e.context.Device != nil {
		if err := e.context.WaitIdle(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	if e.scheduler != nil {
		e.scheduler.Destroy()
		e.scheduler = nil
	}
	if e.surface != nil {
		e.surface.Destroy()
		e.surface = nil
	}
	if e.context != nil {
		e.context.Release()
		e.context = nil
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	for _, a := range e.assetManager.Assets() {
		core.LogDebug("Shader %s last changed at %s.", a.Path, a.LastChanged.Format(time.TimeOnly))
	}
	if err := e.assetManager.Shutdown(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	e.bus.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	return errs
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_F1 {
		core.LogInfo("Camera at %v, yaw %.3f, pitch %.3f.", e.camera.Position, e.camera.Yaw, e.camera.Pitch)
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if re.Width == e.width && re.Height == e.height && !e.isSuspended {
		return false
	}
	core.LogDebug("Window resize: %d, %d", re.Width, re.Height)

	if re.Width == 0 || re.Height == 0 {
		e.suspend()
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	e.pending |= rebuildSurface
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(re.Width, re.Height); err != nil {
			core.LogError("game resize hook failed: %s", err)
		}
	}
	return true
}

func (e *Engine) onAssetChanged(context core.EventContext) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	blobs, err := e.assetManager.LoadShaders()
	if err != nil {
		// Usually a blob caught mid-write; the next write event retries.
		core.LogWarn("Ignoring shader change %s: %s", ae.Path, err)
		return true
	}
	core.LogInfo("Shader %s changed, rebuilding the pipeline.", ae.Path)
	e.nextShaders = &vulkan.ShaderSet{Vertex: blobs.Vertex, Fragment: blobs.Fragment}
	e.pending |= reloadShaders
	return true
}
