package platform

import (
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/voxel/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the window and forwards its callbacks to the input state and
// the event bus.
type Platform struct {
	Window *glfw.Window

	input *core.InputState
	bus   *core.EventBus

	cursorCaptured bool
}

func New(input *core.InputState, bus *core.EventBus) (*Platform, error) {
	if input == nil || bus == nil {
		return nil, errors.New("platform requires an input state and an event bus")
	}
	return &Platform{
		Window: nil,
		input:  input,
		bus:    bus,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return errors.New("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "failed to create window")
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	core.LogInfo("Window '%s' created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events and reports whether the
// application should keep running.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose() && !p.input.QuitRequested()
}

// WaitEvents blocks until at least one window event arrives. Used while the
// window is minimized.
func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

// Wake unblocks a pending WaitEvents. Safe to call from any goroutine.
func (p *Platform) Wake() {
	glfw.PostEmptyEvent()
}

// FramebufferSize is the drawable size in pixels, which differs from the
// window size on high density displays.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

// GetRequiredExtensionNames lists the instance extensions the window system
// needs to create a Vulkan surface.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// SetCursorCaptured hides the cursor and switches to unbounded relative
// motion, or gives the cursor back.
func (p *Platform) SetCursorCaptured(captured bool) {
	if captured == p.cursorCaptured {
		return
	}
	p.cursorCaptured = captured
	if captured {
		p.Window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		if glfw.RawMouseMotionSupported() {
			p.Window.SetInputMode(glfw.RawMouseMotion, glfw.True)
		}
	} else {
		p.Window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	p.input.ResetMouse()
}

func (p *Platform) CursorCaptured() bool {
	return p.cursorCaptured
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyUnknown || action == glfw.Repeat {
		return
	}
	code := core.KeyCode(key)
	pressed := action == glfw.Press
	p.input.ProcessKey(code, pressed)

	eventCode := core.EVENT_CODE_KEY_RELEASED
	if pressed {
		eventCode = core.EVENT_CODE_KEY_PRESSED
	}
	p.bus.Fire(core.EventContext{Type: eventCode, Data: &core.KeyEvent{KeyCode: code}})

	if code == core.KEY_ESCAPE && pressed {
		p.bus.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.input.ProcessMouseMove(xpos, ypos)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.bus.Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.ResizeEvent{Width: uint32(max(width, 0)), Height: uint32(max(height, 0))},
	})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.input.RequestQuit()
	p.bus.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}
