package engine

import (
	"time"

	"github.com/spaghettifunk/voxel/engine/core"
	"github.com/spaghettifunk/voxel/engine/renderer/components"
)

// CursorController switches the cursor between camera control and a free
// pointer.
type CursorController interface {
	SetCursorCaptured(captured bool)
	CursorCaptured() bool
}

// GameContext is what the engine hands to the game hooks every frame.
type GameContext struct {
	Config *ApplicationConfig
	Input  *core.InputState
	Camera *components.Camera
	Cursor CursorController
}

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func(ctx *GameContext) error
type Update func(ctx *GameContext, delta time.Duration) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
