package testbed

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/voxel/engine"
	"github.com/spaghettifunk/voxel/engine/core"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
}

// NewTestGame builds the free-flying viewer: WASD moves, space and shift
// raise and lower, Tab toggles mouse look.
func NewTestGame(config *engine.ApplicationConfig) (*TestGame, error) {
	if config == nil {
		return nil, errors.New("application config is required")
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize(ctx *engine.GameContext) error {
	core.LogDebug("TestGame Initialize fn....")
	ctx.Cursor.SetCursorCaptured(true)
	return nil
}

func (g *TestGame) Update(ctx *engine.GameContext, delta time.Duration) error {
	input := ctx.Input
	if input.KeyPressed(core.KEY_TAB) {
		ctx.Cursor.SetCursorCaptured(!ctx.Cursor.CursorCaptured())
	}

	if ctx.Cursor.CursorCaptured() {
		dx, dy := input.MouseDelta()
		s := ctx.Config.Camera.Sensitivity
		ctx.Camera.Rotate(-float32(dx)*s, -float32(dy)*s)
	}

	step := ctx.Config.Camera.Speed * float32(delta.Seconds())
	forward := axis(input, core.KEY_W, core.KEY_S)
	right := axis(input, core.KEY_D, core.KEY_A)
	up := axis(input, core.KEY_SPACE, core.KEY_LSHIFT)
	if forward != 0 || right != 0 || up != 0 {
		ctx.Camera.Move(forward*step, right*step, up*step)
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}

// axis is +1 while positive is held, -1 while negative is held.
func axis(input *core.InputState, positive, negative core.KeyCode) float32 {
	var v float32
	if input.IsKeyDown(positive) {
		v++
	}
	if input.IsKeyDown(negative) {
		v--
	}
	return v
}
