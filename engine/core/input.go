package core

// KeyCode values follow the GLFW key tokens so the platform layer can forward
// them untouched.
type KeyCode uint16

const (
	KEY_SPACE     KeyCode = 32
	KEY_A         KeyCode = 65
	KEY_D         KeyCode = 68
	KEY_E         KeyCode = 69
	KEY_Q         KeyCode = 81
	KEY_R         KeyCode = 82
	KEY_S         KeyCode = 83
	KEY_W         KeyCode = 87
	KEY_ESCAPE    KeyCode = 256
	KEY_ENTER     KeyCode = 257
	KEY_TAB       KeyCode = 258
	KEY_RIGHT     KeyCode = 262
	KEY_LEFT      KeyCode = 263
	KEY_DOWN      KeyCode = 264
	KEY_UP        KeyCode = 265
	KEY_F1        KeyCode = 290
	KEY_LSHIFT    KeyCode = 340
	KEY_LCONTROL  KeyCode = 341
	KEY_RSHIFT    KeyCode = 344
	KEY_RCONTROL  KeyCode = 345
	KEYS_MAX_KEYS KeyCode = 512
)

const keyboardLength = int(KEYS_MAX_KEYS)

type KeyboardState struct {
	Keys [keyboardLength]bool
}

type MouseState struct {
	X, Y float64
}

// InputState tracks the keyboard and mouse between two frames. It is owned by
// the main thread and fed from the window callbacks.
type InputState struct {
	KeyboardCurrent  KeyboardState
	KeyboardPrevious KeyboardState
	Mouse            MouseState

	deltaX, deltaY float64
	hasMouse       bool
	quit           bool
}

func NewInputState() *InputState {
	return &InputState{}
}

// EndFrame copies the current state over the previous one and clears the
// relative mouse motion.
func (s *InputState) EndFrame() {
	s.KeyboardPrevious = s.KeyboardCurrent
	s.deltaX, s.deltaY = 0, 0
}

func (s *InputState) ProcessKey(key KeyCode, pressed bool) {
	if int(key) >= keyboardLength {
		return
	}
	s.KeyboardCurrent.Keys[key] = pressed
	if key == KEY_ESCAPE && pressed {
		s.quit = true
	}
}

// ProcessMouseMove accumulates motion relative to the last known position.
// The first sample only sets the reference point.
func (s *InputState) ProcessMouseMove(x, y float64) {
	if s.hasMouse {
		s.deltaX += x - s.Mouse.X
		s.deltaY += y - s.Mouse.Y
	}
	s.Mouse = MouseState{X: x, Y: y}
	s.hasMouse = true
}

// ResetMouse drops the reference point, used when the cursor mode changes.
func (s *InputState) ResetMouse() {
	s.hasMouse = false
	s.deltaX, s.deltaY = 0, 0
}

func (s *InputState) RequestQuit() {
	s.quit = true
}

func (s *InputState) QuitRequested() bool {
	return s.quit
}

func (s *InputState) IsKeyDown(key KeyCode) bool {
	if int(key) >= keyboardLength {
		return false
	}
	return s.KeyboardCurrent.Keys[key]
}

func (s *InputState) WasKeyDown(key KeyCode) bool {
	if int(key) >= keyboardLength {
		return false
	}
	return s.KeyboardPrevious.Keys[key]
}

// KeyPressed reports a key that went down during this frame.
func (s *InputState) KeyPressed(key KeyCode) bool {
	return s.IsKeyDown(key) && !s.WasKeyDown(key)
}

func (s *InputState) MouseDelta() (float64, float64) {
	return s.deltaX, s.deltaY
}
