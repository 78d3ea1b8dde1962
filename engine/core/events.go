package core

// System internal event codes.
type EventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = iota + 1
	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED
	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED
	// Framebuffer resized. Data is *ResizeEvent.
	EVENT_CODE_RESIZED
	// A watched asset changed on disk. Data is *AssetEvent.
	EVENT_CODE_ASSET_CHANGED

	MAX_EVENT_CODE
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type AssetEvent struct {
	Path string
}

// Should return true if handled. A handled event is not passed to later listeners.
type FnOnEvent func(context EventContext) bool

// EventBus dispatches events synchronously on the calling goroutine.
type EventBus struct {
	registered [MAX_EVENT_CODE][]FnOnEvent
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Register(code EventCode, onEvent FnOnEvent) bool {
	if code <= 0 || code >= MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	b.registered[code] = append(b.registered[code], onEvent)
	return true
}

// Fire invokes the listeners of the event code in registration order and
// reports whether one of them handled it.
func (b *EventBus) Fire(context EventContext) bool {
	if context.Type <= 0 || context.Type >= MAX_EVENT_CODE {
		return false
	}
	for _, fn := range b.registered[context.Type] {
		if fn(context) {
			return true
		}
	}
	return false
}

func (b *EventBus) Shutdown() {
	for i := range b.registered {
		b.registered[i] = nil
	}
}
