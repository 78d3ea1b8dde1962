package engine

import (
	"bytes"
	"math"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/voxel/engine/core"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height.
	StartHeight uint32        `toml:"start_height"`
	LogLevel    core.LogLevel `toml:"log_level"`

	Renderer RendererConfig `toml:"renderer"`
	Camera   CameraConfig   `toml:"camera"`
	World    WorldConfig    `toml:"world"`
}

type RendererConfig struct {
	Validation bool `toml:"validation"`
	// One of "mailbox", "fifo", "fifo_relaxed" or "immediate". FIFO is used
	// when the requested mode is not available.
	PresentMode string     `toml:"present_mode"`
	ClearColor  [4]float32 `toml:"clear_color"`
	ShaderDir   string     `toml:"shader_dir"`
	// Reload the shader blobs when they change on disk.
	HotReload bool `toml:"hot_reload"`
}

type CameraConfig struct {
	// Vertical field of view in degrees.
	FOV float32 `toml:"fov"`
	// Movement speed in blocks per second.
	Speed float32 `toml:"speed"`
	// Radians per pixel of mouse motion.
	Sensitivity float32    `toml:"sensitivity"`
	Position    [3]float32 `toml:"position"`
	Yaw         float32    `toml:"yaw"`
	Pitch       float32    `toml:"pitch"`
}

type WorldConfig struct {
	// Chunks per side of the test object.
	Size int `toml:"size"`
	// "sphere", "full" or "random".
	Pattern string  `toml:"pattern"`
	Seed    uint64  `toml:"seed"`
	Density float64 `toml:"density"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:        "Voxel",
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 800,
		LogLevel:    core.LogLevelDebug,
		Renderer: RendererConfig{
			Validation:  false,
			PresentMode: "mailbox",
			ClearColor:  [4]float32{0, 0, 0, 1},
			ShaderDir:   "assets/shaders",
			HotReload:   true,
		},
		Camera: CameraConfig{
			FOV:         70,
			Speed:       16,
			Sensitivity: 0.002,
			Position:    [3]float32{-24, 16, 16},
			Yaw:         0,
			Pitch:       0,
		},
		World: WorldConfig{
			Size:    1,
			Pattern: "sphere",
			Seed:    1,
			Density: 0.1,
		},
	}
}

// LoadApplicationConfig decodes path over the defaults. A missing file yields
// the defaults.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogWarn("Config file %s not found, using defaults.", path)
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(config); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return errors.Newf("window size %dx%d must be non-zero", c.StartWidth, c.StartHeight)
	}
	switch c.LogLevel {
	case core.LogLevelDebug, core.LogLevelInfo, core.LogLevelWarn, core.LogLevelError:
	default:
		return errors.Newf("unknown log level %q", c.LogLevel)
	}
	if _, err := ParsePresentMode(c.Renderer.PresentMode); err != nil {
		return err
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return errors.Newf("field of view %v must be within (0, 180) degrees", c.Camera.FOV)
	}
	if c.World.Size < 1 {
		return errors.Newf("world size %d must be at least 1", c.World.Size)
	}
	if c.World.Density < 0 || c.World.Density > 1 {
		return errors.Newf("density %v must be within [0, 1]", c.World.Density)
	}
	return nil
}

// FOVRadians is the vertical field of view in radians.
func (c CameraConfig) FOVRadians() float32 {
	return c.FOV * math.Pi / 180
}

func ParsePresentMode(name string) (vk.PresentMode, error) {
	switch strings.ToLower(name) {
	case "mailbox", "":
		return vk.PresentModeMailbox, nil
	case "fifo":
		return vk.PresentModeFifo, nil
	case "fifo_relaxed":
		return vk.PresentModeFifoRelaxed, nil
	case "immediate":
		return vk.PresentModeImmediate, nil
	}
	return vk.PresentModeFifo, errors.Newf("unknown present mode %q", name)
}
