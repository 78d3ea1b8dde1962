package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/voxel/engine/core"
)

type rebuildKind uint8

const (
	// The pipeline must be rebuilt against the current surface.
	rebuildRenderer rebuildKind = 1 << iota
	// The swapchain no longer matches the window. Implies rebuildRenderer.
	rebuildSurface
	// New shader blobs are waiting. A failed build keeps the current pipeline.
	reloadShaders
)

type idleWaiter interface {
	WaitIdle() error
}

type destroyer interface {
	Destroy()
}

// rebuildChain waits for the device to go idle, then rebuilds the surface
// and the renderer built on top of it, in that order. Shader reloads run
// last, against the rebuilt surface.
type rebuildChain struct {
	device   idleWaiter
	surface  func(width, height uint32) error
	renderer func() error
	reload   func() error
}

func (r *rebuildChain) run(kind rebuildKind, width, height uint32) error {
	if kind == 0 {
		return nil
	}
	if err := r.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for the device before rebuild")
	}
	if kind&rebuildSurface != 0 {
		if err := r.surface(width, height); err != nil {
			return errors.Wrap(err, "surface rebuild failed")
		}
		kind |= rebuildRenderer
	}
	if kind&rebuildRenderer != 0 {
		if err := r.renderer(); err != nil {
			return errors.Wrap(err, "renderer rebuild failed")
		}
	}
	if kind&reloadShaders != 0 && r.reload != nil {
		if err := r.reload(); err != nil {
			core.LogWarn("Shader reload failed, keeping the current pipeline: %s", err)
		}
	}
	return nil
}

// swapRenderer builds a replacement before destroying current. On error
// current is returned untouched.
func swapRenderer[R destroyer](current R, build func() (R, error)) (R, error) {
	next, err := build()
	if err != nil {
		return current, err
	}
	current.Destroy()
	return next, nil
}
