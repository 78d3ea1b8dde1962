//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const (
	shaderSrcDir = "shaders"
	shaderOutDir = "assets/shaders"
)

type Build mg.Namespace

// Compiles the GLSL sources in shaders/ into SPIR-V blobs under assets/shaders/.
// Blobs newer than their source are left alone.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the voxel binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	return executeCmd("go", withArgs("build", "-o", "bin/voxel", "."), withEnv("CGO_ENABLED", "1"))
}

func buildShaders() error {
	if err := os.MkdirAll(shaderOutDir, 0o755); err != nil {
		return err
	}
	sources, err := shaderSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		out := filepath.Join(shaderOutDir, filepath.Base(src)+".spv")
		rebuild, err := stale(out, src)
		if err != nil {
			return err
		}
		if !rebuild {
			continue
		}
		if err := executeCmd("glslc", withArgs(src, "-o", out)); err != nil {
			return err
		}
	}
	return nil
}

func shaderSources() ([]string, error) {
	var sources []string
	for _, ext := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderSrcDir, ext))
		if err != nil {
			return nil, err
		}
		sources = append(sources, matches...)
	}
	return sources, nil
}
