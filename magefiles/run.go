//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the viewer with config.toml.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	return executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withEnv("CGO_ENABLED", "1"))
}

// Runs the unit tests.
func (Run) Tests() error {
	return executeCmd("go", withArgs("test", "./..."), withEnv("CGO_ENABLED", "1"))
}
