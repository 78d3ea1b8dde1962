//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

type cmdOptions struct {
	args []string
	env  map[string]string
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) {
		o.args = args
	}
}

func withEnv(key, value string) cmdOption {
	return func(o *cmdOptions) {
		if o.env == nil {
			o.env = map[string]string{}
		}
		o.env[key] = value
	}
}

// executeCmd runs command with its output attached to the terminal.
func executeCmd(command string, options ...cmdOption) error {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}
	if mg.Verbose() {
		fmt.Printf("Executing: %s %s\n", command, strings.Join(opts.args, " "))
	}
	if err := sh.RunWithV(opts.env, command, opts.args...); err != nil {
		return fmt.Errorf("error executing %s: %w", command, err)
	}
	return nil
}

// stale reports whether out is missing or older than src.
func stale(out, src string) (bool, error) {
	return target.Path(out, src)
}
