//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package's tests.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Runs every example script through the CLI into out/examples.
func (Test) Examples() error {
	mg.Deps(Build.CLI)
	scripts, err := filepath.Glob("examples/*.kerf")
	if err != nil {
		return err
	}
	for _, s := range scripts {
		fmt.Println("example:", s)
		if _, err := executeCmd("bin/kerf", withArgs("run", s, "--out", "out/examples")); err != nil {
			return err
		}
	}
	return nil
}
