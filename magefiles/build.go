//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

// Builds the kerf command line tool into bin/.
func (Build) CLI() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/kerf", "./cmd/kerf"), withStream())
	return err
}

// Builds the kerf command line tool with the C cutting backend enabled.
// Requires the mcut library and headers to be installed.
func (Build) Native() error {
	_, err := executeCmd("go",
		withArgs("build", "-tags", "mcut", "-o", "bin/kerf-native", "./cmd/kerf"),
		withEnv("CGO_ENABLED", "1"),
		withStream())
	return err
}

// Builds the desktop editor with the wails CLI.
func (Build) Editor() error {
	_, err := executeCmd("wails", withArgs("build"), withStream())
	return err
}

// Removes build output.
func (Build) Clean() error {
	if err := sh.Rm("bin"); err != nil {
		return err
	}
	return sh.Rm("build/bin")
}
