//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func tane(args ...string) error {
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Serve builds tane and runs the garden with the background gardener.
func Serve() error {
	mg.Deps(Init, Build)
	return tane("serve")
}

// Plant builds tane and plants one idea.
func Plant(idea string) error {
	mg.Deps(Build)
	return tane("plant", idea)
}

// Repair builds tane and repairs report integrity.
func Repair() error {
	mg.Deps(Build)
	return tane("repair")
}
