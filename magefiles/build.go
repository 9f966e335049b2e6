//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Daemon builds the cassiad binary.
func (Build) Daemon() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "cassiad", "."), withStream()); err != nil {
		return err
	}
	return nil
}
