//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Daemon runs cassiad against cassiad.toml in the current directory.
func (Run) Daemon() error {
	fmt.Println("Run cassiad...")
	if _, err := executeCmd("go", withArgs("run", "."), withStream()); err != nil {
		return err
	}
	return nil
}
