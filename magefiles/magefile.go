//go:build mage

// Package main contains Mage build targets for lithic-tools-mcp.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "lithics"
	cmdPkg  = "./cmd/lithics"
)

// dataDirs is the layout the batch command expects under a data directory.
var dataDirs = []string{
	"data/images",
	"data/processed",
}

// Init creates the data directory layout and a default config file.
func Init() error {
	for _, dir := range dataDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat("lithics.yaml"); err == nil {
		fmt.Println("lithics.yaml exists, leaving it alone.")
		return nil
	}
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "config", "init", "lithics.yaml")
}

// Build compiles the CLI binary into bin/ with version information.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", ldflags(), "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

func ldflags() string {
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "unknown"
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	flags := []string{
		"-X main.version=" + version,
		"-X main.buildTime=" + time.Now().UTC().Format(time.RFC3339),
		"-X main.gitCommit=" + commit,
	}
	return strings.Join(flags, " ")
}
