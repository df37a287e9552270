//go:build tools

// Package tools pins the code generators used by go generate (mockgen) in go.mod.
package youcube

import (
	_ "go.uber.org/mock/mockgen"
)
