//go:build tools

// Package server pins tool dependencies invoked through go generate.
package server

import (
	_ "go.uber.org/mock/mockgen"
)
