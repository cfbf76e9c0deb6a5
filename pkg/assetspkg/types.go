package assetspkg

import (
	"github.com/bianoble/assetspkg/internal/config"
	"github.com/bianoble/assetspkg/internal/engine"
)

// Re-export internal types for the public API.
// These are type aliases, so they are fully interchangeable with the
// internal types.
type (
	Options      = config.Options
	CSSOptions   = config.CSSOptions
	JSOptions    = config.JSOptions
	ConfigError  = config.ConfigError
	AssetType    = engine.AssetType
	Result       = engine.Result
	BundleResult = engine.BundleResult
	GroupStatus  = engine.GroupStatus
	GroupError   = engine.GroupError
)

// Asset types.
const (
	Stylesheets = engine.Stylesheets
	Scripts     = engine.Scripts
)

// Group states reported by Status.
const (
	StateBuilt   = engine.StateBuilt
	StateMissing = engine.StateMissing
	StatePending = engine.StatePending
	StateError   = engine.StateError
)
