package helpers

import (
	"repotree/internal/config"
	"repotree/internal/logging"
)

// NavigateToMainMenuMsg is a common message for all submodels to navigate
// back to the main menu.
type NavigateToMainMenuMsg struct{}

// UIContext carries the environment submodels need at construction time.
type UIContext struct {
	Width    int
	Height   int
	RepoRoot string
	Config   *config.Config
	Logger   *logging.AppLogger
}

// NewUIContext creates a new UI context with the provided parameters.
func NewUIContext(width, height int, repoRoot string, cfg *config.Config, logger *logging.AppLogger) UIContext {
	return UIContext{
		Width:    width,
		Height:   height,
		RepoRoot: repoRoot,
		Config:   cfg,
		Logger:   logger,
	}
}

// HasValidDimensions checks if the context has valid window dimensions.
func (ctx UIContext) HasValidDimensions() bool {
	return ctx.Width > 0 && ctx.Height > 0
}
