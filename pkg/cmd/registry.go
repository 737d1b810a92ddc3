package cmd

import (
	"fmt"
	"log/slog"

	"github.com/BriefyHQ/docflow/pkg/registry"
	"github.com/BriefyHQ/docflow/pkg/workflows/lead"
)

func registerNativeWorkflows(reg *registry.Registry) error {
	leadDef, err := lead.NewDefinition()
	if err != nil {
		return fmt.Errorf("building lead workflow: %w", err)
	}

	return reg.Register(leadDef)
}

// NewRegistry builds the registry of workflow definitions known to the
// process.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	if err := registerNativeWorkflows(reg); err != nil {
		panic(err)
	}

	return reg
}
