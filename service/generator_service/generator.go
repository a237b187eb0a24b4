package generator_service

import (
	"context"
	"fmt"

	model "sandbox-app-service/models"
)

// GenerationContext prior state a follow-up generation is conditioned on.
// Empty for the initial creation.
type GenerationContext struct {
	PriorArtifact string
	History       []*model.Message
}

// IsInitial reports whether there is no prior artifact or history
func (g GenerationContext) IsInitial() bool {
	return g.PriorArtifact == "" && len(g.History) == 0
}

// ArtifactGenerator turns an instruction into artifact source and explains changes
type ArtifactGenerator interface {
	// GenerateArtifact produces the full artifact text for instruction
	GenerateArtifact(ctx context.Context, instruction string, gc GenerationContext) (string, error)

	// Explain summarizes the change from before to after in one short friendly line.
	// before is empty for the initial artifact.
	Explain(ctx context.Context, instruction, before, after string) (string, error)
}

// Result artifact and its explanation
type Result struct {
	Artifact    string
	Explanation string
}

// GenerateAndExplain generates an artifact and then explains it
func GenerateAndExplain(ctx context.Context, g ArtifactGenerator, instruction string, gc GenerationContext) (*Result, error) {
	artifact, err := g.GenerateArtifact(ctx, instruction, gc)
	if err != nil {
		return nil, fmt.Errorf("generate artifact: %w", err)
	}

	explanation, err := g.Explain(ctx, instruction, gc.PriorArtifact, artifact)
	if err != nil {
		return nil, fmt.Errorf("explain artifact: %w", err)
	}

	return &Result{Artifact: artifact, Explanation: explanation}, nil
}
