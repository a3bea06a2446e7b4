package usecase

import (
	"context"

	"steelloop/internal/domain"
	"steelloop/internal/orchestrator"
	"steelloop/internal/stages"
)

// generateHooks turns the forensic brief into up to five pending sparks.
func (l *Loop) generateHooks(ctx context.Context, run *orchestrator.Run, event orchestrator.Event) error {
	var p HookGenerationPayload
	if err := event.Decode(&p); err != nil {
		return err
	}
	if p.PipelineItemID == "" {
		return orchestrator.Preconditionf("run-hook-generation payload is missing the item id")
	}

	hooks, err := orchestrator.Step(ctx, run, "generate-sparks", func(ctx context.Context) ([]string, error) {
		return l.hooks(ctx, p)
	})
	if err != nil {
		return err
	}
	saved, err := orchestrator.Step(ctx, run, "save-sparks", func(ctx context.Context) (int, error) {
		sparks, err := l.sparks.SaveSparks(ctx, p.PipelineItemID, hooks)
		if err != nil {
			return 0, err
		}
		return len(sparks), nil
	})
	if err != nil {
		return err
	}

	if saved == 0 {
		run.Logger().Warn("no sparks saved; item waits for regenerate-sparks", "pipeline_item_id", p.PipelineItemID)
		return nil
	}
	run.Logger().Info("sparks saved", "pipeline_item_id", p.PipelineItemID, "count", saved)
	return nil
}

func (l *Loop) hooks(ctx context.Context, p HookGenerationPayload) ([]string, error) {
	item, err := l.items.GetItem(ctx, p.PipelineItemID)
	if err != nil {
		return nil, preconditionIfMissing(err)
	}
	if item.ForensicBrief == nil {
		return nil, orchestrator.Preconditionf("pipeline item %s has no forensic brief", item.ID)
	}
	if item.Status != domain.ItemSparksGenerated {
		return nil, orchestrator.Preconditionf("pipeline item %s is %s, hooks need %s", item.ID, item.Status, domain.ItemSparksGenerated)
	}
	project, err := l.projects.GetProject(ctx, item.ProjectID)
	if err != nil {
		return nil, preconditionIfMissing(err)
	}
	vault, err := l.loadVault(ctx, item.OwnerID)
	if err != nil {
		return nil, err
	}
	return l.stages.Hooks(ctx, stages.HookInput{
		Vault:       stages.VaultContext(vault),
		Brief:       *item.ForensicBrief,
		ProjectName: project.Name,
	})
}
