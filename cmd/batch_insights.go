package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/enrich"
	"github.com/sells-group/signals-cli/internal/model"
	anthropicpkg "github.com/sells-group/signals-cli/pkg/anthropic"
)

// generateBatchInsights builds one Anthropic batch covering every enriched
// domain, with the shared system prompt held at a 1h cache breakpoint. A
// primer request warms the cache before the batch is submitted.
func generateBatchInsights(ctx context.Context, env *env, domains []string) error {
	system := enrich.InsightsSystemBlocks()

	items := make([]anthropicpkg.BatchRequestItem, 0, len(domains))
	for _, domain := range domains {
		acct, err := env.Store.GetAccount(ctx, domain)
		if err != nil || acct == nil {
			zap.L().Warn("skipping insights for missing account",
				zap.String("domain", domain), zap.Error(err))
			continue
		}
		items = append(items, anthropicpkg.BatchRequestItem{
			CustomID: domain,
			Params: anthropicpkg.MessageRequest{
				Model:     cfg.Anthropic.Model,
				MaxTokens: int64(cfg.Anthropic.MaxTokens),
				System:    system,
				Messages: []anthropicpkg.Message{
					{Role: "user", Content: enrich.BuildInsightsPrompt(acct)},
				},
			},
		})
	}
	if len(items) == 0 {
		return nil
	}

	// Warm the shared prompt cache with the first item's request.
	primer := items[0].Params
	if resp, err := anthropicpkg.PrimerRequest(ctx, env.AI, primer); err != nil {
		zap.L().Warn("primer request failed, submitting batch cold", zap.Error(err))
	} else {
		resp.Usage.LogCost(resp.Model, "insights_primer")
	}

	batch, err := env.AI.CreateBatch(ctx, anthropicpkg.BatchRequest{Requests: items})
	if err != nil {
		return eris.Wrap(err, "create insights batch")
	}
	zap.L().Info("insights batch submitted",
		zap.String("batch_id", batch.ID),
		zap.Int("items", len(items)),
	)

	done, err := anthropicpkg.PollBatch(ctx, env.AI, batch.ID)
	if err != nil {
		return eris.Wrap(err, "poll insights batch")
	}

	iter, err := env.AI.GetBatchResults(ctx, done.ID)
	if err != nil {
		return eris.Wrap(err, "get insights batch results")
	}
	results, err := anthropicpkg.CollectBatchResults(iter)
	if err != nil {
		return err
	}

	now := time.Now()
	written := 0
	for domain, resp := range results {
		text := insightsText(resp)
		if text == "" {
			continue
		}
		fields := model.AccountFields{Insights: &text}
		if err := env.Store.UpsertAccount(ctx, domain, fields, now); err != nil {
			zap.L().Warn("failed to store insights",
				zap.String("domain", domain), zap.Error(err))
			continue
		}
		resp.Usage.LogCost(resp.Model, "insights_batch")
		written++
	}

	zap.L().Info("insights batch complete",
		zap.Int("requested", len(items)),
		zap.Int("written", written),
	)
	return nil
}

func insightsText(resp *anthropicpkg.MessageResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}
