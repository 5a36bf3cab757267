package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/model"
	"github.com/lorekeep/lorekeep/internal/service"
)

// defaultCategory receives questions whose source supplied no category.
const defaultCategory = "General"

// processQuestion routes one fetched question into the configured sinks.
// It returns whether the question was counted as added.
//
// The flat file and the structured store are deliberately asymmetric: the
// flat file has no deduplication of its own, so a question that duplicates a
// stored one still counts as added when the file also captured it. Store
// failures degrade to a warning when the file already has the question.
func (d *Daemon) processQuestion(ctx context.Context, q model.Question, source string, kind model.SourceKind) (bool, error) {
	if d.cfg.DryRun {
		d.stats.recordAdded(source)
		slog.Info("dry run, question not persisted", "source", source, "question", q.Text)
		return true, nil
	}

	savedToFile := false
	if d.file != nil {
		d.file.Append(q)
		savedToFile = true
		slog.Debug("question collected to file buffer", "source", source)
	}

	if d.storage == nil {
		if savedToFile {
			d.stats.recordAdded(source)
			return true, nil
		}
		slog.Error("no sink configured, question dropped", "source", source)
		return false, common.ErrNoSink
	}

	existing, err := d.storage.GetExistingQuestions(ctx, d.cfg.SampleLimit)
	if err != nil {
		return d.degradeToFile(source, savedToFile, fmt.Errorf("failed to sample existing questions: %w", err))
	}

	if matchedID, found := d.matcher.FindSimilar(ctx, q, existing); found {
		d.stats.recordDuplicate(source)
		slog.Info("duplicate question skipped",
			"source", source,
			"existing_id", matchedID,
			"question", q.Text)

		// The file sink already captured it and knows nothing of duplicates.
		if savedToFile {
			d.stats.recordAdded(source)
			return true, nil
		}
		return false, nil
	}

	category := q.Category
	if category == "" {
		category = defaultCategory
	}

	categoryID, err := d.storage.GetOrCreateCategory(ctx, category)
	if err != nil {
		return d.degradeToFile(source, savedToFile, fmt.Errorf("failed to resolve category: %w", err))
	}

	sourceID, err := d.storage.GetOrCreateSource(ctx, source, kind)
	if err != nil {
		return d.degradeToFile(source, savedToFile, fmt.Errorf("failed to resolve source: %w", err))
	}

	id, err := d.storage.InsertQuestion(ctx, q, categoryID, sourceID)
	if err != nil {
		return d.degradeToFile(source, savedToFile, fmt.Errorf("failed to insert question: %w", err))
	}

	if err := d.storage.IncrementSourceCount(ctx, sourceID); err != nil {
		slog.Warn("failed to increment source counter", "source", source, "error", err)
	}

	d.matcher.Register(q, id)
	d.stats.recordAdded(source)
	slog.Info("question added", "source", source, "id", id, "category", category)

	return true, nil
}

// degradeToFile resolves a structured-store failure: when the flat file
// already captured the question it is not lost, so the failure drops to a
// warning and the question counts as added. Otherwise the failure
// propagates as this question's processing error.
func (d *Daemon) degradeToFile(source string, savedToFile bool, err error) (bool, error) {
	if savedToFile {
		slog.Warn("store failed, question kept in file output", "source", source, "error", err)
		d.stats.recordAdded(source)
		return true, nil
	}
	return false, err
}

// Ingest routes a single externally supplied question through the normal
// dedup-and-persist path, attributed to the named source. It returns whether
// the question was counted as added.
func (d *Daemon) Ingest(ctx context.Context, q model.Question, source string, kind model.SourceKind) (bool, error) {
	d.stats.recordFetched(source, 1)
	added, err := d.processQuestion(ctx, q, source, kind)
	if err != nil {
		d.stats.recordError(source)
	}
	return added, err
}

// HarvestCategories invokes the generation-capable source directly for the
// named categories, outside the cycle schedule, and routes every returned
// question through normal record processing. It may run concurrently with
// the cycle loop; the shared counters are safe under concurrent increments.
func (d *Daemon) HarvestCategories(ctx context.Context, categories []string, count int) (service.HarvestResult, error) {
	if d.generator == nil {
		return service.HarvestResult{}, fmt.Errorf("%w: no generator configured", common.ErrMissingConfig)
	}

	name := d.generator.Name()
	slog.Info("targeted harvest requested", "categories", categories, "count", count)

	questions, err := d.generator.GenerateForCategories(ctx, categories, count)
	if err != nil {
		d.stats.recordError(name)
		return service.HarvestResult{}, fmt.Errorf("harvest generation failed: %w", err)
	}

	result := service.HarvestResult{Fetched: len(questions)}
	d.stats.recordFetched(name, len(questions))

	for _, q := range questions {
		added, err := d.processQuestion(ctx, q, name, d.generator.Kind())
		if err != nil {
			result.Errors++
			d.stats.recordError(name)
			slog.Error("failed to process harvested question",
				"question", q.Text,
				"error", err)
			continue
		}
		if added {
			result.Added++
		}
	}

	slog.Info("targeted harvest complete",
		"fetched", result.Fetched,
		"added", result.Added,
		"errors", result.Errors)

	return result, nil
}
