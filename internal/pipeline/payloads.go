package pipeline

import (
	"context"
	"encoding/json"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/store"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

// completedResult loads the stored payload of a completed step. Steps are
// only runnable when their upstream is completed, so a missing or
// incomplete record here is a dependency error, not a race to tolerate.
func (r *Runner) completedResult(ctx context.Context, presentationID int64, step store.Step) ([]byte, error) {
	rec, err := r.store.GetStep(ctx, presentationID, step)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, errors.Newf(errors.ErrCodeDependency, "step %s has no record", step)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "load step record")
	}
	if rec.Status != store.StatusCompleted {
		return nil, errors.Newf(errors.ErrCodeDependency, "step %s is not completed", step)
	}
	return rec.Result, nil
}

// loadResearch reads whichever research root is completed, preferring the
// generated one. A payload that no longer parses is downgraded to a minimal
// reconstruction so one bad row cannot wedge the whole pipeline.
func (r *Runner) loadResearch(ctx context.Context, presentationID int64) (*deck.Research, error) {
	raw, err := r.completedResult(ctx, presentationID, store.StepResearch)
	if err != nil {
		raw, err = r.completedResult(ctx, presentationID, store.StepManualResearch)
		if err != nil {
			return nil, err
		}
	}

	var research deck.Research
	if jsonErr := json.Unmarshal(raw, &research); jsonErr != nil || research.Content == "" {
		r.logger.Warn("malformed research result, reconstructing",
			"presentation_id", presentationID,
			"code", errors.ErrCodeMalformed,
			"error", jsonErr,
		)
		return &deck.Research{Content: string(raw)}, nil
	}
	return &research, nil
}

// loadSlideDeck parses the slides payload, accepting both the typed and the
// legacy flat slide shapes.
func (r *Runner) loadSlideDeck(ctx context.Context, presentationID int64) (*deck.SlideDeck, error) {
	raw, err := r.completedResult(ctx, presentationID, store.StepSlides)
	if err != nil {
		return nil, err
	}

	var stored struct {
		Title  string           `json:"title"`
		Author string           `json:"author"`
		Slides []map[string]any `json:"slides"`
	}
	if jsonErr := json.Unmarshal(raw, &stored); jsonErr != nil {
		r.logger.Warn("malformed slides result, reconstructing empty deck",
			"presentation_id", presentationID,
			"code", errors.ErrCodeMalformed,
			"error", jsonErr,
		)
		return &deck.SlideDeck{}, nil
	}
	return &deck.SlideDeck{
		Title:  stored.Title,
		Author: stored.Author,
		Slides: deck.NormalizeSlides(stored.Slides),
	}, nil
}

func (r *Runner) loadAssets(ctx context.Context, presentationID int64) ([]deck.ImageAsset, error) {
	raw, err := r.completedResult(ctx, presentationID, store.StepImages)
	if err != nil {
		return nil, err
	}

	var assets []deck.ImageAsset
	if jsonErr := json.Unmarshal(raw, &assets); jsonErr != nil {
		r.logger.Warn("malformed images result, continuing without assets",
			"presentation_id", presentationID,
			"code", errors.ErrCodeMalformed,
			"error", jsonErr,
		)
		return nil, nil
	}
	return assets, nil
}

func (r *Runner) loadCompiled(ctx context.Context, presentationID int64) (*deck.CompiledDeck, error) {
	raw, err := r.completedResult(ctx, presentationID, store.StepCompiled)
	if err != nil {
		return nil, err
	}

	var compiled deck.CompiledDeck
	if jsonErr := json.Unmarshal(raw, &compiled); jsonErr != nil {
		r.logger.Warn("malformed compiled result, reconstructing empty deck",
			"presentation_id", presentationID,
			"code", errors.ErrCodeMalformed,
			"error", jsonErr,
		)
		return &deck.CompiledDeck{}, nil
	}
	return &compiled, nil
}
