package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/markoub/power-it-sub001/internal/deck"
)

type imageJob struct {
	slideIndex int
	field      string
	prompt     string
	sizeHint   string
}

// generateImages runs the deck's requested image fields through a bounded
// worker pool. Each image gets a limited number of attempts inside the
// overall batch deadline; a field that still fails is skipped and the rest
// of the batch proceeds.
func (r *Runner) generateImages(ctx context.Context, presentationID int64, d *deck.SlideDeck) ([]deck.ImageAsset, error) {
	jobs := collectImageJobs(d)
	if len(jobs) == 0 {
		return []deck.ImageAsset{}, nil
	}

	batchCtx := ctx
	if r.opts.ImageBatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, r.opts.ImageBatchTimeout)
		defer cancel()
	}

	jobCh := make(chan imageJob)
	var (
		mu     sync.Mutex
		assets []deck.ImageAsset
		wg     sync.WaitGroup
	)

	workers := r.opts.ImageWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				asset := r.generateOne(batchCtx, presentationID, job)
				if asset == nil {
					continue
				}
				mu.Lock()
				assets = append(assets, *asset)
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-batchCtx.Done():
			r.logger.Warn("image batch deadline reached, skipping remaining jobs",
				"presentation_id", presentationID)
		}
		if batchCtx.Err() != nil {
			break
		}
	}
	close(jobCh)
	wg.Wait()

	// worker completion order is nondeterministic; the stored payload is not
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].SlideIndex != assets[j].SlideIndex {
			return assets[i].SlideIndex < assets[j].SlideIndex
		}
		return assets[i].Field < assets[j].Field
	})
	return assets, nil
}

// generateOne runs the retry loop for a single image. Returns nil when the
// image is skipped.
func (r *Runner) generateOne(ctx context.Context, presentationID int64, job imageJob) *deck.ImageAsset {
	var lastErr error
	for attempt := 0; attempt <= r.opts.ImageRetries; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		release, err := r.limiter.Acquire(ctx)
		if err != nil {
			lastErr = err
			break
		}
		data, err := r.images.GenerateImage(ctx, job.prompt, job.sizeHint)
		release()

		if err != nil {
			lastErr = err
			r.logger.Warn("image generation attempt failed",
				"presentation_id", presentationID,
				"slide_index", job.slideIndex,
				"field", job.field,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}
		if len(data) == 0 {
			// generator declined; nothing to retry
			return nil
		}

		asset, err := r.imageStore.SaveImage(presentationID, job.slideIndex, job.field, data)
		if err != nil {
			lastErr = err
			break
		}
		asset.Prompt = job.prompt
		return asset
	}

	r.logger.Warn("image skipped",
		"presentation_id", presentationID,
		"slide_index", job.slideIndex,
		"field", job.field,
		"error", lastErr,
	)
	return nil
}

// collectImageJobs walks the deck for image fields whose value requests
// generation.
func collectImageJobs(d *deck.SlideDeck) []imageJob {
	var jobs []imageJob
	for i := range d.Slides {
		slide := &d.Slides[i]
		for _, component := range deck.ImageComponents(slide.Type) {
			if !slide.WantsImage(component) {
				continue
			}
			jobs = append(jobs, imageJob{
				slideIndex: i,
				field:      component,
				prompt:     imagePrompt(slide),
				sizeHint:   sizeHint(slide.Type, component),
			})
		}
	}
	return jobs
}

// imagePrompt derives the generation prompt from the slide's own text.
func imagePrompt(slide *deck.Slide) string {
	var parts []string
	if title, ok := slide.StringField("title"); ok && title != "" {
		parts = append(parts, deck.PlainText(deck.ParseInline(title)))
	}
	for _, field := range []string{"content", "explanation"} {
		if text, ok := slide.StringField(field); ok && text != "" {
			parts = append(parts, deck.PlainText(deck.ParseInline(text)))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("an illustration for a %s slide", slide.Type)
	}
	return strings.Join(parts, "\n")
}

func sizeHint(slideType, component string) string {
	switch {
	case strings.HasPrefix(component, "logo"):
		return "small logo"
	case slideType == deck.TypeImageFull:
		return "full-bleed background"
	default:
		return "inline illustration"
	}
}
