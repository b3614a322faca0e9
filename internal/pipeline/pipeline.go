// Package pipeline runs the generation steps of a presentation against the
// persisted step records. The step table is the single source of truth: a
// step only runs when its upstream is completed and nothing else holds its
// run lock, and every outcome is written back before the run returns.
package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/markoub/power-it-sub001/internal/deck"
	"github.com/markoub/power-it-sub001/internal/infra/limiter"
	"github.com/markoub/power-it-sub001/internal/infra/logger"
	"github.com/markoub/power-it-sub001/internal/store"
	"github.com/markoub/power-it-sub001/pkg/errors"
)

// ContentGenerator produces research text and slide decks.
type ContentGenerator interface {
	GenerateResearch(ctx context.Context, topic string) (*deck.Research, error)
	GenerateSlides(ctx context.Context, research *deck.Research, targetCount int, author string) (*deck.SlideDeck, error)
}

// ImageGenerator produces one illustration per call. A nil result or an
// error means the field is skipped, never that the batch fails.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, sizeHint string) ([]byte, error)
}

// ImageStore persists generated image bytes and returns the asset record.
type ImageStore interface {
	SaveImage(presentationID int64, slideIndex int, field string, data []byte) (*deck.ImageAsset, error)
}

// Renderer materializes the compiled deck into the output document.
type Renderer interface {
	Render(ctx context.Context, pres *store.Presentation, compiled *deck.CompiledDeck, assets []deck.ImageAsset) (*deck.RenderResult, error)
}

type Options struct {
	ImageWorkers      int
	ImageRetries      int
	ImageBatchTimeout time.Duration
	TargetSlideCount  int
	StepTimeout       time.Duration
	ResearchTimeout   time.Duration
}

type lockKey struct {
	presentationID int64
	step           store.Step
}

type Runner struct {
	store      *store.Store
	content    ContentGenerator
	images     ImageGenerator
	imageStore ImageStore
	renderer   Renderer
	limiter    *limiter.Limiter
	opts       Options
	logger     *logger.Logger

	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

func New(
	st *store.Store,
	content ContentGenerator,
	images ImageGenerator,
	imageStore ImageStore,
	renderer Renderer,
	lim *limiter.Limiter,
	opts Options,
	log *logger.Logger,
) *Runner {
	if opts.ImageWorkers <= 0 {
		opts.ImageWorkers = 3
	}
	if opts.ImageRetries < 0 {
		opts.ImageRetries = 0
	}
	return &Runner{
		store:      st,
		content:    content,
		images:     images,
		imageStore: imageStore,
		renderer:   renderer,
		limiter:    lim,
		opts:       opts,
		logger:     log,
		locks:      make(map[lockKey]*sync.Mutex),
	}
}

func (r *Runner) runLock(presentationID int64, step store.Step) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := lockKey{presentationID: presentationID, step: step}
	if m, ok := r.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	r.locks[key] = m
	return m
}

// Run executes one step synchronously: admission checks, the step body, and
// the persisted outcome all happen before it returns.
func (r *Runner) Run(ctx context.Context, presentationID int64, step store.Step) error {
	pres, lock, err := r.begin(ctx, presentationID, step)
	if err != nil {
		return err
	}
	return r.finish(pres, step, lock)
}

// Start performs the admission checks synchronously, so callers still see
// STEP_BUSY and DEPENDENCY_NOT_READY rejections, then runs the step body in
// the background. The background run carries its own context; the caller's
// request lifetime does not bound it.
func (r *Runner) Start(ctx context.Context, presentationID int64, step store.Step) error {
	pres, lock, err := r.begin(ctx, presentationID, step)
	if err != nil {
		return err
	}
	go func() {
		_ = r.finish(pres, step, lock)
	}()
	return nil
}

// begin admits one step run: validation, the per-(presentation, step) run
// lock, the dependency check, and the transition to processing. On success
// the caller owns the returned lock.
func (r *Runner) begin(ctx context.Context, presentationID int64, step store.Step) (*store.Presentation, *sync.Mutex, error) {
	if !store.ValidStep(step) {
		return nil, nil, errors.Newf(errors.ErrCodeInvalidReq, "unknown step %q", step)
	}
	if step == store.StepManualResearch {
		return nil, nil, errors.New(errors.ErrCodeInvalidReq, "manual_research is saved, not run")
	}

	lock := r.runLock(presentationID, step)
	if !lock.TryLock() {
		return nil, nil, errors.Newf(errors.ErrCodeStepBusy, "step %s is already running", step)
	}

	pres, err := r.store.GetPresentation(ctx, presentationID)
	if err != nil {
		lock.Unlock()
		if err == store.ErrNotFound {
			return nil, nil, errors.Newf(errors.ErrCodeNotFound, "presentation %d not found", presentationID)
		}
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorage, "load presentation")
	}

	ok, missing, err := r.store.UpstreamSatisfied(ctx, presentationID, step)
	if err != nil {
		lock.Unlock()
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorage, "check step dependencies")
	}
	if !ok {
		lock.Unlock()
		return nil, nil, errors.Newf(errors.ErrCodeDependency,
			"step %s is waiting for: %s", step, joinSteps(missing))
	}

	if err := r.store.MarkProcessing(ctx, presentationID, step); err != nil {
		lock.Unlock()
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorage, "mark step processing")
	}
	r.logger.Info("step started", "presentation_id", presentationID, "step", step)
	return pres, lock, nil
}

// finish runs the step body and records the outcome, then releases the run
// lock. It deliberately uses a fresh context so a finished HTTP request
// cannot cancel a step already admitted.
func (r *Runner) finish(pres *store.Presentation, step store.Step, lock *sync.Mutex) error {
	defer lock.Unlock()

	runCtx, cancel := r.stepContext(context.Background(), step)
	defer cancel()

	result, err := r.execute(runCtx, pres, step)
	if err != nil {
		status := store.StatusFailed
		if isCollaboratorFailure(err) {
			status = store.StatusError
		}
		if markErr := r.store.MarkFailed(context.Background(), pres.ID, step, status, err.Error()); markErr != nil {
			r.logger.Error("failed to record step failure",
				"presentation_id", pres.ID, "step", step, "error", markErr)
		}
		r.logger.Error("step failed",
			"presentation_id", pres.ID, "step", step, "status", status, "error", err)
		return err
	}

	if err := r.store.CompleteStep(context.Background(), pres.ID, step, result); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "store step result")
	}
	r.logger.Info("step completed", "presentation_id", pres.ID, "step", step)
	return nil
}

func (r *Runner) stepContext(ctx context.Context, step store.Step) (context.Context, context.CancelFunc) {
	timeout := r.opts.StepTimeout
	if step == store.StepResearch && r.opts.ResearchTimeout > 0 {
		timeout = r.opts.ResearchTimeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *Runner) execute(ctx context.Context, pres *store.Presentation, step store.Step) ([]byte, error) {
	switch step {
	case store.StepResearch:
		research, err := r.content.GenerateResearch(ctx, pres.Topic)
		if err != nil {
			return nil, err
		}
		return json.Marshal(research)

	case store.StepSlides:
		research, err := r.loadResearch(ctx, pres.ID)
		if err != nil {
			return nil, err
		}
		d, err := r.content.GenerateSlides(ctx, research, r.opts.TargetSlideCount, pres.Author)
		if err != nil {
			return nil, err
		}
		return json.Marshal(d)

	case store.StepImages:
		d, err := r.loadSlideDeck(ctx, pres.ID)
		if err != nil {
			return nil, err
		}
		assets, err := r.generateImages(ctx, pres.ID, d)
		if err != nil {
			return nil, err
		}
		return json.Marshal(assets)

	case store.StepCompiled:
		d, err := r.loadSlideDeck(ctx, pres.ID)
		if err != nil {
			return nil, err
		}
		assets, err := r.loadAssets(ctx, pres.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(deck.Compile(d, assets, pres.ID))

	case store.StepPptx:
		compiled, err := r.loadCompiled(ctx, pres.ID)
		if err != nil {
			return nil, err
		}
		assets, err := r.loadAssets(ctx, pres.ID)
		if err != nil {
			return nil, err
		}
		result, err := r.renderer.Render(ctx, pres, compiled, assets)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}
	return nil, errors.Newf(errors.ErrCodeInvalidReq, "step %q has no runner", step)
}

// isCollaboratorFailure separates external generation failures (status
// "error") from internal ones (status "failed").
func isCollaboratorFailure(err error) bool {
	return errors.Is(err, errors.ErrCodeContentAPI) ||
		errors.Is(err, errors.ErrCodeImageGenAPI) ||
		errors.Is(err, errors.ErrCodeGeneration)
}

func joinSteps(steps []store.Step) string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
