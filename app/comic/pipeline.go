package comic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/comic-feed/app/metrics"
)

var ErrNoImages = errors.New("no panel could be illustrated")

type Scripter interface {
	Summarize(ctx context.Context, title, text string) (Script, error)
}

type Drawer interface {
	Illustrate(ctx context.Context, prompt string) (string, error)
}

// Comic is a finished article body. Images and Prompts are parallel slices.
type Comic struct {
	Header  string
	Summary string
	Images  []string
	Prompts []string
}

type Pipeline struct {
	scripter    Scripter
	drawer      Drawer
	limiter     *rate.Limiter
	concurrency int
}

// NewPipeline builds a pipeline that starts at most one upstream generation
// call per every and illustrates up to concurrency panels at once. A zero
// every disables rate limiting.
func NewPipeline(scripter Scripter, drawer Drawer, every time.Duration, concurrency int) *Pipeline {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}

	return &Pipeline{
		scripter:    scripter,
		drawer:      drawer,
		limiter:     rate.NewLimiter(limit, 1),
		concurrency: max(concurrency, 1),
	}
}

// Generate writes a script for the story and illustrates each panel. Panels
// that fail are dropped with their prompt; the comic fails only when no
// panel succeeds.
func (p *Pipeline) Generate(ctx context.Context, title, text string) (*Comic, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	script, err := p.scripter.Summarize(ctx, title, text)
	if err != nil {
		metrics.RecordStage("script", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to write script: %w", err)
	}
	metrics.RecordStage("script", "ok", time.Since(start).Seconds())

	images := make([]string, len(script.Panels))
	errs := make([]error, len(script.Panels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, prompt := range script.Panels {
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				errs[i] = err
				return nil
			}

			start := time.Now()
			url, err := p.drawer.Illustrate(gctx, prompt)
			if err != nil {
				metrics.RecordStage("panel", "error", time.Since(start).Seconds())
				errs[i] = err
				return nil
			}
			metrics.RecordStage("panel", "ok", time.Since(start).Seconds())
			images[i] = url
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	comic := &Comic{Header: script.Header, Summary: script.Summary}
	for i, prompt := range script.Panels {
		if errs[i] != nil || images[i] == "" {
			slog.Warn("Panel dropped", "title", title, "panel", i, "error", errs[i])
			continue
		}
		comic.Images = append(comic.Images, images[i])
		comic.Prompts = append(comic.Prompts, prompt)
	}

	if len(comic.Images) == 0 {
		if cause := errors.Join(errs...); cause != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoImages, cause)
		}
		return nil, ErrNoImages
	}

	return comic, nil
}
