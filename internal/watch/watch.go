// Package watch re-grades a source image whenever it or its recipe changes
// on disk, so a recipe can be tuned in an editor with a live preview.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"

	"github.com/ironsheep/colorgrade-mcp/internal/grade"
	"github.com/ironsheep/colorgrade-mcp/internal/imaging"
	"github.com/ironsheep/colorgrade-mcp/internal/publish"
	"github.com/ironsheep/colorgrade-mcp/internal/recipe"
)

var log = commonlog.GetLogger("colorgrade.watch")

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before rendering. Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Result describes one finished or abandoned render.
type Result struct {
	Output   string
	Warnings []recipe.Warning
	Duration time.Duration
	Err      error
}

// Watcher renders SourcePath graded by RecipePath into OutputPath, once at
// start and again after every change to either input.
type Watcher struct {
	RecipePath string
	SourcePath string
	OutputPath string

	// MaxDimension bounds the longer side of the output; 0 keeps the
	// source size.
	MaxDimension int
	// Quality is the JPEG quality used when OutputPath ends in .jpg.
	Quality  int
	Debounce time.Duration

	// OnRender, if set, is called after every render attempt, including
	// cancelled ones.
	OnRender func(Result)

	cache *imaging.ImageCache
}

// Render performs one render. Output is written to a temporary file and
// renamed into place; a render whose context is done before the write
// leaves OutputPath untouched and returns the context's error.
func (w *Watcher) Render(ctx context.Context) Result {
	start := time.Now()
	res := Result{Output: w.OutputPath}
	res.Warnings, res.Err = w.render(ctx)
	res.Duration = time.Since(start)
	return res
}

func (w *Watcher) render(ctx context.Context) ([]recipe.Warning, error) {
	if w.cache == nil {
		w.cache = imaging.NewImageCache()
	}

	format, err := grade.ParseFormat(filepath.Ext(w.OutputPath))
	if err != nil {
		return nil, err
	}

	r, warnings, err := recipe.Load(w.RecipePath)
	if err != nil {
		return warnings, err
	}
	for _, warn := range warnings {
		log.Warningf("%s: %s", w.RecipePath, warn)
	}

	src, err := w.cache.Load(w.SourcePath)
	if err != nil {
		return warnings, err
	}

	graded, err := grade.ApplyImage(ctx, imaging.Fit(src, w.MaxDimension), grade.Compile(r))
	if err != nil {
		return warnings, err
	}

	data, err := imaging.EncodeBytes(graded, format, w.Quality)
	if err != nil {
		return warnings, err
	}

	if err := ctx.Err(); err != nil {
		return warnings, err
	}
	if err := publish.WriteFileAtomic(w.OutputPath, data, 0o644); err != nil {
		return warnings, fmt.Errorf("write %s: %w", w.OutputPath, err)
	}
	return warnings, nil
}

// Run renders once, then watches the inputs until ctx is done. A change
// that arrives while a render is running cancels that render before the
// next one starts, so renders never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cache == nil {
		w.cache = imaging.NewImageCache()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	recipePath, err := filepath.Abs(w.RecipePath)
	if err != nil {
		return err
	}
	sourcePath, err := filepath.Abs(w.SourcePath)
	if err != nil {
		return err
	}

	// Watch parent directories; saving by rename replaces the file itself.
	dirs := map[string]struct{}{filepath.Dir(recipePath): {}, filepath.Dir(sourcePath): {}}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		cancelRender context.CancelFunc = func() {}
		done                            = make(chan struct{})
	)
	close(done)

	startRender := func() {
		cancelRender()
		<-done

		var renderCtx context.Context
		renderCtx, cancelRender = context.WithCancel(ctx)
		done = make(chan struct{})
		go func(ctx context.Context, done chan struct{}) {
			defer close(done)
			res := w.Render(ctx)
			w.report(res)
		}(renderCtx, done)
	}
	defer func() {
		cancelRender()
		<-done
	}()

	log.Infof("watching %s and %s", w.RecipePath, w.SourcePath)
	startRender()

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if name != recipePath && name != sourcePath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debugf("change: %s", event)
			if name == sourcePath {
				w.cache.Evict(w.SourcePath)
			}
			timer.Reset(debounce)

		case <-timer.C:
			startRender()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Errorf("watch error: %s", err)
		}
	}
}

func (w *Watcher) report(res Result) {
	switch {
	case res.Err == nil:
		log.Infof("rendered %s in %s", res.Output, res.Duration.Round(time.Millisecond))
	case errors.Is(res.Err, context.Canceled):
		log.Debugf("render of %s superseded", res.Output)
	default:
		log.Errorf("render failed: %s", res.Err)
	}
	if w.OnRender != nil {
		w.OnRender(res)
	}
}
