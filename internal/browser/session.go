// Package browser owns the playwright browser and page used by a run.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// Options configure the browser session.
type Options struct {
	Engine         string
	Headless       bool
	SlowMo         time.Duration
	Channel        string
	ExecutablePath string
	Install        bool
	ViewportWidth  int
	ViewportHeight int

	// Timeout overrides the framework's default wait budget when > 0.
	Timeout time.Duration
}

type releaser struct {
	name string
	fn   func() error
}

// Session is one browser with one page. Close releases everything Launch
// acquired and is safe to call more than once.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	log     logrus.FieldLogger

	releasers []releaser
	closeOnce sync.Once
	closeErr  error
}

// Launch starts playwright, launches the configured browser and opens a
// page. Whatever was acquired before a failure is released before returning.
func Launch(ctx context.Context, opts Options, log logrus.FieldLogger) (_ *Session, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{log: log}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	engine := opts.Engine
	if engine == "" {
		engine = "chromium"
	}
	if opts.Install {
		if err := Install(engine); err != nil {
			return nil, err
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	s.pw = pw
	s.hold("playwright", pw.Stop)

	bt, err := browserType(pw, engine)
	if err != nil {
		return nil, err
	}
	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}
	if opts.Channel != "" {
		launch.Channel = playwright.String(opts.Channel)
	}
	if opts.ExecutablePath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	b, err := bt.Launch(launch)
	if err != nil {
		return nil, fmt.Errorf("could not launch %s: %w", engine, err)
	}
	s.browser = b
	s.hold("browser", func() error { return b.Close() })

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}
	bc, err := b.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	s.context = bc
	s.hold("context", func() error { return bc.Close() })

	page, err := bc.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	s.page = page
	s.hold("page", func() error { return page.Close() })

	if opts.Timeout > 0 {
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))
	}

	log.WithFields(logrus.Fields{
		"engine":   engine,
		"headless": opts.Headless,
	}).Info("browser launched")
	return s, nil
}

// Install downloads the playwright driver and the given browser engine.
func Install(engine string) error {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{engine}}); err != nil {
		return fmt.Errorf("could not install playwright browsers: %w", err)
	}
	return nil
}

func browserType(pw *playwright.Playwright, engine string) (playwright.BrowserType, error) {
	switch engine {
	case "chromium":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("unknown browser engine %q", engine)
}

func (s *Session) hold(name string, fn func() error) {
	s.releasers = append(s.releasers, releaser{name: name, fn: fn})
}

// Close releases page, context, browser and driver in reverse order of
// acquisition.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for i := len(s.releasers) - 1; i >= 0; i-- {
			r := s.releasers[i]
			if err := r.fn(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
			}
		}
		s.releasers = nil
		s.closeErr = errors.Join(errs...)
		if s.log != nil {
			if s.closeErr != nil {
				s.log.WithError(s.closeErr).Warn("browser released with errors")
			} else {
				s.log.Debug("browser released")
			}
		}
	})
	return s.closeErr
}
