package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/playwright-community/playwright-go"

	"formpilot/config"
)

// BrowserSessionManager owns the single Playwright browser process and hands
// out one isolated browser context per job. It is the only component that
// navigates or closes contexts; detection and autofill borrow the page for
// the duration of their operation.
type BrowserSessionManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     config.BrowserConfig
}

// stealthInit removes the most common automation tells before any page
// script runs.
const stealthInit = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en'],
	});
	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});
`

func NewBrowserSessionManager(cfg config.BrowserConfig) (*BrowserSessionManager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--disable-extensions",
			"--disable-plugins-discovery",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &BrowserSessionManager{
		pw:      pw,
		browser: browser,
		cfg:     cfg,
	}, nil
}

// Close shuts down the browser process. Open page sessions become unusable.
func (m *BrowserSessionManager) Close() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
	}
	if m.pw != nil {
		if stopErr := m.pw.Stop(); err == nil {
			err = stopErr
		}
	}
	return err
}

// PageSession is one live browser context plus its page, scoped to a single
// detect+fill job. Contexts are never shared across jobs.
type PageSession struct {
	browserCtx playwright.BrowserContext
	page       playwright.Page
}

// OpenPage creates a fresh context, applies the stealth init script, and
// navigates to url. Navigation failure is reported as ErrPageUnavailable; a
// context deadline already expired maps to ErrJobTimeout.
func (m *BrowserSessionManager) OpenPage(ctx context.Context, url string) (*PageSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapCtxErr(err)
	}

	browserCtx, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.cfg.ViewportWidth,
			Height: m.cfg.ViewportHeight,
		},
		UserAgent: playwright.String(m.cfg.UserAgent),
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(stealthInit)}); err != nil {
		log.Printf("Warning: could not add init script: %v", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(m.cfg.NavTimeout.Milliseconds())),
	}); err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrPageUnavailable, url, err)
	}

	// Let client-side rendered fields settle before extraction.
	page.WaitForTimeout(float64(m.cfg.SettleDelay.Milliseconds()))

	return &PageSession{browserCtx: browserCtx, page: page}, nil
}

// Close tears the context down. Safe to call on every exit path.
func (s *PageSession) Close() {
	if s.browserCtx != nil {
		if err := s.browserCtx.Close(); err != nil {
			log.Printf("Error closing browser context: %v", err)
		}
	}
}

// EvaluateJSON runs a page script expected to return a JSON string.
func (s *PageSession) EvaluateJSON(script string) (string, error) {
	result, err := s.page.Evaluate(script)
	if err != nil {
		return "", fmt.Errorf("page evaluation failed: %w", err)
	}
	str, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("page evaluation returned %T, expected string", result)
	}
	return str, nil
}

// Screenshot captures a full-page PNG.
func (s *PageSession) Screenshot() ([]byte, error) {
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// CropElement captures just the element identified by selector, used as the
// visual-fallback input.
func (s *PageSession) CropElement(selector string) ([]byte, error) {
	data, err := s.page.Locator(selector).First().Screenshot()
	if err != nil {
		return nil, fmt.Errorf("failed to capture element %s: %w", selector, err)
	}
	return data, nil
}

// FillText clears and fills a text-like input.
func (s *PageSession) FillText(selector, value string, timeout time.Duration) error {
	loc := s.page.Locator(selector).First()
	_ = loc.Clear()
	return loc.Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// SelectByLabel picks an option on a native <select> by its visible label.
func (s *PageSession) SelectByLabel(selector, label string, timeout time.Duration) error {
	_, err := s.page.Locator(selector).First().SelectOption(playwright.SelectOptionValues{
		Labels: &[]string{label},
	}, playwright.LocatorSelectOptionOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

// SetFile attaches a local file to a file input.
func (s *PageSession) SetFile(selector, path string, timeout time.Duration) error {
	return s.page.Locator(selector).First().SetInputFiles(path, playwright.LocatorSetInputFilesOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

// SetChecked checks or unchecks a checkbox.
func (s *PageSession) SetChecked(selector string, checked bool, timeout time.Duration) error {
	loc := s.page.Locator(selector).First()
	opts := playwright.Float(float64(timeout.Milliseconds()))
	if checked {
		return loc.Check(playwright.LocatorCheckOptions{Timeout: opts})
	}
	return loc.Uncheck(playwright.LocatorUncheckOptions{Timeout: opts})
}

func mapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrJobTimeout
	}
	return err
}
