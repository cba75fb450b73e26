package browser

import (
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Options configures a new browser session
type Options struct {
	Headless bool
	Width    int
	Height   int
	Bin      string // explicit browser binary; empty means auto-detect
}

// rodSession drives one browser over the DevTools protocol.
type rodSession struct {
	browser *rod.Browser
	page    *rod.Page // current top-level window
	active  *rod.Page // element-lookup context: the window or an iframe inside it
}

// NewSession launches a browser for the given target and opens a blank page.
func NewSession(target string, opts Options) (Session, error) {
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}

	bin := opts.Bin
	if bin == "" {
		var err error
		bin, err = findBinary(target)
		if err != nil {
			return nil, err
		}
	}

	u, err := launcher.New().Bin(bin).Headless(opts.Headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", target, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", target, err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	return &rodSession{browser: b, page: page, active: page}, nil
}

func (s *rodSession) Navigate(url string) error {
	if err := s.page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for page load: %w", err)
	}
	s.active = s.page
	return nil
}

func (s *rodSession) WaitFor(selector string, cond Condition, timeout time.Duration) (Element, error) {
	el, err := s.active.Timeout(timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	switch cond {
	case Visible:
		if err := el.WaitVisible(); err != nil {
			return nil, fmt.Errorf("element not visible: %s", selector)
		}
	case Clickable:
		if err := el.WaitVisible(); err != nil {
			return nil, fmt.Errorf("element not visible: %s", selector)
		}
		if err := el.WaitEnabled(); err != nil {
			return nil, fmt.Errorf("element not interactable: %s", selector)
		}
	}
	// Drop the wait deadline so later interactions don't inherit it.
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *rodSession) CurrentURL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", fmt.Errorf("read page info: %w", err)
	}
	return info.URL, nil
}

func (s *rodSession) Eval(script string) (string, error) {
	// Scripts are written as statement bodies, so a bare "return x" works.
	obj, err := s.active.Eval(fmt.Sprintf("() => { %s }", script))
	if err != nil {
		return "", fmt.Errorf("script error: %w", err)
	}
	if obj.Value.Nil() {
		return "null", nil
	}
	return obj.Value.String(), nil
}

func (s *rodSession) WindowCount() (int, error) {
	pages, err := s.browser.Pages()
	if err != nil {
		return 0, fmt.Errorf("list windows: %w", err)
	}
	return len(pages), nil
}

func (s *rodSession) SwitchWindow(index int) error {
	pages, err := s.browser.Pages()
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("window index %d out of range", index)
	}
	page, err := pages[index].Activate()
	if err != nil {
		return fmt.Errorf("activate window %d: %w", index, err)
	}
	s.page = page
	s.active = page
	return nil
}

func (s *rodSession) SwitchFrame(el Element) error {
	re, ok := el.(*rodElement)
	if !ok {
		return fmt.Errorf("element is not a frame handle")
	}
	frame, err := re.el.Frame()
	if err != nil {
		return fmt.Errorf("enter frame: %w", err)
	}
	s.active = frame
	return nil
}

func (s *rodSession) SwitchToTop() error {
	s.active = s.page
	return nil
}

func (s *rodSession) Screenshot(path string) error {
	data, err := s.ScreenshotBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

func (s *rodSession) ScreenshotBytes() ([]byte, error) {
	data, err := s.page.Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}

func (s *rodSession) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) DoubleClick() error {
	return e.el.Click(proto.InputMouseButtonLeft, 2)
}

func (e *rodElement) RightClick() error {
	return e.el.Click(proto.InputMouseButtonRight, 1)
}

func (e *rodElement) Hover() error {
	return e.el.Hover()
}

func (e *rodElement) Clear() error {
	return e.el.SelectAllText()
}

func (e *rodElement) Input(text string) error {
	return e.el.Input(text)
}

func (e *rodElement) SelectValue(value string) error {
	return e.el.Select([]string{fmt.Sprintf(`[value=%q]`, value)}, true, rod.SelectorTypeCSSSector)
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Value() (string, error) {
	v, err := e.el.Property("value")
	if err != nil {
		return "", err
	}
	if v.Nil() {
		return "", nil
	}
	return v.Str(), nil
}

func (e *rodElement) Displayed() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) ScrollIntoCenter() error {
	_, err := e.el.Eval(`() => this.scrollIntoView({behavior: "smooth", block: "center", inline: "center"})`)
	return err
}
