package runner

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/sgrims/pagetest/internal/browser"
)

var pngPixel = func() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	return buf.Bytes()
}()

// fakeElement implements browser.Element with canned responses.
type fakeElement struct {
	text      string
	value     string
	displayed bool

	clickErr error
	hoverErr error

	clicks       int
	doubleClicks int
	rightClicks  int
	hovers       int
	clears       int
	scrolls      int
	inputs       []string
	selections   []string
}

func (e *fakeElement) Click() error       { e.clicks++; return e.clickErr }
func (e *fakeElement) DoubleClick() error { e.doubleClicks++; return e.clickErr }
func (e *fakeElement) RightClick() error  { e.rightClicks++; return e.clickErr }
func (e *fakeElement) Hover() error       { e.hovers++; return e.hoverErr }
func (e *fakeElement) Clear() error       { e.clears++; return nil }

func (e *fakeElement) Input(text string) error {
	e.inputs = append(e.inputs, text)
	return nil
}

func (e *fakeElement) SelectValue(value string) error {
	e.selections = append(e.selections, value)
	return nil
}

func (e *fakeElement) Text() (string, error)    { return e.text, nil }
func (e *fakeElement) Value() (string, error)   { return e.value, nil }
func (e *fakeElement) Displayed() (bool, error) { return e.displayed, nil }
func (e *fakeElement) ScrollIntoCenter() error  { e.scrolls++; return nil }

type waitCall struct {
	selector string
	cond     browser.Condition
}

// fakeSession implements browser.Session over a static selector map.
type fakeSession struct {
	mu sync.Mutex

	elements map[string]*fakeElement
	// selectors listed here satisfy present waits but fail visible and
	// clickable ones
	invisible map[string]bool
	// blockOnMissing makes missing-selector waits consume the full timeout
	blockOnMissing bool

	url     string
	evalOut string
	evalErr error
	windows int

	navErr  error
	shotErr error

	navigations []string
	waits       []waitCall
	screenshots []string
	evals       []string
	frames      []browser.Element
	topSwitches int
	windowed    []int
	closed      int
	closeHook   func()
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		elements:  map[string]*fakeElement{},
		invisible: map[string]bool{},
		windows:   1,
		url:       "file:///tmp/test.html",
	}
}

func (s *fakeSession) Navigate(url string) error {
	s.navigations = append(s.navigations, url)
	return s.navErr
}

func (s *fakeSession) WaitFor(selector string, cond browser.Condition, timeout time.Duration) (browser.Element, error) {
	s.mu.Lock()
	s.waits = append(s.waits, waitCall{selector, cond})
	el, ok := s.elements[selector]
	invisible := s.invisible[selector]
	s.mu.Unlock()

	if !ok {
		if s.blockOnMissing {
			time.Sleep(timeout)
		}
		return nil, fmt.Errorf("element not found: %s", selector)
	}
	if invisible && cond != browser.Present {
		return nil, fmt.Errorf("element not visible: %s", selector)
	}
	return el, nil
}

func (s *fakeSession) CurrentURL() (string, error) { return s.url, nil }

func (s *fakeSession) Eval(script string) (string, error) {
	s.evals = append(s.evals, script)
	return s.evalOut, s.evalErr
}

func (s *fakeSession) WindowCount() (int, error) { return s.windows, nil }

func (s *fakeSession) SwitchWindow(index int) error {
	s.windowed = append(s.windowed, index)
	return nil
}

func (s *fakeSession) SwitchFrame(el browser.Element) error {
	s.frames = append(s.frames, el)
	return nil
}

func (s *fakeSession) SwitchToTop() error { s.topSwitches++; return nil }

func (s *fakeSession) Screenshot(path string) error {
	if s.shotErr != nil {
		return s.shotErr
	}
	s.mu.Lock()
	s.screenshots = append(s.screenshots, path)
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) ScreenshotBytes() ([]byte, error) {
	if s.shotErr != nil {
		return nil, s.shotErr
	}
	return pngPixel, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	if s.closeHook != nil {
		s.closeHook()
	}
	return nil
}
