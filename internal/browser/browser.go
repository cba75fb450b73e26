// Package browser wraps the automation driver behind narrow interfaces so the
// runner never touches the underlying protocol directly.
package browser

import "time"

// Condition is the readiness state an element wait resolves on.
type Condition int

const (
	// Present means the element is attached to the document.
	Present Condition = iota
	// Clickable means visible and enabled.
	Clickable
	// Visible means rendered with a non-empty box.
	Visible
)

func (c Condition) String() string {
	switch c {
	case Clickable:
		return "clickable"
	case Visible:
		return "visible"
	default:
		return "present"
	}
}

// Session is one live connection to a browser instance. A session is owned by
// exactly one run and must be closed on every exit path.
type Session interface {
	// Navigate loads a URL and waits for the document load event.
	Navigate(url string) error
	// WaitFor polls for an element matching selector until the condition
	// holds or the timeout expires.
	WaitFor(selector string, cond Condition, timeout time.Duration) (Element, error)
	// CurrentURL reports the top-level document location.
	CurrentURL() (string, error)
	// Eval runs a script body against the active document and returns the
	// result rendered as a string.
	Eval(script string) (string, error)
	// WindowCount reports how many windows/tabs are open.
	WindowCount() (int, error)
	// SwitchWindow makes the window at the zero-based index current.
	SwitchWindow(index int) error
	// SwitchFrame moves the element-lookup context into an iframe.
	SwitchFrame(el Element) error
	// SwitchToTop restores the element-lookup context to the top document.
	SwitchToTop() error
	// Screenshot writes a capture of the current window to path.
	Screenshot(path string) error
	// ScreenshotBytes returns a capture of the current window.
	ScreenshotBytes() ([]byte, error)
	Close() error
}

// Element is a handle to one located DOM element.
type Element interface {
	Click() error
	DoubleClick() error
	RightClick() error
	Hover() error
	// Clear selects the element's existing content so the next Input
	// replaces it.
	Clear() error
	Input(text string) error
	// SelectValue picks the option with the given value attribute.
	SelectValue(value string) error
	Text() (string, error)
	// Value reads the element's value property.
	Value() (string, error)
	Displayed() (bool, error)
	// ScrollIntoCenter smooth-scrolls the element to the viewport center.
	ScrollIntoCenter() error
}
