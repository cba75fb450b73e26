package runner

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sgrims/pagetest/internal/action"
	"github.com/sgrims/pagetest/internal/browser"
)

// defaultVariable is the store_text target when the action names none.
const defaultVariable = "stored_text"

// Interpreter executes single actions against one live session. It owns the
// run's variable store; frame and window switches it performs persist for the
// rest of the run.
type Interpreter struct {
	session       browser.Session
	vars          Vars
	timeout       time.Duration
	screenshotDir string
	log           *zap.Logger
}

func NewInterpreter(session browser.Session, timeout time.Duration, screenshotDir string, log *zap.Logger) *Interpreter {
	return &Interpreter{
		session:       session,
		vars:          Vars{},
		timeout:       timeout,
		screenshotDir: screenshotDir,
		log:           log,
	}
}

// Execute runs one action and always returns a well-formed result. Driver
// errors and panics are folded into a failed result with a best-effort
// evidence capture; nothing escapes past a single action.
func (in *Interpreter) Execute(act action.Action) (res ActionResult) {
	res = ActionResult{
		Action:    act.Type,
		Selector:  act.Selector,
		Status:    StatusFailed,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Message = fmt.Sprintf("%v", r)
			in.captureEvidence(&res, act.Type)
		}
	}()

	if err := in.dispatch(act, &res); err != nil {
		res.Status = StatusFailed
		res.Message = err.Error()
		in.captureEvidence(&res, act.Type)
	}
	return res
}

// dispatch covers the whole action vocabulary. A returned error means the
// driver failed and evidence should be captured; assertion mismatches set a
// failed result directly and return nil.
func (in *Interpreter) dispatch(act action.Action, res *ActionResult) error {
	switch act.Type {
	case action.Click:
		el, err := in.session.WaitFor(act.Selector, browser.Clickable, in.timeout)
		if err != nil {
			return err
		}
		if err := el.Click(); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = "Element clicked successfully"

	case action.DoubleClick:
		el, err := in.session.WaitFor(act.Selector, browser.Clickable, in.timeout)
		if err != nil {
			return err
		}
		if err := el.DoubleClick(); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = "Element double-clicked successfully"

	case action.RightClick:
		el, err := in.session.WaitFor(act.Selector, browser.Clickable, in.timeout)
		if err != nil {
			return err
		}
		if err := el.RightClick(); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = "Element right-clicked successfully"

	case action.Input:
		el, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout)
		if err != nil {
			return err
		}
		if err := el.Clear(); err != nil {
			return err
		}
		value := in.vars.Substitute(act.Value)
		if err := el.Input(value); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Input value: '%s'", value)

	case action.Select:
		el, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout)
		if err != nil {
			return err
		}
		value := in.vars.Substitute(act.Value)
		if err := el.SelectValue(value); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Selected value: '%s'", value)

	case action.VerifyText:
		el, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout)
		if err != nil {
			return err
		}
		text, err := readTextOrValue(el)
		if err != nil {
			return err
		}
		expected := in.vars.Substitute(act.Expected)
		if strings.Contains(text, expected) {
			res.Status = StatusPassed
			res.Message = fmt.Sprintf("Text verification passed: '%s' found", expected)
		} else {
			res.Message = fmt.Sprintf("Expected '%s', but found '%s'", expected, text)
		}

	case action.VerifyExists:
		if _, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = "Element exists"

	case action.VerifyVisible:
		el, err := in.session.WaitFor(act.Selector, browser.Visible, in.timeout)
		if err != nil {
			return err
		}
		displayed, err := el.Displayed()
		if err != nil {
			return err
		}
		if displayed {
			res.Status = StatusPassed
			res.Message = "Element is visible"
		} else {
			res.Message = "Element exists but is not visible"
		}

	case action.Wait:
		ms := act.Duration
		if ms == 0 {
			ms = 1000
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Waited %vs", float64(ms)/1000)

	case action.Hover:
		el, err := in.session.WaitFor(act.Selector, browser.Visible, in.timeout)
		if err != nil {
			return err
		}
		if err := el.Hover(); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = "Hovered over element"

	case action.ScrollTo:
		el, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout)
		if err != nil {
			return err
		}
		if err := el.ScrollIntoCenter(); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = "Scrolled to element"

	case action.ExecuteScript:
		script := in.vars.Substitute(act.Script)
		out, err := in.session.Eval(script)
		if err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Script executed: %s", out)

	case action.Screenshot:
		path := in.evidencePath(act.Type)
		if err := in.session.Screenshot(path); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Screenshot = path
		res.Message = fmt.Sprintf("Screenshot saved: %s", path)

	case action.StoreText:
		el, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout)
		if err != nil {
			return err
		}
		text, err := readTextOrValue(el)
		if err != nil {
			return err
		}
		name := act.Variable
		if name == "" {
			name = defaultVariable
		}
		in.vars[name] = text
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Stored text '%s' in variable '%s'", text, name)

	case action.VerifyURL:
		current, err := in.session.CurrentURL()
		if err != nil {
			return err
		}
		expected := in.vars.Substitute(act.Expected)
		if strings.Contains(current, expected) {
			res.Status = StatusPassed
			res.Message = fmt.Sprintf("URL verification passed: '%s' found", expected)
		} else {
			res.Message = fmt.Sprintf("Expected URL containing '%s', but found '%s'", expected, current)
		}

	case action.SwitchToFrame:
		if act.Selector == "" {
			if err := in.session.SwitchToTop(); err != nil {
				return err
			}
			res.Status = StatusPassed
			res.Message = "Switched to default content"
			return nil
		}
		el, err := in.session.WaitFor(act.Selector, browser.Present, in.timeout)
		if err != nil {
			return err
		}
		if err := in.session.SwitchFrame(el); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Switched to frame: %s", act.Selector)

	case action.SwitchToWindow:
		count, err := in.session.WindowCount()
		if err != nil {
			return err
		}
		if act.Index < 0 || act.Index >= count {
			res.Message = fmt.Sprintf("Invalid window index: %d", act.Index)
			return nil
		}
		if err := in.session.SwitchWindow(act.Index); err != nil {
			return err
		}
		res.Status = StatusPassed
		res.Message = fmt.Sprintf("Switched to window %d", act.Index)

	default:
		res.Message = fmt.Sprintf("Unknown action type: %s", act.Type)
	}

	return nil
}

func (in *Interpreter) evidencePath(actionType string) string {
	if actionType == "" {
		actionType = "unknown"
	}
	name := fmt.Sprintf("%d_%s.png", time.Now().UnixNano(), actionType)
	return filepath.Join(in.screenshotDir, name)
}

// captureEvidence saves a screenshot for a failed action. Capture problems
// are logged and leave the evidence reference empty.
func (in *Interpreter) captureEvidence(res *ActionResult, actionType string) {
	path := in.evidencePath(actionType)
	if err := in.session.Screenshot(path); err != nil {
		in.log.Error("failed to save screenshot", zap.Error(err))
		return
	}
	res.Screenshot = path
	in.log.Info("screenshot saved", zap.String("path", path))
}

// readTextOrValue reads an element's visible text, falling back to its value
// property when the text is empty.
func readTextOrValue(el browser.Element) (string, error) {
	text, err := el.Text()
	if err != nil {
		return "", err
	}
	if text == "" {
		value, err := el.Value()
		if err != nil {
			return "", err
		}
		text = value
	}
	return text, nil
}
