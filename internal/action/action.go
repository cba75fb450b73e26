package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidScript marks scripts that do not decode as a JSON action array.
var ErrInvalidScript = errors.New("invalid action script")

// The closed action vocabulary. Scripts may only use these types; anything
// else fails the single offending step at execution time.
const (
	Click          = "click"
	Input          = "input"
	Select         = "select"
	VerifyText     = "verify_text"
	VerifyExists   = "verify_exists"
	VerifyVisible  = "verify_visible"
	Wait           = "wait"
	Hover          = "hover"
	ScrollTo       = "scroll_to"
	ExecuteScript  = "execute_script"
	Screenshot     = "screenshot"
	StoreText      = "store_text"
	VerifyURL      = "verify_url"
	DoubleClick    = "double_click"
	RightClick     = "right_click"
	SwitchToFrame  = "switch_to_frame"
	SwitchToWindow = "switch_to_window"
)

var known = map[string]bool{
	Click:          true,
	Input:          true,
	Select:         true,
	VerifyText:     true,
	VerifyExists:   true,
	VerifyVisible:  true,
	Wait:           true,
	Hover:          true,
	ScrollTo:       true,
	ExecuteScript:  true,
	Screenshot:     true,
	StoreText:      true,
	VerifyURL:      true,
	DoubleClick:    true,
	RightClick:     true,
	SwitchToFrame:  true,
	SwitchToWindow: true,
}

// Known reports whether t is part of the action vocabulary.
func Known(t string) bool {
	return known[t]
}

// Action represents a single step in a test script
type Action struct {
	Type     string `json:"type"`               // one of the constants above
	Selector string `json:"selector,omitempty"` // CSS selector for the target element
	Value    string `json:"value,omitempty"`    // text to send (input/select)
	Expected string `json:"expected,omitempty"` // substring to assert (verify_text/verify_url)
	Duration int    `json:"duration,omitempty"` // wait duration in ms
	Script   string `json:"script,omitempty"`   // JS body for execute_script
	Variable string `json:"variable,omitempty"` // target name for store_text
	Index    int    `json:"index,omitempty"`    // window index for switch_to_window
}

// Parse decodes a script: a JSON array of actions, in execution order.
func Parse(data []byte) ([]Action, error) {
	var actions []Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return actions, nil
}

// Load reads and parses a script file.
func Load(path string) ([]Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action script: %w", err)
	}
	return Parse(data)
}
