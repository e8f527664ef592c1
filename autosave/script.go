package autosave

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed runtime.js
var runtimeJS string

// RuntimeScript returns the browser runtime that applies payloads and runs
// the trigger policies
func RuntimeScript() string {
	return runtimeJS
}

// BindScript returns the runtime followed by the statement attaching it to
// this form's controls
func (f *Form) BindScript() (string, error) {
	cfg, err := json.Marshal(f.ClientConfig())
	if err != nil {
		return "", fmt.Errorf("failed to encode client config: %w", err)
	}
	return fmt.Sprintf("%s\nAutoSave.attach(%s);\n", runtimeJS, cfg), nil
}
