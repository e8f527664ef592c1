package main

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/zenibako/autosave-form/autosave"
	"github.com/zenibako/autosave-form/messages"
	"github.com/zenibako/autosave-form/store"
)

const maxTextLength = 2000

// saveRecord is the demo business logic: tidy the line, reject oversized
// text, save
func saveRecord(rec *store.Record) autosave.SubmitFunc {
	return func(sc *autosave.SubmitContext) ([]messages.Instruction, error) {
		if line, ok := rec.Get("line").(string); ok {
			if trimmed := strings.Join(strings.Fields(line), " "); trimmed != line {
				if err := rec.Set("line", trimmed); err != nil {
					return nil, err
				}
			}
		}

		if text, ok := rec.Get("textarea").(string); ok && len(text) > maxTextLength {
			return nil, autosave.NewValidationError("textarea", "Text must be at most 2000 characters")
		}

		if err := rec.Save(sc.Context); err != nil {
			return nil, err
		}
		log.Debug("Saved record", "table", rec.Table(), "id", rec.ID(), "request", sc.RequestID)
		return nil, nil
	}
}
