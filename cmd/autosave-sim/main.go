package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/docopt/docopt-go"

	"github.com/zenibako/autosave-form/autosave"
	"github.com/zenibako/autosave-form/messages"
)

const version = "0.1.0"

const usage = `Auto-saving form simulator.

Edits a record served by autosave-server from the terminal. Edits go through
the same watchers, debounce and submit coordination a browser runs.

Usage:
    autosave-sim [--url=<url>] [--form=<form>] [--id=<id>] [--feed=<addr>] [--debug]
    autosave-sim -h | --help
    autosave-sim --version

Options:
    -h --help         Show this screen.
    --version         Show version.
    --url=<url>       Server base url [default: http://localhost:8080].
    --form=<form>     Form name [default: demo].
    --id=<id>         Record id [default: 1].
    --feed=<addr>     Listen for the server's OSC change feed on this address.
    --debug           Log at debug level.`

const (
	actionSubmit = "__submit"
	actionQuit   = "__quit"
)

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(opts); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	if debug, _ := opts.Bool("--debug"); debug {
		log.SetLevel(log.DebugLevel)
	}

	baseURL, _ := opts.String("--url")
	formName, _ := opts.String("--form")
	id, _ := opts.String("--id")
	formURL := fmt.Sprintf("%s/forms/%s/%s", strings.TrimRight(baseURL, "/"), formName, id)

	if addr, _ := opts.String("--feed"); addr != "" {
		feed := autosave.NewFeedListener(addr)
		feed.OnMessage(func(msg autosave.FeedMessage) {
			log.Info("Change feed", "address", msg.Address, "args", msg.Arguments)
		})
		if err := feed.Start(); err != nil {
			return err
		}
		defer feed.Stop()
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cc, err := autosave.FetchClientConfig(ctx, client, formURL+"/config")
	cancel()
	if err != nil {
		return err
	}
	log.Infof("Editing %s (%d controls)", formURL, len(cc.Controls))

	page := autosave.NewPage(cc, autosave.NewHTTPTransport(client, formURL+"/submit"), autosave.SystemScheduler())
	page.SetEffects(termEffects{})
	page.OnAffordanceChange(func(from, to autosave.AffordanceState) {
		log.Info("Save button", "from", from, "to", to)
	})

	for {
		field, err := chooseField(cc)
		if err != nil {
			return err
		}

		switch field {
		case actionQuit:
			return waitIdle(page, cc)
		case actionSubmit:
			page.Submit()
			continue
		}

		if err := edit(page, controlOf(cc, field)); err != nil {
			return err
		}
	}
}

func chooseField(cc autosave.ClientConfig) (string, error) {
	var choice string
	options := make([]huh.Option[string], 0, len(cc.Controls)+2)
	for _, c := range cc.Controls {
		if c.ReadOnly || c.Disabled {
			continue
		}
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", labelOf(c), c.Kind), c.Field))
	}
	options = append(options,
		huh.NewOption("Press save", actionSubmit),
		huh.NewOption("Quit", actionQuit),
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which control do you want to edit?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("failed to get user input: %v", err)
	}
	return choice, nil
}

// edit asks for a new value and feeds it to the control's watcher the way
// the browser would deliver it
func edit(page *autosave.Page, c autosave.ClientControl) error {
	w, ok := page.Watcher(c.Field)
	if !ok {
		log.Warnf("No watcher for %s", c.Field)
		return nil
	}

	value := w.Value()
	var field huh.Field

	switch autosave.ControlKind(c.Kind) {
	case autosave.KindTextarea:
		field = huh.NewText().Title(labelOf(c)).Value(&value)
	case autosave.KindCheckbox:
		checked := value == "1"
		if err := huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(labelOf(c)).Value(&checked))).Run(); err != nil {
			return fmt.Errorf("failed to get user input: %v", err)
		}
		value = "0"
		if checked {
			value = "1"
		}
		w.Change(value)
		return nil
	case autosave.KindDropdown, autosave.KindLookup, autosave.KindRadio:
		options := make([]huh.Option[string], 0, len(c.Options))
		for _, o := range c.Options {
			options = append(options, huh.NewOption(o.Label, o.Value))
		}
		field = huh.NewSelect[string]().Title(labelOf(c)).Options(options...).Value(&value)
	default:
		field = huh.NewInput().Title(labelOf(c)).Value(&value)
	}

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return fmt.Errorf("failed to get user input: %v", err)
	}

	// a calendar value confirmed in the terminal counts as a picker selection
	if autosave.ControlKind(c.Kind).Trigger() == autosave.TriggerDebounced {
		w.Input(value)
	} else {
		w.Change(value)
	}
	return nil
}

// waitIdle lets pending debounce timers and requests finish before exiting
func waitIdle(page *autosave.Page, cc autosave.ClientConfig) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !page.InFlight() && !pendingEdits(page, cc) {
			log.Info("All changes saved", "state", page.Affordance())
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("gave up waiting for pending saves")
}

func pendingEdits(page *autosave.Page, cc autosave.ClientConfig) bool {
	for _, c := range cc.Controls {
		if w, ok := page.Watcher(c.Field); ok && w.Pending() {
			return true
		}
	}
	return false
}

func controlOf(cc autosave.ClientConfig, field string) autosave.ClientControl {
	for _, c := range cc.Controls {
		if c.Field == field {
			return c
		}
	}
	return autosave.ClientControl{Field: field}
}

func labelOf(c autosave.ClientControl) string {
	if c.Label != "" {
		return c.Label
	}
	return c.Field
}

// termEffects reports DOM effects on the terminal
type termEffects struct{}

func (termEffects) Animate(field, target string, parent bool, anim messages.Animation) {
	log.Info("Server updated control", "field", field)
}

func (termEffects) ShowError(field, message string) {
	log.Error("Invalid value", "field", field, "message", message)
}

func (termEffects) Log(message string) {
	log.Info(message)
}

func (termEffects) Script(js string) {
	log.Debug("Server script", "script", js)
}
