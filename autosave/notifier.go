package autosave

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hypebeast/go-osc/osc"

	"github.com/zenibako/autosave-form/messages"
)

// Notifier is told about fields the submit hook changed
type Notifier interface {
	FieldsChanged(formID string, changes []FieldChange) error
}

// oscSender is the part of *osc.Client the notifier uses
type oscSender interface {
	Send(packet osc.Packet) error
}

// OSCNotifier publishes changed fields as OSC messages, one per field plus a
// summary:
//
//	/form/{form}/field/{field}/changed  <after> <before>
//	/form/{form}/submitted              <count>
type OSCNotifier struct {
	client oscSender
	host   string
	port   int
}

// NewOSCNotifier creates a notifier sending to host:port
func NewOSCNotifier(host string, port int) *OSCNotifier {
	return &OSCNotifier{
		client: osc.NewClient(host, port),
		host:   host,
		port:   port,
	}
}

// FieldsChanged implements Notifier
func (n *OSCNotifier) FieldsChanged(formID string, changes []FieldChange) error {
	b := messages.NewScriptBuilder(formID)

	for _, change := range changes {
		address := b.BuildAddress(messages.AddrFieldChanged, map[string]string{"field": change.Control.Field})
		msg := osc.NewMessage(address)
		msg.Append(change.After.Text)
		msg.Append(change.Before.Text)
		if err := n.client.Send(msg); err != nil {
			return fmt.Errorf("failed to send %s: %w", address, err)
		}
		log.Debugf("Sent change notification: %s %s -> %s", address, change.Before, change.After)
	}

	summary := osc.NewMessage(b.BuildAddress(messages.AddrSubmitted, nil))
	summary.Append(int32(len(changes)))
	if err := n.client.Send(summary); err != nil {
		return fmt.Errorf("failed to send submit summary to %s:%d: %w", n.host, n.port, err)
	}
	return nil
}
