// Package dialogue drives the training-log conversation: it owns one draft
// per chat session, applies commands and step input to it, and commits
// finished sets to the record store.
package dialogue

import (
	"context"

	"github.com/claude/setlog/internal/training"
)

// Command classifies one inbound message.
type Command int

const (
	CommandText Command = iota
	CommandBegin
	CommandStop
	CommandDone
	CommandBar
	CommandSide
	CommandNote
	CommandHelp
	CommandUnknown
)

// Input is one message delivered by a transport.
type Input struct {
	SessionID string
	UserID    string
	Command   Command
	Args      string // argument text of a command
	Text      string // free text, for CommandText
}

// KeyboardKind is the abstract keyboard a reply asks the transport to show.
type KeyboardKind int

const (
	KeyboardNone KeyboardKind = iota
	KeyboardChoices
	KeyboardCancel
	KeyboardConfirm
	KeyboardRemove
)

const (
	CancelLabel = "Отмена"
	YesLabel    = "Да"
	NoLabel     = "Нет"
)

// Keyboard describes buttons without any transport markup.
type Keyboard struct {
	Kind    KeyboardKind
	Choices []string
}

// Labels returns the button labels in display order, cancel last.
func (k Keyboard) Labels() []string {
	switch k.Kind {
	case KeyboardChoices:
		labels := make([]string, 0, len(k.Choices)+1)
		labels = append(labels, k.Choices...)
		return append(labels, CancelLabel)
	case KeyboardCancel:
		return []string{CancelLabel}
	case KeyboardConfirm:
		return []string{YesLabel, NoLabel, CancelLabel}
	}
	return nil
}

func (k KeyboardKind) String() string {
	switch k {
	case KeyboardChoices:
		return "choices"
	case KeyboardCancel:
		return "cancel"
	case KeyboardConfirm:
		return "confirm"
	case KeyboardRemove:
		return "remove"
	}
	return "none"
}

// Reply is what the controller asks the transport to send back. A reply
// with empty Text means nothing is sent.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Silent reports whether the transport should stay quiet.
func (r Reply) Silent() bool { return r.Text == "" }

// CategoryLookup lists the valid, normalised muscle groups.
type CategoryLookup interface {
	ListCategories(ctx context.Context) ([]string, error)
}

// RecordStore appends committed sets. Earlier entries must be preserved.
type RecordStore interface {
	AppendEntry(ctx context.Context, e training.Entry) error
}

// SessionStore maps session ids to open drafts. Load returns (nil, nil)
// when the session has no open dialogue. Implementations hand out copies,
// so a draft changed by the caller is only visible after Save.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*training.Draft, error)
	Save(ctx context.Context, sessionID, userID string, d *training.Draft) error
	Delete(ctx context.Context, sessionID string) error
}
