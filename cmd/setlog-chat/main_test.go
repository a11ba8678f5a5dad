package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/claude/setlog/internal/dialogue"
)

type scriptedHandler struct {
	inputs []dialogue.Input
}

func (s *scriptedHandler) Handle(_ context.Context, in dialogue.Input) (dialogue.Reply, error) {
	s.inputs = append(s.inputs, in)
	switch {
	case in.Command == dialogue.CommandBegin:
		return dialogue.Reply{Text: "Выбери группу мышц", Keyboard: dialogue.Keyboard{Kind: dialogue.KeyboardChoices, Choices: []string{"грудь"}}}, nil
	case in.Text == "boom":
		return dialogue.Reply{}, errors.New("store down")
	}
	return dialogue.Reply{}, nil
}

// TestRunPrintsRepliesAndKeyboards verifies each line is parsed, replies are
// printed with their buttons, silent replies print nothing, and errors do
// not end the loop.
func TestRunPrintsRepliesAndKeyboards(t *testing.T) {
	h := &scriptedHandler{}
	var out strings.Builder

	err := run(context.Background(), h, strings.NewReader("/train\nhello\nboom\n"), &out, "s1", "u1")
	if err != nil {
		t.Fatal(err)
	}

	if len(h.inputs) != 3 {
		t.Fatalf("handled %d inputs, want 3", len(h.inputs))
	}
	if h.inputs[0].SessionID != "s1" || h.inputs[0].UserID != "u1" || h.inputs[1].Text != "hello" {
		t.Errorf("inputs = %+v", h.inputs)
	}

	got := out.String()
	want := "Выбери группу мышц\n[грудь] [Отмена]\n\n! store down\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
