package dialogue

import (
	"strings"
	"unicode"
)

var commandNames = map[string]Command{
	"train":  CommandBegin,
	"begin":  CommandBegin,
	"stop":   CommandStop,
	"cancel": CommandStop,
	"done":   CommandDone,
	"bar":    CommandBar,
	"side":   CommandSide,
	"note":   CommandNote,
	"help":   CommandHelp,
}

// ParseInput turns raw chat text into an Input. Slash commands may carry a
// "@botname" suffix; everything that is not a slash command is free text.
func ParseInput(sessionID, userID, text string) Input {
	in := Input{SessionID: sessionID, UserID: userID}

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		in.Command = CommandText
		in.Text = text
		return in
	}

	name, args := trimmed[1:], ""
	if i := strings.IndexFunc(name, unicode.IsSpace); i >= 0 {
		name, args = name[:i], name[i:]
	}
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	cmd, ok := commandNames[strings.ToLower(name)]
	if !ok {
		in.Command = CommandUnknown
		in.Text = text
		return in
	}
	in.Command = cmd
	in.Args = strings.TrimSpace(args)
	return in
}

// isCancelToken reports whether free text is the cancel sentinel.
func isCancelToken(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "отмена", "cancel":
		return true
	}
	return false
}

type confirmAnswer int

const (
	answerOther confirmAnswer = iota
	answerYes
	answerNo
)

func parseConfirm(text string) confirmAnswer {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "да", "yes":
		return answerYes
	case "нет", "no":
		return answerNo
	}
	return answerOther
}
