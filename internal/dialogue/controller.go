package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/claude/setlog/internal/training"
)

// Prompts and acknowledgements sent by the controller.
const (
	msgAskMuscleGroup     = "Введи название группы мышц (текстом):"
	msgBadMuscleGroup     = "Некорректно. Введи название группы мышц (текстом):"
	msgUnknownMuscleGroup = "Такой группы нет в базе. Выбери из списка или введи корректное название:"
	msgAskWorkoutName     = "Ок. Теперь введи название тренировки:"
	msgBadWorkoutName     = "Некорректно. Введи название тренировки:"
	msgAskWeight          = "Теперь введи вес (число, например 45):"
	msgBadWeight          = "Некорректно. Введи вес (число, больше 0):"
	msgAskReps            = "Теперь введи количество повторов (целое число):"
	msgBadReps            = "Некорректно. Введи количество повторов (целое число, больше 0):"
	msgAskConfirm         = "Сохранить подход? (да/нет)"
	msgBadConfirm         = "Ответь «да» или «нет»."
	msgSetSaved           = "Подход сохранён ✅"
	msgSetDiscarded       = "Подход не сохранён. Введи вес заново (число, например 45):"
	msgNextSet            = "Следующий подход. Введи вес (число, например 45):"
	msgCancelled          = "Операция отменена."
	msgClosedIncomplete   = "Запись закрыта без сохранения: заполнены не все поля."
	msgBarFormat          = "Формат: /bar +10 или /bar -5,5"
	msgSideFormat         = "Формат: /side +5 или /side -2,5"
	msgNoteFormat         = "Формат: /note текст"
	msgCommands           = "Команды:\n" +
		"/train — начать запись подхода\n" +
		"/bar +10 — модификатор штанги\n" +
		"/side +5 — модификатор на одну сторону\n" +
		"/note текст — пояснение\n" +
		"/done — сохранить и завершить\n" +
		"/stop — отменить запись\n" +
		"/help — подсказка (вкл/выкл)"
)

// Controller runs the training-log dialogue. It is the only component that
// changes drafts, calls the record store, and renders outgoing text.
type Controller struct {
	sessions   SessionStore
	categories CategoryLookup
	records    RecordStore
	log        *slog.Logger
	locks      *sessionLocks
	now        func() time.Time
}

// New creates a Controller over the given collaborators.
func New(sessions SessionStore, categories CategoryLookup, records RecordStore, log *slog.Logger) *Controller {
	return &Controller{
		sessions:   sessions,
		categories: categories,
		records:    records,
		log:        log,
		locks:      newSessionLocks(),
		now:        time.Now,
	}
}

// Handle applies one inbound message to its session. Input problems are
// answered with a reply; a non-nil error means a collaborator failed and
// the session's draft was left as it was before the call.
func (c *Controller) Handle(ctx context.Context, in Input) (Reply, error) {
	unlock := c.locks.lock(in.SessionID)
	defer unlock()

	d, err := c.sessions.Load(ctx, in.SessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("loading draft: %w", err)
	}
	if d != nil && d.Step == training.StepDone {
		d = nil
	}

	switch in.Command {
	case CommandBegin:
		return c.begin(ctx, in)
	case CommandStop:
		return c.stop(ctx, in, d)
	case CommandDone:
		return c.done(ctx, in, d)
	case CommandBar, CommandSide:
		return c.modify(ctx, in, d)
	case CommandNote:
		return c.note(ctx, in, d)
	case CommandHelp:
		return c.help(ctx, in, d)
	case CommandText:
		return c.text(ctx, in, d)
	case CommandUnknown:
		return Reply{}, nil
	}
	return Reply{}, fmt.Errorf("unhandled command %d", in.Command)
}

func (c *Controller) begin(ctx context.Context, in Input) (Reply, error) {
	groups, err := c.categories.ListCategories(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("loading categories: %w", err)
	}

	if err := c.save(ctx, in, training.NewDraft()); err != nil {
		return Reply{}, err
	}
	c.log.Info("dialogue started", "session", in.SessionID, "user", in.UserID)
	return choices(msgAskMuscleGroup, groups), nil
}

func (c *Controller) stop(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if d == nil {
		return Reply{Text: training.NoActiveEntryText, Keyboard: Keyboard{Kind: KeyboardRemove}}, nil
	}
	if err := c.discard(ctx, in); err != nil {
		return Reply{}, err
	}
	c.log.Info("dialogue cancelled", "session", in.SessionID, "step", d.Step.String())
	return Reply{Text: msgCancelled, Keyboard: Keyboard{Kind: KeyboardRemove}}, nil
}

func (c *Controller) done(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if d == nil {
		return Reply{Text: training.NoActiveEntryText}, nil
	}
	if !d.Committable() {
		if err := c.discard(ctx, in); err != nil {
			return Reply{}, err
		}
		return Reply{Text: msgClosedIncomplete, Keyboard: Keyboard{Kind: KeyboardRemove}}, nil
	}

	entry, err := c.commit(ctx, in, d)
	if err != nil {
		return Reply{}, err
	}
	if err := c.discard(ctx, in); err != nil {
		return Reply{}, err
	}
	return Reply{Text: savedSummary(entry), Keyboard: Keyboard{Kind: KeyboardRemove}}, nil
}

func (c *Controller) modify(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if d == nil {
		return Reply{Text: training.NoActiveEntryText}, nil
	}

	format := msgBarFormat
	if in.Command == CommandSide {
		format = msgSideFormat
	}
	delta, ok := training.ParseModifier(in.Args)
	if !ok {
		return Reply{Text: format, Keyboard: Keyboard{Kind: KeyboardCancel}}, nil
	}

	if in.Command == CommandSide {
		d.Side += delta
	} else {
		d.Bar += delta
	}
	if err := c.save(ctx, in, d); err != nil {
		return Reply{}, err
	}
	return c.form(d), nil
}

func (c *Controller) note(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if d == nil {
		return Reply{Text: training.NoActiveEntryText}, nil
	}
	if !training.ValidNote(in.Args) {
		return Reply{Text: msgNoteFormat, Keyboard: Keyboard{Kind: KeyboardCancel}}, nil
	}

	d.Note = strings.TrimSpace(in.Args)
	if err := c.save(ctx, in, d); err != nil {
		return Reply{}, err
	}
	return c.form(d), nil
}

func (c *Controller) help(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if d == nil {
		return Reply{Text: msgCommands}, nil
	}

	d.UI.ShowHelp = !d.UI.ShowHelp
	if err := c.save(ctx, in, d); err != nil {
		return Reply{}, err
	}
	return c.form(d), nil
}

func (c *Controller) text(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if isCancelToken(in.Text) {
		return c.stop(ctx, in, d)
	}
	if d == nil || strings.TrimSpace(in.Text) == "" {
		return Reply{}, nil
	}

	switch d.Step {
	case training.StepMuscleGroup:
		return c.onMuscleGroup(ctx, in, d)
	case training.StepWorkoutName:
		return c.onWorkoutName(ctx, in, d)
	case training.StepWeight:
		return c.onWeight(ctx, in, d)
	case training.StepReps:
		return c.onReps(ctx, in, d)
	case training.StepConfirm:
		return c.onConfirm(ctx, in, d)
	case training.StepDone:
		return Reply{}, nil
	}
	return Reply{}, fmt.Errorf("draft for session %s has invalid step %s", in.SessionID, d.Step)
}

func (c *Controller) onMuscleGroup(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if !training.ValidMuscleGroup(in.Text) {
		return Reply{Text: msgBadMuscleGroup}, nil
	}

	groups, err := c.categories.ListCategories(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("loading categories: %w", err)
	}
	group := training.NormalizeMuscleGroup(in.Text)
	if !slices.Contains(groups, group) {
		return choices(msgUnknownMuscleGroup, groups), nil
	}

	d.MuscleGroup = group
	return c.advance(ctx, in, d, eventGroupChosen, Reply{Text: msgAskWorkoutName, Keyboard: Keyboard{Kind: KeyboardCancel}})
}

func (c *Controller) onWorkoutName(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	if !training.ValidWorkoutName(in.Text) {
		return Reply{Text: msgBadWorkoutName}, nil
	}

	d.WorkoutName = strings.TrimSpace(in.Text)
	return c.advance(ctx, in, d, eventWorkoutNamed, c.weightPrompt(d, msgAskWeight))
}

func (c *Controller) onWeight(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	weight, ok := training.ParseWeight(in.Text)
	if !ok {
		return Reply{Text: msgBadWeight, Keyboard: Keyboard{Kind: KeyboardCancel}}, nil
	}

	d.Weight = weight
	return c.advance(ctx, in, d, eventWeightSet, Reply{Text: msgAskReps, Keyboard: Keyboard{Kind: KeyboardCancel}})
}

func (c *Controller) onReps(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	reps, ok := training.ParseReps(in.Text)
	if !ok {
		return Reply{Text: msgBadReps, Keyboard: Keyboard{Kind: KeyboardCancel}}, nil
	}

	d.Reps = reps
	if err := fire(ctx, d, eventRepsSet); err != nil {
		return Reply{}, err
	}
	if err := c.save(ctx, in, d); err != nil {
		return Reply{}, err
	}
	return Reply{
		Text:     training.RenderForm(d) + "\n\n" + msgAskConfirm,
		Keyboard: Keyboard{Kind: KeyboardConfirm},
	}, nil
}

func (c *Controller) onConfirm(ctx context.Context, in Input, d *training.Draft) (Reply, error) {
	answer := parseConfirm(in.Text)
	if answer == answerOther {
		return Reply{Text: msgBadConfirm, Keyboard: Keyboard{Kind: KeyboardConfirm}}, nil
	}

	prompt := msgSetDiscarded
	if answer == answerYes {
		entry, err := c.commit(ctx, in, d)
		if err != nil {
			return Reply{}, err
		}
		prompt = msgSetSaved + " " + training.FormatNumber(entry.TotalWeight()) +
			" × " + fmt.Sprint(entry.Reps()) + "\n\n" + msgNextSet
	}

	d.ResetSet()
	return c.advance(ctx, in, d, eventNextSet, c.weightPrompt(d, prompt))
}

// advance fires the event, saves the draft, and returns reply on success.
func (c *Controller) advance(ctx context.Context, in Input, d *training.Draft, event string, reply Reply) (Reply, error) {
	if err := fire(ctx, d, event); err != nil {
		return Reply{}, err
	}
	if err := c.save(ctx, in, d); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// commit builds the entry from the draft and appends it to the record store.
func (c *Controller) commit(ctx context.Context, in Input, d *training.Draft) (training.Entry, error) {
	entry := training.NewEntry(in.UserID, *d, c.now())
	if err := c.records.AppendEntry(ctx, entry); err != nil {
		return training.Entry{}, fmt.Errorf("appending entry: %w", err)
	}
	c.log.Info("set committed",
		"session", in.SessionID,
		"user", in.UserID,
		"entry_id", entry.ID().String(),
		"workout", entry.WorkoutName(),
		"total_weight", entry.TotalWeight(),
		"reps", entry.Reps(),
	)
	return entry, nil
}

func (c *Controller) save(ctx context.Context, in Input, d *training.Draft) error {
	if err := c.sessions.Save(ctx, in.SessionID, in.UserID, d); err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

func (c *Controller) discard(ctx context.Context, in Input) error {
	if err := c.sessions.Delete(ctx, in.SessionID); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

func (c *Controller) form(d *training.Draft) Reply {
	return Reply{Text: training.RenderForm(d), Keyboard: Keyboard{Kind: KeyboardCancel}}
}

// weightPrompt returns prompt, followed by the modifier hint when help is on.
func (c *Controller) weightPrompt(d *training.Draft, prompt string) Reply {
	text := prompt
	if d.UI.ShowHelp {
		text += "\n\nДополнительно: /bar +20, /side +10, /note текст"
	}
	return Reply{Text: text, Keyboard: Keyboard{Kind: KeyboardCancel}}
}

func choices(text string, groups []string) Reply {
	return Reply{Text: text, Keyboard: Keyboard{Kind: KeyboardChoices, Choices: groups}}
}

func savedSummary(e training.Entry) string {
	lines := []string{
		"Запись сохранена ✅",
		"Группа: " + e.MuscleGroup(),
		"Тренировка: " + e.WorkoutName(),
		"Вес: " + training.FormatNumber(e.Weight()),
		"Итоговый вес: " + training.FormatNumber(e.TotalWeight()),
		"Повторы: " + fmt.Sprint(e.Reps()),
	}
	if e.Note() != "" {
		lines = append(lines, "Пояснение: "+e.Note())
	}
	return strings.Join(lines, "\n")
}
