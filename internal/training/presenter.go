package training

import (
	"strconv"
	"strings"
)

// NoActiveEntryText is shown whenever a command needs an open dialogue and
// there is none.
const NoActiveEntryText = "Нет активной записи. /train"

const placeholder = "—"

const modifierHelp = "Теперь введи вес (число, например 45):\n\n" +
	"Дополнительно: /bar +20, /side +10, /note текст"

// StepLabel is the human label of a step.
func StepLabel(s Step) string {
	switch s {
	case StepMuscleGroup:
		return "ввод группы мышц"
	case StepWorkoutName:
		return "ввод тренировки"
	case StepWeight:
		return "ввод веса"
	case StepReps:
		return "ввод повторов"
	case StepConfirm:
		return "подтверждение"
	case StepDone:
		return "завершено"
	}
	return "ожидание начала"
}

// RenderForm renders the draft as the training form. The output depends
// only on the draft.
func RenderForm(d *Draft) string {
	if d == nil {
		return NoActiveEntryText
	}

	weight, total := placeholder, placeholder
	if d.Weight > 0 {
		weight = FormatNumber(d.Weight)
		total = FormatNumber(TotalWeight(d.Weight, d.Bar, d.Side))
	}
	reps := placeholder
	if d.Reps > 0 {
		reps = strconv.Itoa(d.Reps)
	}

	lines := []string{
		"«ЗАПИСЬ ТРЕНИРОВКИ»",
		"",
		field("Группа", d.MuscleGroup),
		field("Тренировка", d.WorkoutName),
		field("Вес", weight),
		field("Штанга", FormatNumber(d.Bar)),
		field("Одна сторона", FormatNumber(d.Side)+" (итого "+formatSigned(d.Side*2)+")"),
		field("Итоговый вес", total),
		field("Повторы", reps),
		field("Пояснение", d.Note),
		"",
		"Текущий шаг: " + StepLabel(d.Step),
	}
	if d.Step == StepWeight && d.UI.ShowHelp {
		lines = append(lines, "", modifierHelp)
	}
	lines = append(lines, "", "в любой момент вы можете отменить заполнение.")
	return strings.Join(lines, "\n")
}

// FormatNumber prints a number without trailing zeros: 60, 62.5, -2.5.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSigned(v float64) string {
	if v < 0 {
		return FormatNumber(v)
	}
	return "+" + FormatNumber(v)
}

func field(label, value string) string {
	if strings.TrimSpace(value) == "" {
		value = placeholder
	}
	return label + ": " + value
}
