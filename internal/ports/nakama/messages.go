package nakama

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"citychain/internal/app"
	"citychain/internal/domain"
	"citychain/internal/ports"
)

const helpText = `Игра «Города». Назови город России на последнюю букву города соперника.
Буквы Ь, Ъ, Ы и Й в конце пропускаются, Ё считается как Е.

/play — встать в очередь
/leave — выйти из очереди
/surrender — сдаться
/top — таблица лидеров
/myrank — твой ранг
/profile — твой профиль
/country <страна> — указать страну
/cancel_rematch — отозвать предложения реванша`

func gameStartedText(p app.GameStartedPayload, recipient string) string {
	if recipient == p.Pair.First {
		return "Соперник найден! Ты ходишь первым."
	}
	return "Соперник найден! Ты ходишь вторым, ждём ход соперника."
}

func yourTurnText(p app.YourTurnPayload) string {
	var b strings.Builder
	if p.OpponentWord != "" {
		fmt.Fprintf(&b, "Соперник назвал: %s.\n", titleCity(p.OpponentWord))
	}
	if p.RequiredLetter == domain.NoLetter {
		b.WriteString("Твой ход! Назови любой город.\n")
	} else {
		fmt.Fprintf(&b, "Твой ход! Город на букву %s.\n", domain.DisplayLetter(p.RequiredLetter))
	}
	fmt.Fprintf(&b, "На ответ %d сек.", p.TurnSeconds)
	return b.String()
}

func moveAcceptedText(p app.MoveAcceptedPayload) string {
	return fmt.Sprintf("Принято: %s. Ход передан сопернику.", titleCity(p.Word))
}

func reasonText(out domain.Outcome, turnSeconds int) string {
	switch out.Reason {
	case domain.ReasonTimedOut:
		return fmt.Sprintf("не успел сделать ход за %d сек", turnSeconds)
	case domain.ReasonSurrendered:
		return "сдался"
	case domain.ReasonExhausted:
		return "города на нужную букву закончились"
	default:
		return string(out.Reason)
	}
}

func gameEndedText(p app.GameEndedPayload, recipient string) string {
	out := p.Outcome
	var head string
	switch {
	case out.Draw:
		head = fmt.Sprintf("Ничья: %s.", reasonText(out, p.TurnSeconds))
	case recipient == out.Winner:
		head = fmt.Sprintf("Победа! Соперник %s.", reasonText(out, p.TurnSeconds))
	default:
		head = fmt.Sprintf("Поражение: ты %s.", reasonText(out, p.TurnSeconds))
	}
	return fmt.Sprintf("%s\nХодов: %d, длительность: %s.", head, out.Moves, out.Duration.Round(time.Second))
}

const (
	rematchOfferText     = "Сыграть ещё раз с тем же соперником? Нажми «Реванш»."
	rematchAbortedText   = "Один из игроков уже в другой партии, реванш отменён."
	rematchWithdrawnText = "Соперник отозвал предложение реванша."
)

func rematchUpdatedText(p app.RematchUpdatedPayload) string {
	if p.Consenting {
		return "Соперник хочет реванш! Нажми «Реванш», чтобы принять."
	}
	return "Соперник отменил согласие на реванш."
}

// rejectionText explains a refused move to the player who sent it.
func rejectionText(err error) string {
	var wrong *domain.WrongLetterError
	var unknown *domain.UnknownCityError
	switch {
	case errors.Is(err, domain.ErrNotYourTurn):
		return "Сейчас ход соперника, подожди."
	case errors.Is(err, domain.ErrInvalidWord):
		return "Не распознал название города. Напиши только город."
	case errors.As(err, &unknown) && unknown.Suggestion != "":
		return fmt.Sprintf("Такого города нет в списке. Может быть, %s?", titleCity(unknown.Suggestion))
	case errors.Is(err, domain.ErrUnknownCity):
		return "Такого города нет в списке. Проверь написание."
	case errors.Is(err, domain.ErrAlreadyUsed):
		return "Этот город уже называли в этой партии."
	case errors.As(err, &wrong):
		return fmt.Sprintf("Нужен город на букву %s.", domain.DisplayLetter(wrong.Required))
	default:
		return "Ход не принят."
	}
}

func playText(res app.PlayResult, err error) string {
	switch {
	case errors.Is(err, app.ErrAlreadyInSession):
		return "Ты уже в игре. Доиграй партию или сдайся (/surrender)."
	case errors.Is(err, app.ErrAlreadyQueued):
		return "Ты уже в очереди. Жди соперника или выйди (/leave)."
	case res.Status == app.QueueQueued:
		return "Ты в очереди. Подберу соперника, /leave чтобы выйти."
	default:
		return ""
	}
}

func leaveText(removed bool) string {
	if removed {
		return "Ты вышел из очереди."
	}
	return "Ты не в очереди. /play чтобы встать в очередь."
}

func leaderboardText(top []ports.RankedPlayer) string {
	if len(top) == 0 {
		return "Таблица пока пуста. Стань первым!"
	}
	lines := make([]string, 0, len(top))
	for _, p := range top {
		name := p.Username
		if p.Country != "" {
			name = fmt.Sprintf("%s (%s)", name, p.Country)
		}
		lines = append(lines, fmt.Sprintf("%d. %s — побед: %d, лучшая серия: %d", p.Rank, name, p.Wins, p.MaxStreak))
	}
	return strings.Join(lines, "\n")
}

func standingText(s ports.Standing, found bool) string {
	if !found {
		return "У тебя ещё нет побед. Сыграй (/play), и ты появишься в таблице."
	}
	return fmt.Sprintf("Твой ранг: %d\nПобед: %d\nСтрана: /country <название>", s.Rank, s.Wins)
}

func profileText(p ports.PlayerProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Профиль: %s\n", p.Username)
	fmt.Fprintf(&b, "Ранг: %d\n", p.Rank)
	fmt.Fprintf(&b, "Побед: %d\n", p.Wins)
	fmt.Fprintf(&b, "Текущая серия: %d\n", p.CurrentStreak)
	fmt.Fprintf(&b, "Лучшая серия: %d", p.MaxStreak)
	if p.Country != "" {
		fmt.Fprintf(&b, "\nСтрана: %s", p.Country)
	}
	return b.String()
}

// titleCity capitalizes each word of a normalized city name.
func titleCity(city string) string {
	words := strings.Fields(city)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	parts := strings.Split(w, "-")
	for i, p := range parts {
		r := []rune(p)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		parts[i] = string(r)
	}
	return strings.Join(parts, "-")
}
