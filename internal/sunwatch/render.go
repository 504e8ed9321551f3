package sunwatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/true1853/sunrise-bot/internal/solar"
	"github.com/true1853/sunrise-bot/pkg/tgui"
)

// Telegram rejects messages over 4096 chars; cap mention lists well below.
const maxReminderRunes = 3500

func kindEmoji(kind solar.EventKind) string {
	if kind == solar.Sunset {
		return "🌇"
	}
	return "🌅"
}

// renderReminder builds both delivery variants of a reminder: the HTML one
// with tg://user mention links, and the plain fallback with bare names.
func renderReminder(date string, kind solar.EventKind, offset time.Duration, members []Member) (html, plain string) {
	mins := int(offset.Minutes())
	head := fmt.Sprintf("📅 %s\n⏰ %d min to %s %s", date, mins, kind, kindEmoji(kind))

	if len(members) == 0 {
		return tgui.Esc(head).String(), head
	}

	mentions := make([]tgui.H, 0, len(members))
	names := make([]string, 0, len(members))
	for _, m := range members {
		mentions = append(mentions, tgui.Mention(m.Name, m.UserID))
		names = append(names, m.Name)
	}

	html = tgui.JoinH(" ", tgui.Esc(head), tgui.JoinH(" ", mentions...)).String()
	plain = head + " " + strings.Join(names, " ")
	return tgui.TruncRunes(html, maxReminderRunes), tgui.TruncRunes(plain, maxReminderRunes)
}

// renderTest builds the synthetic reminder used by the /test command.
func renderTest(date string, kind solar.EventKind, offset time.Duration) string {
	mins := int(offset.Minutes())
	return fmt.Sprintf("[TEST] 📅 %s\n⏰ %d min to %s %s (test reminder)", date, mins, kind, kindEmoji(kind))
}
