package tgui

import tele "gopkg.in/telebot.v4"

// LocationKeyboard returns a one-time reply keyboard with a single
// request-location button.
func LocationKeyboard(label string) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	rm.Reply(rm.Row(rm.Location(label)))
	return rm
}

// URLKeyboard returns an inline keyboard with a single URL button.
func URLKeyboard(label, url string) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(rm.URL(label, url)))
	return rm
}
