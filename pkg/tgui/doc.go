// Package tgui holds small Telegram UI helpers: HTML-safe text building
// (Esc, B, Mention, ...) and reply-markup constructors.
//
// The H type marks strings as already escaped so message builders can compose
// rich text without double-escaping.
package tgui
