// Package sunwatch drives the sunrise/sunset reminder loop.
//
// Every tick it computes the current day's solar times for the shared
// location, finds (chat, offset, event) combinations whose firing window
// contains "now", renders a mention list for the chat's subscribers and
// delivers the reminder. A ledger keyed by (chat, date, event, offset)
// makes delivery idempotent across ticks; a daily cron purge re-arms all
// keys for the new date.
package sunwatch
