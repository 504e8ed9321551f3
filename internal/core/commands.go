package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/true1853/sunrise-bot/internal/geo"
	"github.com/true1853/sunrise-bot/internal/kit"
	"github.com/true1853/sunrise-bot/internal/storage"
	"github.com/true1853/sunrise-bot/internal/sunwatch"
	logx "github.com/true1853/sunrise-bot/pkg/logx"
	"github.com/true1853/sunrise-bot/pkg/tgui"
)

// setLocationPayload is the /start deep-link payload that resumes the
// location flow after a group-to-DM redirect.
const setLocationPayload = "setlocation"

const replyTimeout = 5 * time.Second

// menuCommands is the command list pushed to the platform menu at startup.
var menuCommands = []kit.BotCommand{
	{Command: "start", Description: "Show help"},
	{Command: "setlocation", Description: "Set the observation point"},
	{Command: "times", Description: "Today's sunrise and sunset, and subscribe"},
	{Command: "test", Description: "Send a test reminder now"},
}

// CommandManager routes inbound updates to command handlers. Updates are
// handled sequentially; a panicking handler is recovered and the loop
// continues with the next update.
type CommandManager struct {
	adapter kit.Adapter
	watch   *sunwatch.Service
	holder  *geo.Holder
	store   storage.Store // nil when persistence is disabled
	log     logx.Logger
}

func NewCommandManager(adapter kit.Adapter, watch *sunwatch.Service, holder *geo.Holder, store storage.Store, log logx.Logger) *CommandManager {
	return &CommandManager{adapter: adapter, watch: watch, holder: holder, store: store, log: log}
}

// DispatchLoop consumes updates until ctx is canceled.
func (c *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			c.safeHandle(ctx, up)
		}
	}
}

func (c *CommandManager) safeHandle(ctx context.Context, up kit.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic handling update",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	c.handle(ctx, up)
}

func (c *CommandManager) handle(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	m := up.Message

	if m.Location != nil {
		c.handleLocation(ctx, m)
		return
	}

	cmd, payload := splitCommand(m.Text, c.adapter.BotUsername())
	switch cmd {
	case "/start":
		c.handleStart(ctx, m, payload)
	case "/setlocation":
		c.handleSetLocation(ctx, m)
	case "/times":
		c.handleTimes(ctx, m)
	case "/test":
		c.handleTest(ctx, m)
	}
}

// splitCommand extracts the leading /command from text, stripping an
// @botname suffix, and returns the rest as the payload.
func splitCommand(text, botUsername string) (cmd, payload string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, payload, _ = strings.Cut(text, " ")
	payload = strings.TrimSpace(payload)

	if at := strings.IndexByte(cmd, '@'); at > 0 {
		target := cmd[at+1:]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			// Addressed to another bot in the chat.
			return "", ""
		}
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), payload
}

func (c *CommandManager) handleStart(ctx context.Context, m *kit.Message, payload string) {
	if strings.EqualFold(payload, setLocationPayload) && !m.IsGroup {
		c.promptLocation(ctx, m)
		return
	}

	help := strings.Join([]string{
		"🌅 Sunrise reminder bot.",
		"",
		"/setlocation — set the observation point (private chat)",
		"/times — today's sunrise and sunset; subscribes you to reminders in this chat",
		"/test — send a test reminder here",
	}, "\n")
	c.reply(ctx, m, help, nil)
}

func (c *CommandManager) handleSetLocation(ctx context.Context, m *kit.Message) {
	if m.IsGroup {
		// Telegram only delivers location payloads in private chats, so
		// redirect through a deep link that resumes the flow in a DM.
		username := c.adapter.BotUsername()
		if username == "" {
			c.reply(ctx, m, "Open a private chat with me and send /setlocation there.", nil)
			return
		}
		url := fmt.Sprintf("https://t.me/%s?start=%s", username, setLocationPayload)
		c.reply(ctx, m, "Location can only be set in a private chat.",
			&kit.SendOptions{ReplyMarkupAdapter: tgui.URLKeyboard("Set location in DM", url)})
		return
	}
	c.promptLocation(ctx, m)
}

func (c *CommandManager) promptLocation(ctx context.Context, m *kit.Message) {
	c.reply(ctx, m, "Send the observation point with the button below, or attach a location manually.",
		&kit.SendOptions{ReplyMarkupAdapter: tgui.LocationKeyboard("📍 Send location")})
}

func (c *CommandManager) handleLocation(ctx context.Context, m *kit.Message) {
	if m.IsGroup {
		return
	}

	loc, err := geo.Resolve(m.Location.Lat, m.Location.Lon)
	if err != nil {
		c.log.Warn("location rejected", logx.Float64("lat", m.Location.Lat), logx.Float64("lon", m.Location.Lon), logx.Err(err))
		c.reply(ctx, m, "That location looks invalid, please try again.", nil)
		return
	}
	if err := c.holder.Set(loc); err != nil {
		c.log.Warn("location rejected", logx.Err(err))
		c.reply(ctx, m, "That location looks invalid, please try again.", nil)
		return
	}

	if c.store != nil {
		sctx, cancel := context.WithTimeout(ctx, replyTimeout)
		err := c.store.SaveLocation(sctx, loc)
		cancel()
		if err != nil {
			// The in-memory location is already live; persistence catches up
			// on the next successful save.
			c.log.Error("location save failed", logx.Err(err))
		}
	}

	c.log.Info("location updated", logx.String("location", loc.String()))
	c.reply(ctx, m, fmt.Sprintf("Location saved: %s. Use /times to see today's events.", loc.String()), nil)
}

func (c *CommandManager) handleTimes(ctx context.Context, m *kit.Message) {
	now := time.Now()
	today, err := c.watch.Day(now)
	if err != nil {
		c.replyDayError(ctx, m, err)
		return
	}
	tomorrow, err := c.watch.Day(today.Date.AddDate(0, 0, 1))
	if err != nil {
		c.replyDayError(ctx, m, err)
		return
	}

	var b strings.Builder
	writeDay := func(d sunwatch.Day) {
		fmt.Fprintf(&b, "📅 %s\n", d.Date.Format(time.DateOnly))
		if d.Rise.IsZero() && d.Set.IsZero() {
			b.WriteString("— the sun neither rises nor sets\n")
			return
		}
		if !d.Rise.IsZero() {
			fmt.Fprintf(&b, "🌅 sunrise %s\n", d.Rise.Format("15:04"))
		}
		if !d.Set.IsZero() {
			fmt.Fprintf(&b, "🌇 sunset %s\n", d.Set.Format("15:04"))
		}
	}
	writeDay(today)
	b.WriteString("\n")
	writeDay(tomorrow)
	b.WriteString("\nYou are subscribed to reminders in this chat.")

	c.watch.Registry().Subscribe(m.ChatID, m.FromID, displayName(m))
	c.reply(ctx, m, b.String(), nil)
}

func (c *CommandManager) handleTest(ctx context.Context, m *kit.Message) {
	tctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := c.watch.TestFire(tctx, m.ChatID); err != nil {
		c.replyDayError(ctx, m, err)
	}
}

func (c *CommandManager) replyDayError(ctx context.Context, m *kit.Message, err error) {
	switch {
	case errors.Is(err, geo.ErrNoLocation):
		c.reply(ctx, m, "No location configured yet. Use /setlocation first.", nil)
	case errors.Is(err, sunwatch.ErrNoEvents):
		c.reply(ctx, m, "The sun neither rises nor sets here today.", nil)
	default:
		c.log.Error("command failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
		c.reply(ctx, m, "Could not compute sun times, please try again later.", nil)
	}
}

func (c *CommandManager) reply(ctx context.Context, m *kit.Message, text string, opt *kit.SendOptions) {
	if opt == nil {
		opt = &kit.SendOptions{DisablePreview: true}
	}
	sctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	to := kit.ChatTarget{ChatID: m.ChatID, ThreadID: m.ThreadID}
	if _, err := c.adapter.SendText(sctx, to, text, opt); err != nil {
		c.log.Warn("reply failed", logx.Int64("chat_id", m.ChatID), logx.Err(err))
	}
}

func displayName(m *kit.Message) string {
	if n := strings.TrimSpace(m.FromName); n != "" {
		return n
	}
	if m.FromUsername != "" {
		return "@" + m.FromUsername
	}
	return fmt.Sprintf("user %d", m.FromID)
}
