package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/true1853/sunrise-bot/internal/geo"
	"github.com/true1853/sunrise-bot/internal/kit"
	"github.com/true1853/sunrise-bot/internal/solar"
	"github.com/true1853/sunrise-bot/internal/sunwatch"
	logx "github.com/true1853/sunrise-bot/pkg/logx"
)

type fakeAdapter struct {
	mu       sync.Mutex
	username string
	sent     []fakeSent
}

type fakeSent struct {
	chatID int64
	text   string
	markup bool
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                    { return nil }
func (f *fakeAdapter) BotUsername() string                           { return f.username }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fakeSent{
		chatID: to.ChatID,
		text:   text,
		markup: opt != nil && opt.ReplyMarkupAdapter != nil,
	})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) replies() []fakeSent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeSent(nil), f.sent...)
}

type fixedCalc struct{ times solar.Times }

func (c fixedCalc) SunTimes(int, time.Month, int, float64, float64) (solar.Times, error) {
	return c.times, nil
}

type memStore struct {
	mu    sync.Mutex
	loc   geo.Location
	saved bool
}

func (s *memStore) LoadLocation(context.Context) (geo.Location, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc, s.saved, nil
}

func (s *memStore) SaveLocation(_ context.Context, loc geo.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc, s.saved = loc, true
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestManager(t *testing.T, withLocation bool) (*CommandManager, *fakeAdapter, *geo.Holder, *memStore) {
	t.Helper()
	adapter := &fakeAdapter{username: "sunrise_test_bot"}
	holder := geo.NewHolder()
	if withLocation {
		if err := holder.Set(geo.Location{Lat: 51.5, Lon: -0.13, Timezone: "UTC"}); err != nil {
			t.Fatalf("set location: %v", err)
		}
	}
	times := solar.Times{
		Rise: time.Date(2024, time.June, 21, 4, 43, 0, 0, time.UTC),
		Set:  time.Date(2024, time.June, 21, 20, 21, 0, 0, time.UTC),
	}
	watch := sunwatch.New(sunwatch.Config{}, fixedCalc{times: times}, holder, adapter, logx.Nop())
	store := &memStore{}
	mgr := NewCommandManager(adapter, watch, holder, store, logx.Nop())
	return mgr, adapter, holder, store
}

func msg(chatID, fromID int64, text string, group bool) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ChatID:   chatID,
		FromID:   fromID,
		FromName: "Alice",
		Text:     text,
		IsGroup:  group,
	}}
}

func TestSplitCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		text        string
		wantCmd     string
		wantPayload string
	}{
		{"plain", "/start", "/start", ""},
		{"payload", "/start setlocation", "/start", "setlocation"},
		{"bot suffix", "/times@sunrise_test_bot", "/times", ""},
		{"bot suffix case", "/times@Sunrise_Test_Bot", "/times", ""},
		{"other bot", "/times@other_bot", "", ""},
		{"upper command", "/TIMES", "/times", ""},
		{"not a command", "hello", "", ""},
		{"empty", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cmd, payload := splitCommand(tc.text, "sunrise_test_bot")
			if cmd != tc.wantCmd || payload != tc.wantPayload {
				t.Fatalf("splitCommand(%q) = (%q, %q), want (%q, %q)",
					tc.text, cmd, payload, tc.wantCmd, tc.wantPayload)
			}
		})
	}
}

func TestStartShowsHelp(t *testing.T) {
	t.Parallel()
	mgr, adapter, _, _ := newTestManager(t, false)
	mgr.handle(context.Background(), msg(1, 7, "/start", false))

	replies := adapter.replies()
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if !strings.Contains(replies[0].text, "/setlocation") {
		t.Errorf("help does not mention /setlocation: %q", replies[0].text)
	}
}

func TestStartDeepLinkPromptsForLocation(t *testing.T) {
	t.Parallel()
	mgr, adapter, _, _ := newTestManager(t, false)
	mgr.handle(context.Background(), msg(1, 7, "/start setlocation", false))

	replies := adapter.replies()
	if len(replies) != 1 || !replies[0].markup {
		t.Fatalf("expected one reply with a location keyboard, got %+v", replies)
	}
}

func TestSetLocationInGroupRedirectsToDM(t *testing.T) {
	t.Parallel()
	mgr, adapter, _, _ := newTestManager(t, false)
	mgr.handle(context.Background(), msg(-100, 7, "/setlocation", true))

	replies := adapter.replies()
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if !replies[0].markup {
		t.Error("group redirect carries no deep-link keyboard")
	}
	if !strings.Contains(replies[0].text, "private chat") {
		t.Errorf("unexpected redirect text: %q", replies[0].text)
	}
}

func TestLocationMessageSetsAndPersists(t *testing.T) {
	t.Parallel()
	mgr, adapter, holder, store := newTestManager(t, false)

	up := kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ChatID:   1,
		FromID:   7,
		FromName: "Alice",
		Location: &kit.GeoPoint{Lat: 51.5074, Lon: -0.1278},
	}}
	mgr.handle(context.Background(), up)

	loc, ok := holder.Get()
	if !ok {
		t.Fatal("location not stored in holder")
	}
	if loc.Timezone != "Europe/London" {
		t.Errorf("resolved timezone = %s, want Europe/London", loc.Timezone)
	}
	if !store.saved {
		t.Error("location not persisted")
	}
	replies := adapter.replies()
	if len(replies) != 1 || !strings.Contains(replies[0].text, "Location saved") {
		t.Fatalf("unexpected confirmation: %+v", replies)
	}
}

func TestLocationMessageIgnoredInGroups(t *testing.T) {
	t.Parallel()
	mgr, adapter, holder, _ := newTestManager(t, false)

	up := kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{
		ChatID:   -100,
		FromID:   7,
		IsGroup:  true,
		Location: &kit.GeoPoint{Lat: 51.5, Lon: -0.13},
	}}
	mgr.handle(context.Background(), up)

	if _, ok := holder.Get(); ok {
		t.Fatal("group location message changed the shared location")
	}
	if len(adapter.replies()) != 0 {
		t.Fatal("group location message produced a reply")
	}
}

func TestTimesSubscribesAndReplies(t *testing.T) {
	t.Parallel()
	mgr, adapter, _, _ := newTestManager(t, true)
	mgr.handle(context.Background(), msg(-100, 7, "/times", true))

	replies := adapter.replies()
	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if !strings.Contains(replies[0].text, "sunrise") || !strings.Contains(replies[0].text, "sunset") {
		t.Errorf("times reply missing events: %q", replies[0].text)
	}

	members := mgr.watch.Registry().MembersOf(-100)
	if len(members) != 1 || members[0].UserID != 7 || members[0].Name != "Alice" {
		t.Fatalf("subscription = %+v", members)
	}
}

func TestTimesWithoutLocationPrompts(t *testing.T) {
	t.Parallel()
	mgr, adapter, _, _ := newTestManager(t, false)
	mgr.handle(context.Background(), msg(1, 7, "/times", false))

	replies := adapter.replies()
	if len(replies) != 1 || !strings.Contains(replies[0].text, "/setlocation") {
		t.Fatalf("expected a no-location prompt, got %+v", replies)
	}
	if got := len(mgr.watch.Registry().MembersOf(1)); got != 0 {
		t.Fatalf("failed /times still subscribed %d members", got)
	}
}

func TestTestCommandSendsReminders(t *testing.T) {
	t.Parallel()
	mgr, adapter, _, _ := newTestManager(t, true)
	mgr.handle(context.Background(), msg(1, 7, "/test", false))

	replies := adapter.replies()
	if len(replies) != 2 {
		t.Fatalf("got %d messages, want 2 test reminders", len(replies))
	}
	for _, r := range replies {
		if !strings.Contains(r.text, "[TEST]") {
			t.Errorf("missing test marker: %q", r.text)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		m    kit.Message
		want string
	}{
		{"first name", kit.Message{FromName: "Alice", FromUsername: "al"}, "Alice"},
		{"username fallback", kit.Message{FromUsername: "al"}, "@al"},
		{"id fallback", kit.Message{FromID: 42}, "user 42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := displayName(&tc.m); got != tc.want {
				t.Fatalf("displayName = %q, want %q", got, tc.want)
			}
		})
	}
}
