package automod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"strike-warden/internal/badwords"
	"strike-warden/internal/config"
	"strike-warden/internal/modules/antispam"
	"strike-warden/internal/modules/audit"
	"strike-warden/internal/punish"
	"strike-warden/internal/storage"
	"strike-warden/internal/strikes"

	"go.uber.org/zap"
)

type fakeTimer struct {
	fn func()
}

func (t *fakeTimer) Stop() bool { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	pending := append([]*fakeTimer{}, f.timers...)
	f.timers = nil
	f.mu.Unlock()
	for _, timer := range pending {
		timer.fn()
	}
}

type fakePlatform struct {
	channels   map[string]Channel
	invites    map[string]Invite
	replies    []string
	deleted    []string
	suppressed []string
	nicknames  map[string]string
	deleteErr  map[string]error
	nickErr    error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels:  make(map[string]Channel),
		invites:   make(map[string]Invite),
		nicknames: make(map[string]string),
		deleteErr: make(map[string]error),
	}
}

func (p *fakePlatform) Channel(_ context.Context, channelID string) (Channel, error) {
	if channel, ok := p.channels[channelID]; ok {
		return channel, nil
	}
	return Channel{
		ChannelInfo:     badwords.ChannelInfo{Kind: badwords.ChannelText, ID: channelID, EveryoneCanView: true},
		Name:            "general-chat",
		EveryoneCanSend: true,
	}, nil
}

func (p *fakePlatform) ResolveInvite(_ context.Context, code string) (Invite, error) {
	if invite, ok := p.invites[code]; ok {
		return invite, nil
	}
	return Invite{}, errors.New("unknown invite")
}

func (p *fakePlatform) Reply(_ context.Context, _, _, content string) (string, error) {
	p.replies = append(p.replies, content)
	return fmt.Sprintf("notice-%d", len(p.replies)), nil
}

func (p *fakePlatform) DeleteMessage(_ context.Context, _, messageID string) error {
	if err := p.deleteErr[messageID]; err != nil {
		return err
	}
	p.deleted = append(p.deleted, messageID)
	return nil
}

func (p *fakePlatform) SuppressEmbeds(_ context.Context, _, messageID string) error {
	p.suppressed = append(p.suppressed, messageID)
	return nil
}

func (p *fakePlatform) SetNickname(_ context.Context, _, userID, nickname string) error {
	if p.nickErr != nil {
		return p.nickErr
	}
	p.nicknames[userID] = nickname
	return nil
}

type warnCall struct {
	subject punish.Subject
	reason  string
	weight  float64
	context strikes.Context
}

type fakeWarner struct {
	calls []warnCall
	err   error
}

func (w *fakeWarner) Warn(_ context.Context, subject punish.Subject, reason string, weight float64, sctx strikes.Context) (punish.Outcome, error) {
	if w.err != nil {
		return punish.Outcome{}, w.err
	}
	w.calls = append(w.calls, warnCall{subject: subject, reason: reason, weight: weight, context: sctx})
	return punish.Outcome{}, nil
}

type harness struct {
	module   *Module
	platform *fakePlatform
	warner   *fakeWarner
	clock    *fakeClock
	store    storage.Backend
}

func newHarness(t *testing.T, configure func(*config.Config)) *harness {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.GuildID = "g1"
	cfg.Automod.AdvertiseChannel = "ads"
	cfg.Automod.WhitelistedGuilds = []string{"friend"}
	cfg.Automod.LinkExemptRoles = []string{"trusted"}
	cfg.Automod.SpamMessages = 0
	if configure != nil {
		configure(&cfg)
	}

	matcher, err := badwords.Compile(badwords.Default(true), 0.25)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	auditLogger := audit.NewLogger(store, zap.NewNop())
	platform := newFakePlatform()
	warner := &fakeWarner{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	module := New(cfg, matcher, platform, warner, antispam.New(cfg.Automod, auditLogger), auditLogger, zap.NewNop())
	module.WithClock(clock)
	return &harness{module: module, platform: platform, warner: warner, clock: clock, store: store}
}

func (h *harness) handle(t *testing.T, msg Message, auditOnly bool) bool {
	t.Helper()
	if msg.ID == "" {
		msg.ID = "m1"
	}
	if msg.ChannelID == "" {
		msg.ChannelID = "c1"
	}
	if msg.GuildID == "" {
		msg.GuildID = "g1"
	}
	if msg.AuthorID == "" {
		msg.AuthorID = "u1"
	}
	kept, err := h.module.HandleMessage(context.Background(), msg, auditOnly)
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	return kept
}

func (h *harness) auditEvents(t *testing.T, event string) int {
	t.Helper()
	logs, err := h.store.ListAuditLogs(context.Background(), "g1", time.Time{})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	count := 0
	for _, entry := range logs {
		if entry.Event == event {
			count++
		}
	}
	return count
}

func TestCleanMessageIsKept(t *testing.T) {
	h := newHarness(t, nil)
	if !h.handle(t, Message{Content: "hello there"}, false) {
		t.Fatalf("expected clean message to be kept")
	}
	if len(h.warner.calls) != 0 || len(h.platform.replies) != 0 {
		t.Fatalf("expected no action on a clean message")
	}
}

func TestBannedWordIsDeletedWithTimedNotice(t *testing.T) {
	h := newHarness(t, nil)
	if h.handle(t, Message{Content: "you **automodmute**", Mentions: []string{"u9"}}, false) {
		t.Fatalf("expected message to be deleted")
	}
	if len(h.warner.calls) != 1 {
		t.Fatalf("expected one strike, got %d", len(h.warner.calls))
	}
	call := h.warner.calls[0]
	if call.reason != "Used a banned word" || call.weight != 1 || call.context.NoteText() != "automodmute" {
		t.Fatalf("unexpected strike %+v", call)
	}
	if len(h.platform.deleted) != 1 || h.platform.deleted[0] != "m1" {
		t.Fatalf("expected original message deleted, got %v", h.platform.deleted)
	}
	reply := h.platform.replies[0]
	if !strings.Contains(reply, "Please watch your language!") || !strings.Contains(reply, "ghost pinged <@u9>") {
		t.Fatalf("unexpected notice %q", reply)
	}
	if len(h.clock.delays) != 1 || h.clock.delays[0] != 300*time.Second {
		t.Fatalf("expected notice deletion scheduled after 300s, got %v", h.clock.delays)
	}

	h.clock.Advance(300 * time.Second)
	if len(h.platform.deleted) != 2 || h.platform.deleted[1] != "notice-1" {
		t.Fatalf("expected notice deleted, got %v", h.platform.deleted)
	}
}

func TestNoticeDeletionFailureIsAudited(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.deleteErr["notice-1"] = errors.New("unknown message")
	h.handle(t, Message{Content: "automodmute"}, false)
	h.clock.Advance(5 * time.Minute)
	if h.auditEvents(t, "action_failed") != 1 {
		t.Fatalf("expected failed notice deletion to be audited")
	}
}

func TestMessageDeletionFailureIsAudited(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.deleteErr["m1"] = errors.New("missing permissions")
	if !h.handle(t, Message{Content: "automodmute"}, false) {
		t.Fatalf("expected undeletable message to be reported as kept")
	}
	if len(h.warner.calls) != 1 {
		t.Fatalf("expected strike despite failed deletion")
	}
	if h.auditEvents(t, "action_failed") != 1 || len(h.platform.replies) != 0 {
		t.Fatalf("expected alert and no public notice")
	}
}

func TestEmbedWordsAreShiftedAndSuppressed(t *testing.T) {
	h := newHarness(t, nil)
	kept := h.handle(t, Message{Content: "look", Embeds: []Embed{{Title: "automodmute"}}}, false)
	if !kept {
		t.Fatalf("expected message with a bad embed to be kept")
	}
	if len(h.warner.calls) != 1 || h.warner.calls[0].weight != 0.25 {
		t.Fatalf("expected partial strike for embed, got %+v", h.warner.calls)
	}
	if len(h.platform.suppressed) != 1 {
		t.Fatalf("expected embeds suppressed")
	}
	if !strings.Contains(h.platform.replies[0], "Please don’t say that here!") {
		t.Fatalf("unexpected notice %q", h.platform.replies[0])
	}

	h = newHarness(t, nil)
	if h.handle(t, Message{System: true, Embeds: []Embed{{Description: "automodmute"}}}, false) {
		t.Fatalf("expected system message with a bad embed to be deleted")
	}
}

func TestExemptChannelsAllowBadWords(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Automod.ExemptCategories = []string{"staff"}
	})
	h.platform.channels["dm"] = Channel{ChannelInfo: badwords.ChannelInfo{Kind: badwords.ChannelDM, ID: "dm"}}
	h.platform.channels["staff-chat"] = Channel{ChannelInfo: badwords.ChannelInfo{ID: "staff-chat", CategoryID: "staff", EveryoneCanView: true}}
	h.platform.channels["hidden"] = Channel{ChannelInfo: badwords.ChannelInfo{ID: "hidden"}}

	for _, channel := range []string{"dm", "staff-chat", "hidden"} {
		if !h.handle(t, Message{ChannelID: channel, Content: "automodmute"}, false) {
			t.Fatalf("expected message in %s to be kept", channel)
		}
	}
	if len(h.warner.calls) != 0 {
		t.Fatalf("expected no strikes in exempt channels, got %d", len(h.warner.calls))
	}
}

func TestInvitesOutsideAdvertiseChannel(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.invites["abc"] = Invite{GuildID: "other", GuildName: "Other"}
	h.platform.invites["xyz"] = Invite{GuildID: "other2", GuildName: "Other Two"}
	h.platform.invites["pals"] = Invite{GuildID: "friend", GuildName: "Friends"}
	h.platform.invites["home"] = Invite{GuildID: "g1", GuildName: "Home"}

	content := "join discord.gg/abc and discord.gg/abc or discord.gg/xyz, discord.gg/pals, discord.gg/home, discord.gg/dead"
	if h.handle(t, Message{Content: content}, false) {
		t.Fatalf("expected invite message to be deleted")
	}
	if len(h.warner.calls) != 1 || h.warner.calls[0].weight != 2 {
		t.Fatalf("expected one strike of weight 2, got %+v", h.warner.calls)
	}
	if h.warner.calls[0].reason != "Server invite in <#c1>" {
		t.Fatalf("unexpected reason %q", h.warner.calls[0].reason)
	}

	h = newHarness(t, nil)
	h.platform.invites["abc"] = Invite{GuildID: "other", GuildName: "Other"}
	if !h.handle(t, Message{ChannelID: "ads", Content: "discord.gg/abc"}, false) {
		t.Fatalf("expected invite in advertise channel to be kept")
	}
}

func TestInviteGuildNamesAreScanned(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.invites["abc"] = Invite{GuildID: "friend", GuildName: "automodmute hub"}
	h.handle(t, Message{ChannelID: "ads", Content: "discord.gg/abc"}, false)
	if len(h.warner.calls) != 1 || h.warner.calls[0].weight != 1 {
		t.Fatalf("expected language strike for invite guild name, got %+v", h.warner.calls)
	}
}

func TestBotInvites(t *testing.T) {
	h := newHarness(t, nil)
	content := "https://discord.com/oauth2/authorize?client_id=123456789012345678&scope=bot"
	h.handle(t, Message{Content: content}, false)
	if len(h.warner.calls) != 1 || h.warner.calls[0].reason != "Bot invite in <#c1>" || h.warner.calls[0].weight != 1 {
		t.Fatalf("expected bot invite strike, got %+v", h.warner.calls)
	}

	h = newHarness(t, nil)
	h.handle(t, Message{Content: content, AuthorBot: true}, false)
	if len(h.warner.calls) != 0 {
		t.Fatalf("expected bots to be allowed to post bot invites")
	}
}

func TestRestrictedLinks(t *testing.T) {
	h := newHarness(t, nil)
	content := "https://youtube.com/watch?v=1 https://youtube.com/watch?v=1 https://www.youtube.com/watch?v=2 https://example.com"
	h.handle(t, Message{Content: content, Member: &Member{}}, false)
	if len(h.warner.calls) != 1 || h.warner.calls[0].weight != 0.5 {
		t.Fatalf("expected two distinct links at partial weight, got %+v", h.warner.calls)
	}

	h = newHarness(t, nil)
	h.handle(t, Message{Content: content, Member: &Member{Roles: []string{"trusted"}}}, false)
	if len(h.warner.calls) != 0 {
		t.Fatalf("expected exempt role to post links")
	}

	h = newHarness(t, nil)
	h.platform.channels["c2"] = Channel{ChannelInfo: badwords.ChannelInfo{ID: "c2", EveryoneCanView: true}, Name: "memes", EveryoneCanSend: true}
	h.handle(t, Message{ChannelID: "c2", Content: content, Member: &Member{}}, false)
	if len(h.warner.calls) != 0 {
		t.Fatalf("expected links allowed outside general channels")
	}
}

func TestAnimatedEmojiFlood(t *testing.T) {
	h := newHarness(t, nil)
	content := strings.Repeat("<a:party:123456789012345678>", 26)
	if h.handle(t, Message{Content: content}, false) {
		t.Fatalf("expected emoji flood to be deleted")
	}
	if len(h.warner.calls) != 1 || h.warner.calls[0].weight != 0.25 {
		t.Fatalf("unexpected strikes %+v", h.warner.calls)
	}

	h = newHarness(t, nil)
	if !h.handle(t, Message{Content: strings.Repeat("<a:party:123456789012345678>", 15)}, false) {
		t.Fatalf("expected 15 emojis to be allowed")
	}
}

func TestSpamBurst(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Automod.SpamMessages = 2
		cfg.Automod.SpamWindowSeconds = 60
	})
	h.handle(t, Message{Content: "one"}, false)
	if h.handle(t, Message{ID: "m2", Content: "two"}, false) {
		t.Fatalf("expected burst message to be deleted")
	}
	if len(h.warner.calls) != 1 || h.warner.calls[0].reason != "Spamming messages" {
		t.Fatalf("expected spam strike, got %+v", h.warner.calls)
	}
}

func TestCommandRepliesStrikeTheInvoker(t *testing.T) {
	h := newHarness(t, nil)
	h.handle(t, Message{AuthorID: "bot", AuthorBot: true, InteractionUserID: "u2", Content: "automodmute"}, false)
	if len(h.warner.calls) != 1 || h.warner.calls[0].subject.UserID != "u2" {
		t.Fatalf("expected invoker to be warned, got %+v", h.warner.calls)
	}
}

func TestAuditOnlyMode(t *testing.T) {
	h := newHarness(t, nil)
	if !h.handle(t, Message{Content: "automodmute"}, true) {
		t.Fatalf("expected message kept in audit mode")
	}
	if len(h.warner.calls) != 0 || len(h.platform.deleted) != 0 || len(h.platform.replies) != 0 {
		t.Fatalf("expected no actions in audit mode")
	}
	if h.auditEvents(t, "automod_flagged") != 1 {
		t.Fatalf("expected flagged audit entry")
	}
}

func TestWarnFailureStopsEnforcement(t *testing.T) {
	h := newHarness(t, nil)
	h.warner.err = errors.New("database locked")
	if _, err := h.module.HandleMessage(context.Background(), Message{ID: "m1", ChannelID: "c1", GuildID: "g1", AuthorID: "u1", Content: "automodmute"}, false); err == nil {
		t.Fatalf("expected warn error")
	}
	if len(h.platform.deleted) != 0 {
		t.Fatalf("expected no deletion after a failed strike")
	}
}

func TestNicknameEnforcement(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if got, err := h.module.HandleMember(ctx, MemberName{GuildID: "g1", UserID: "u1", Username: "bob"}, false); err != nil || got != "" {
		t.Fatalf("expected acceptable name untouched, got %q (%v)", got, err)
	}

	got, err := h.module.HandleMember(ctx, MemberName{GuildID: "g1", UserID: "u1", Username: "bob", Nickname: "⒜⒰⒯⒪"}, false)
	if err != nil || got != "bob" || h.platform.nicknames["u1"] != "" {
		t.Fatalf("expected nickname cleared back to username, got %q (%v)", got, err)
	}

	got, err = h.module.HandleMember(ctx, MemberName{GuildID: "g1", UserID: "12345678", Username: "대니"}, false)
	if err != nil || got != "user5678" || h.platform.nicknames["12345678"] != "user5678" {
		t.Fatalf("expected fallback nickname, got %q (%v)", got, err)
	}

	h.platform.nickErr = errors.New("missing permissions")
	if _, err := h.module.HandleMember(ctx, MemberName{GuildID: "g1", UserID: "u3", Username: "대니"}, false); err == nil {
		t.Fatalf("expected rename error")
	}
	if h.auditEvents(t, "action_failed") != 1 || h.auditEvents(t, "nickname_changed") != 2 {
		t.Fatalf("unexpected nickname audit entries")
	}
}
