package punish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"strike-warden/internal/modules/audit"
	"strike-warden/internal/storage"
	"strike-warden/internal/strikes"

	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		StrikesPerMute: 3,
		MuteLengths:    []int{8, 16, 36},
		MuteUnit:       time.Hour,
		Expiry:         21 * 24 * time.Hour,
		Production:     true,
	}
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type timeoutCall struct {
	userID string
	until  time.Time
}

type fakeGateway struct {
	mu         sync.Mutex
	nextID     int
	logs       []StrikeLog
	dms        []Notice
	timeouts   []timeoutCall
	bans       []string
	logErr     error
	timeoutErr error
	banErr     error
	// dmRelease, when set, holds every DM until closed.
	dmStarted chan struct{}
	dmRelease chan struct{}
}

func (g *fakeGateway) LogStrike(_ context.Context, entry StrikeLog) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.logErr != nil {
		return "", g.logErr
	}
	g.nextID++
	g.logs = append(g.logs, entry)
	return fmt.Sprintf("%d", 1_000_000_000_000_000_000+g.nextID), nil
}

func (g *fakeGateway) SendDM(ctx context.Context, _ string, notice Notice) error {
	if g.dmRelease != nil {
		g.dmStarted <- struct{}{}
		select {
		case <-g.dmRelease:
		case <-ctx.Done():
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dms = append(g.dms, notice)
	return errors.New("dms closed")
}

func (g *fakeGateway) Timeout(_ context.Context, _, userID string, until time.Time, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timeoutErr != nil {
		return g.timeoutErr
	}
	g.timeouts = append(g.timeouts, timeoutCall{userID: userID, until: until})
	return nil
}

func (g *fakeGateway) Ban(_ context.Context, _, userID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.banErr != nil {
		return g.banErr
	}
	g.bans = append(g.bans, userID)
	return nil
}

type failingStore struct {
	storage.Backend
}

func (failingStore) WriteDataset(context.Context, string, []byte) error {
	return errors.New("disk full")
}

type harness struct {
	engine  *Engine
	gateway *fakeGateway
	clock   *fakeClock
	store   storage.Backend
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return newHarnessWithStore(t, cfg, store)
}

func newHarnessWithStore(t *testing.T, cfg Config, store storage.Backend) *harness {
	t.Helper()
	gateway := &fakeGateway{}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := strikes.NewLedger(store, strikes.NewKeyedMutex(), cfg.Expiry)
	engine := NewEngine(cfg, ledger, gateway, audit.NewLogger(store, zap.NewNop()), nil, zap.NewNop())
	engine.WithClock(clock)
	engine.SetIdentity("bot", "")
	return &harness{engine: engine, gateway: gateway, clock: clock, store: store}
}

func (h *harness) warn(t *testing.T, weight float64) Outcome {
	t.Helper()
	outcome, err := h.engine.Warn(context.Background(), Subject{UserID: "u1", GuildID: "g1"}, "Watch your language!", weight, strikes.Note("test"))
	if err != nil {
		t.Fatalf("warn: %v", err)
	}
	h.clock.now = h.clock.now.Add(time.Minute)
	return outcome
}

func (h *harness) auditEvents(t *testing.T, event string) []storage.AuditLog {
	t.Helper()
	logs, err := h.store.ListAuditLogs(context.Background(), "g1", time.Time{})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	var matched []storage.AuditLog
	for _, entry := range logs {
		if entry.Event == event {
			matched = append(matched, entry)
		}
	}
	return matched
}

func TestDecideRoundsAndFloorsWeight(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		weight float64
		want   float64
	}{
		{0, 0.25},
		{0.1, 0.25},
		{1, 1},
		{1.1, 1},
		{1.2, 1.25},
		{2.6, 2.5},
	}
	for _, tc := range cases {
		if got := Decide(0, tc.weight, cfg).Added; got != tc.want {
			t.Fatalf("Decide(0, %v).Added = %v, want %v", tc.weight, got, tc.want)
		}
	}
}

func TestDecideStates(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		weight float64
		want   string
	}{
		{0, "Clean"},
		{1, "Warned"},
		{3, "Muted(1)"},
		{6.5, "Muted(2)"},
		{9, "Muted(3)"},
		{9.25, "LastChance"},
		{10, "LastChance"},
		{10.25, "Banned"},
	}
	for _, tc := range cases {
		if got := StateFor(tc.weight, cfg).String(); got != tc.want {
			t.Fatalf("StateFor(%v) = %s, want %s", tc.weight, got, tc.want)
		}
	}
}

func TestWarnEscalation(t *testing.T) {
	h := newHarness(t, testConfig())

	h.warn(t, 1)
	h.warn(t, 1)
	if len(h.gateway.timeouts) != 0 {
		t.Fatalf("expected no mute before the third strike, got %d", len(h.gateway.timeouts))
	}

	at := h.clock.now
	third := h.warn(t, 1)
	if third.Decision.MuteLength != 8 || len(h.gateway.timeouts) != 1 {
		t.Fatalf("expected 8 hour mute on third strike, got %+v", third.Decision)
	}
	if want := at.Add(8 * time.Hour); !h.gateway.timeouts[0].until.Equal(want) {
		t.Fatalf("expected mute until %s, got %s", want, h.gateway.timeouts[0].until)
	}

	fourth := h.warn(t, 1)
	if fourth.Decision.MuteLength != 0 || len(h.gateway.timeouts) != 1 {
		t.Fatalf("expected no additional mute on fourth strike, got %+v", fourth.Decision)
	}

	sixth := h.warn(t, 2)
	if sixth.Decision.MuteLength != 16 || len(h.gateway.timeouts) != 2 {
		t.Fatalf("expected 16 hour mute on reaching six, got %+v", sixth.Decision)
	}
	if sixth.Decision.State.String() != "Muted(2)" {
		t.Fatalf("expected Muted(2), got %s", sixth.Decision.State)
	}

	active, state, err := h.engine.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(active) != 5 || strikes.Total(active) != 6 || state.Kind != Muted {
		t.Fatalf("unexpected status %d strikes, total %v, %s", len(active), strikes.Total(active), state)
	}
	if len(h.auditEvents(t, "strike_issued")) != 5 {
		t.Fatalf("expected five strike_issued audit entries")
	}
}

func TestWarnBansPastThresholdRegardlessOfSplit(t *testing.T) {
	splits := [][]float64{
		{10, 0.25},
		{9, 1.25},
		{5, 5, 0.5},
		{11},
	}
	for _, split := range splits {
		h := newHarness(t, testConfig())
		var last Outcome
		for _, weight := range split {
			last = h.warn(t, weight)
		}
		if !last.Decision.Ban || len(h.gateway.bans) != 1 {
			t.Fatalf("split %v: expected ban, got %+v and %d bans", split, last.Decision, len(h.gateway.bans))
		}
		if final := h.gateway.dms[len(h.gateway.dms)-1]; final.Title == "This is your last chance" {
			t.Fatalf("split %v: banned user received a last chance notice", split)
		}
	}
}

func TestWarnLastChanceDeadline(t *testing.T) {
	h := newHarness(t, testConfig())
	first := h.clock.now
	h.warn(t, 9)

	h.clock.now = first.Add(2 * time.Hour)
	outcome := h.warn(t, 0.5)
	if !outcome.Decision.LastChance || outcome.Decision.Ban {
		t.Fatalf("expected last chance without ban, got %+v", outcome.Decision)
	}
	last := h.gateway.dms[len(h.gateway.dms)-1]
	want := fmt.Sprintf("<t:%d:D>", first.Add(21*24*time.Hour).Unix())
	if last.Title != "This is your last chance" || !strings.Contains(last.Description, want) {
		t.Fatalf("expected last chance notice with %s, got %+v", want, last)
	}
}

func TestWarnVerbalDisplayStrikes(t *testing.T) {
	h := newHarness(t, testConfig())
	for i := 0; i < 3; i++ {
		outcome := h.warn(t, 0)
		if outcome.Decision.DisplayStrikes != 0 {
			t.Fatalf("strike %d: expected verbal warning, got %d", i, outcome.Decision.DisplayStrikes)
		}
	}
	if !strings.Contains(h.gateway.dms[0].Title, "verbally warned") {
		t.Fatalf("expected verbal warning title, got %q", h.gateway.dms[0].Title)
	}
	if strings.Contains(h.gateway.dms[0].Footer, "Expiring") {
		t.Fatalf("verbal warning footer should not mention expiry: %q", h.gateway.dms[0].Footer)
	}
	fourth := h.warn(t, 0)
	if fourth.Decision.DisplayStrikes != 1 {
		t.Fatalf("expected quarter strikes to add up to one, got %d", fourth.Decision.DisplayStrikes)
	}
}

func TestWarnUsesEncodedLogMessageID(t *testing.T) {
	h := newHarness(t, testConfig())
	outcome := h.warn(t, 1)
	if outcome.Strike.ID == "" || strings.ContainsAny(outcome.Strike.ID, " ") {
		t.Fatalf("unexpected strike id %q", outcome.Strike.ID)
	}
	got, err := h.engine.Ledger().Get(context.Background(), outcome.Strike.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Count != 1 || got.Context.NoteText() != "test" {
		t.Fatalf("unexpected stored strike %+v", got)
	}
	if h.gateway.dms[0].AppealStrikeID != outcome.Strike.ID {
		t.Fatalf("expected appeal button for %s", outcome.Strike.ID)
	}
}

func TestWarnPersistenceFailurePropagates(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	h := newHarnessWithStore(t, testConfig(), failingStore{Backend: store})

	_, err = h.engine.Warn(context.Background(), Subject{UserID: "u1", GuildID: "g1"}, "reason", 11, strikes.Note(""))
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if len(h.gateway.bans) != 0 || len(h.gateway.dms) != 0 {
		t.Fatalf("expected no platform actions after failed append")
	}
}

func TestWarnLogFailurePropagates(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gateway.logErr = errors.New("missing access")
	if _, err := h.engine.Warn(context.Background(), Subject{UserID: "u1", GuildID: "g1"}, "reason", 1, strikes.Note("")); err == nil {
		t.Fatalf("expected log error")
	}
	all, err := h.engine.Ledger().All(context.Background(), "u1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no strike to be stored, got %d", len(all))
	}
}

func TestWarnAlertsOnPermissionFailure(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gateway.timeoutErr = errors.New("403 forbidden")
	outcome := h.warn(t, 3)
	if outcome.Decision.MuteLength != 8 {
		t.Fatalf("expected mute decision, got %+v", outcome.Decision)
	}
	alerts := h.auditEvents(t, "action_failed")
	if len(alerts) != 1 || alerts[0].Level != audit.LevelWarn {
		t.Fatalf("expected one warn alert, got %+v", alerts)
	}

	h.gateway.banErr = errors.New("403 forbidden")
	h.warn(t, 11)
	if len(h.auditEvents(t, "action_failed")) != 2 {
		t.Fatalf("expected ban failure alert")
	}
}

func TestWarnDoesNotBanProtectedMembersOutsideProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Production = false
	h := newHarness(t, cfg)

	outcome, err := h.engine.Warn(context.Background(), Subject{UserID: "u1", GuildID: "g1", HasRoles: true}, "reason", 11, strikes.ModeratorAction("m1"))
	if err != nil {
		t.Fatalf("warn: %v", err)
	}
	if !outcome.Decision.Ban || len(h.gateway.bans) != 0 {
		t.Fatalf("expected ban decision without ban, got %d bans", len(h.gateway.bans))
	}
	if len(h.auditEvents(t, "action_failed")) != 1 {
		t.Fatalf("expected alert for skipped ban")
	}
	if h.gateway.logs[0].ModeratorID != "m1" {
		t.Fatalf("expected moderator on strike log, got %q", h.gateway.logs[0].ModeratorID)
	}

	if _, err := h.engine.Warn(context.Background(), Subject{UserID: "u2", GuildID: "g1"}, "reason", 11, strikes.Note("")); err != nil {
		t.Fatalf("warn: %v", err)
	}
	if len(h.gateway.bans) != 1 || h.gateway.bans[0] != "u2" {
		t.Fatalf("expected unprotected member to be banned, got %v", h.gateway.bans)
	}
}

func TestRemoveAndRestore(t *testing.T) {
	h := newHarness(t, testConfig())
	outcome := h.warn(t, 1)
	ctx := context.Background()

	if _, changed, err := h.engine.Remove(ctx, "g1", outcome.Strike.ID, "m1"); err != nil || !changed {
		t.Fatalf("remove: changed=%v err=%v", changed, err)
	}
	if _, changed, err := h.engine.Remove(ctx, "g1", outcome.Strike.ID, "m1"); err != nil || changed {
		t.Fatalf("second remove: changed=%v err=%v", changed, err)
	}
	active, _, err := h.engine.Status(ctx, "u1")
	if err != nil || len(active) != 0 {
		t.Fatalf("expected no active strikes, got %d (%v)", len(active), err)
	}
	if _, changed, err := h.engine.Restore(ctx, "g1", outcome.Strike.ID, "m1"); err != nil || !changed {
		t.Fatalf("restore: changed=%v err=%v", changed, err)
	}
	if _, _, err := h.engine.Remove(ctx, "g1", "missing", "m1"); !errors.Is(err, strikes.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(h.auditEvents(t, "strike_removed")) != 1 || len(h.auditEvents(t, "strike_restored")) != 1 {
		t.Fatalf("expected one removal and one restore audit entry")
	}
}

func TestWarnDoesNotHoldLedgerLockWhileNotifying(t *testing.T) {
	h := newHarness(t, testConfig())
	h.gateway.dmStarted = make(chan struct{}, 2)
	h.gateway.dmRelease = make(chan struct{})
	subject := Subject{UserID: "u1", GuildID: "g1"}

	results := make(chan Outcome, 2)
	errs := make(chan error, 2)
	warn := func(reason string) {
		outcome, err := h.engine.Warn(context.Background(), subject, reason, 1, strikes.Note(reason))
		errs <- err
		results <- outcome
	}
	waitDM := func() {
		t.Helper()
		select {
		case <-h.gateway.dmStarted:
		case <-time.After(5 * time.Second):
			t.Fatalf("warn never reached its DM")
		}
	}

	go warn("first")
	waitDM()
	// the first DM is still pending; the second strike must not wait for it
	go warn("second")
	waitDM()

	active, err := h.engine.Ledger().Active(context.Background(), "u1", h.clock.now)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected both strikes recorded while DMs are pending, got %d", len(active))
	}

	close(h.gateway.dmRelease)
	var totals []float64
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("warn: %v", err)
		}
		totals = append(totals, (<-results).Decision.NewWeight)
	}
	if totals[0]+totals[1] != 3 {
		t.Fatalf("expected totals 1 and 2, got %v", totals)
	}
}

func TestSetIdentityOnReconnect(t *testing.T) {
	h := newHarness(t, testConfig())
	h.engine.SetIdentity("bot", "Guild")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			// reconnects before the guild is cached carry no name
			h.engine.SetIdentity("bot", "")
		}
	}()
	h.warn(t, 1)
	<-done

	if got := h.gateway.logs[0].ModeratorID; got != "bot" {
		t.Fatalf("expected bot as moderator of an automod strike, got %q", got)
	}
	h.warn(t, 1)
	if title := h.gateway.dms[len(h.gateway.dms)-1].Title; title != "You were warned in Guild!" {
		t.Fatalf("expected guild name kept across reconnects, got %q", title)
	}
}
