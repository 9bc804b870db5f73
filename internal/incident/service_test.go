package incident

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/incidentdesk/internal/models"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store *storage.SQLStorage
	svc   *Service
	clock time.Time
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "incidents.db"))
	ctx := context.Background()
	if err := store.Open(ctx); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	env := &testEnv{store: store, clock: baseTime}
	opts := DefaultOptions()
	opts.Now = func() time.Time { return env.clock }
	env.svc = NewService(store, opts)
	return env
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func (e *testEnv) createIncident(t *testing.T, title string, sev models.Severity, status models.Status, occurred time.Time) *models.Incident {
	t.Helper()
	inc, err := e.svc.CreateIncident(context.Background(), NewIncident{
		Title:      title,
		Severity:   sev,
		Status:     status,
		OccurredAt: occurred,
	}, Actor{Name: "seed"})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	return inc
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := models.NewUser(username, username+"@example.com", "", models.RoleIncidentManager)
	u.PasswordHash = "hash"
	u.Salt = "salt"
	if err := e.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) timeline(t *testing.T, id int64) []models.TimelineEvent {
	t.Helper()
	events, err := e.store.Incidents().Timeline(context.Background(), id)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	return events
}

func infoOf(inc *models.Incident) InfoUpdate {
	return InfoUpdate{
		Title:       inc.Title,
		Description: inc.Description,
		Status:      inc.Status,
		Severity:    inc.Severity,
		RootCause:   inc.RootCause,
		Impact:      inc.Impact,
	}
}

func TestActor_Label(t *testing.T) {
	id := int64(7)
	tests := []struct {
		name  string
		actor Actor
		want  string
	}{
		{"name wins", Actor{UserID: &id, Name: "Jane Doe"}, "Jane Doe"},
		{"id fallback", Actor{UserID: &id}, "User 7"},
		{"blank name", Actor{UserID: &id, Name: "  "}, "User 7"},
		{"anonymous", Actor{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateIncident(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	inc := env.createIncident(t, "  API down  ", models.SeverityCritical, "", time.Time{})
	if inc.ID == 0 || inc.Title != "API down" || inc.Status != models.StatusOpen {
		t.Errorf("unexpected incident: %+v", inc)
	}
	if !inc.OccurredAt.Equal(baseTime) {
		t.Errorf("OccurredAt should default to now, got %v", inc.OccurredAt)
	}

	events := env.timeline(t, inc.ID)
	if len(events) != 1 || events[0].Description != "Incident created" || events[0].Author != "seed" {
		t.Errorf("unexpected creation events: %+v", events)
	}

	if _, err := env.svc.CreateIncident(ctx, NewIncident{Title: "", Severity: models.SeverityLow}, Actor{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty title: expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.svc.CreateIncident(ctx, NewIncident{Title: "x", Severity: "Severe"}, Actor{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad severity: expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.svc.CreateIncident(ctx, NewIncident{Title: "x", Severity: models.SeverityLow, TagIDs: []int64{42}}, Actor{}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("unknown tag: expected ErrUnknownTag, got %v", err)
	}
}

func TestCreateIncident_SettledStampsResolution(t *testing.T) {
	env := setupService(t)
	user := env.createUser(t, "closer")

	inc, err := env.svc.CreateIncident(context.Background(), NewIncident{
		Title:    "Already fixed",
		Severity: models.SeverityLow,
		Status:   models.StatusClosed,
	}, ActorFor(user.ID, ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inc.ResolvedAt == nil || inc.ResolvedBy == nil || *inc.ResolvedBy != user.ID {
		t.Errorf("settled incident should carry resolution: %+v", inc)
	}
}

func TestUpdateIncidentInfo_NoChanges(t *testing.T) {
	env := setupService(t)
	inc := env.createIncident(t, "Stable", models.SeverityMedium, models.StatusOpen, baseTime)

	ok, err := env.svc.UpdateIncidentInfo(context.Background(), inc.ID, infoOf(inc), Actor{Name: "x"})
	if err != nil || !ok {
		t.Fatalf("UpdateIncidentInfo = %v, %v", ok, err)
	}
	if events := env.timeline(t, inc.ID); len(events) != 1 {
		t.Errorf("no-op update should not append events, got %d", len(events))
	}
}

func TestUpdateIncidentInfo_Diff(t *testing.T) {
	env := setupService(t)
	inc := env.createIncident(t, "A", models.SeverityLow, models.StatusOpen, baseTime)
	env.advance(time.Minute)

	update := infoOf(inc)
	update.Title = "B"
	update.Severity = models.SeverityHigh

	ok, err := env.svc.UpdateIncidentInfo(context.Background(), inc.ID, update, Actor{Name: "Jane"})
	if err != nil || !ok {
		t.Fatalf("UpdateIncidentInfo = %v, %v", ok, err)
	}

	events := env.timeline(t, inc.ID)[1:]
	if len(events) != 2 {
		t.Fatalf("expected 2 change events, got %d: %+v", len(events), events)
	}
	if events[0].Description != "Title changed: A → B" {
		t.Errorf("event 0 = %q", events[0].Description)
	}
	if events[1].Description != "Severity changed: Low → High" {
		t.Errorf("event 1 = %q", events[1].Description)
	}
	if !events[0].OccurredAt.Equal(events[1].OccurredAt) || !events[0].OccurredAt.Equal(env.clock) {
		t.Errorf("events should share the same timestamp: %v, %v", events[0].OccurredAt, events[1].OccurredAt)
	}
	for _, ev := range events {
		if ev.Author != "Jane" {
			t.Errorf("author = %q, want Jane", ev.Author)
		}
	}

	got, _ := env.store.Incidents().GetByID(context.Background(), inc.ID)
	if got.Title != "B" || got.Severity != models.SeverityHigh {
		t.Errorf("changes not persisted: %+v", got)
	}
}

func TestUpdateIncidentInfo_TextFieldsNotEchoed(t *testing.T) {
	env := setupService(t)
	inc := env.createIncident(t, "Leak", models.SeverityLow, models.StatusOpen, baseTime)

	update := infoOf(inc)
	update.Description = "secret details"
	update.RootCause = "expired cert"
	update.Impact = "all logins"
	if _, err := env.svc.UpdateIncidentInfo(context.Background(), inc.ID, update, Actor{}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var got []string
	for _, ev := range env.timeline(t, inc.ID)[1:] {
		got = append(got, ev.Description)
		if ev.Author != "" {
			t.Errorf("anonymous actor should leave author empty, got %q", ev.Author)
		}
	}
	want := "Description updated|Root cause updated|Impact updated"
	if strings.Join(got, "|") != want {
		t.Errorf("notes = %v, want %s", got, want)
	}
}

func TestUpdateIncidentInfo_Resolution(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	user := env.createUser(t, "resolver")
	actor := ActorFor(user.ID, "")
	inc := env.createIncident(t, "Outage", models.SeverityHigh, models.StatusOpen, baseTime)

	update := infoOf(inc)
	update.Status = models.StatusResolved
	env.advance(time.Hour)
	if _, err := env.svc.UpdateIncidentInfo(ctx, inc.ID, update, actor); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ := env.store.Incidents().GetByID(ctx, inc.ID)
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(env.clock) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, env.clock)
	}
	if got.ResolvedBy == nil || *got.ResolvedBy != user.ID {
		t.Errorf("ResolvedBy = %v, want %d", got.ResolvedBy, user.ID)
	}
	resolvedAt := *got.ResolvedAt

	// Resolved -> Closed keeps the original resolution time.
	update.Status = models.StatusClosed
	env.advance(time.Hour)
	if _, err := env.svc.UpdateIncidentInfo(ctx, inc.ID, update, actor); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, _ = env.store.Incidents().GetByID(ctx, inc.ID)
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("ResolvedAt should be kept, got %v", got.ResolvedAt)
	}

	update.Status = models.StatusOpen
	if _, err := env.svc.UpdateIncidentInfo(ctx, inc.ID, update, actor); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, _ = env.store.Incidents().GetByID(ctx, inc.ID)
	if got.ResolvedAt != nil || got.ResolvedBy != nil {
		t.Errorf("reopen should clear resolution: %+v", got)
	}

	events := env.timeline(t, inc.ID)
	last := events[len(events)-1]
	if last.Description != "Status changed: Closed → Open" || last.Author != "User "+itoa(user.ID) {
		t.Errorf("unexpected last event: %+v", last)
	}
}

func TestUpdateIncidentInfo_NotFoundAndInvalid(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	ok, err := env.svc.UpdateIncidentInfo(ctx, 999, InfoUpdate{Title: "x", Status: models.StatusOpen, Severity: models.SeverityLow}, Actor{})
	if err != nil || ok {
		t.Errorf("missing incident: got %v, %v; want false, nil", ok, err)
	}

	_, err = env.svc.UpdateIncidentInfo(ctx, 1, InfoUpdate{Title: "x", Status: "Done", Severity: models.SeverityLow}, Actor{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad status: expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateIncidentInfo_CanceledContext(t *testing.T) {
	env := setupService(t)
	inc := env.createIncident(t, "Ctx", models.SeverityLow, models.StatusOpen, baseTime)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	update := infoOf(inc)
	update.Title = "changed"
	_, err := env.svc.UpdateIncidentInfo(ctx, inc.ID, update, Actor{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestUpdateIncidentTags(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	tags := map[string]*models.Tag{}
	for _, name := range []string{"network", "database", "auth"} {
		tag, err := env.svc.CreateTag(ctx, name, "")
		if err != nil {
			t.Fatalf("create tag: %v", err)
		}
		tags[name] = tag
	}

	inc, err := env.svc.CreateIncident(ctx, NewIncident{
		Title:    "Tagged",
		Severity: models.SeverityLow,
		TagIDs:   []int64{tags["auth"].ID},
	}, Actor{})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}

	ok, err := env.svc.UpdateIncidentTags(ctx, inc.ID,
		[]int64{tags["network"].ID, tags["database"].ID, tags["network"].ID}, Actor{Name: "Ops"})
	if err != nil || !ok {
		t.Fatalf("UpdateIncidentTags = %v, %v", ok, err)
	}

	events := env.timeline(t, inc.ID)[1:]
	if len(events) != 1 {
		t.Fatalf("expected one tag event, got %d", len(events))
	}
	if want := "Tags added: database, network; Tags removed: auth"; events[0].Description != want {
		t.Errorf("note = %q, want %q", events[0].Description, want)
	}

	got, _ := env.store.Tags().ListForIncident(ctx, inc.ID)
	if len(got) != 2 {
		t.Errorf("expected 2 tags attached, got %d", len(got))
	}

	// Same set again is a no-op.
	ok, err = env.svc.UpdateIncidentTags(ctx, inc.ID, []int64{tags["database"].ID, tags["network"].ID}, Actor{})
	if err != nil || !ok {
		t.Fatalf("no-op UpdateIncidentTags = %v, %v", ok, err)
	}
	if n := len(env.timeline(t, inc.ID)); n != 2 {
		t.Errorf("no-op tag update appended events: %d", n)
	}

	// Removal only.
	if _, err := env.svc.UpdateIncidentTags(ctx, inc.ID, []int64{tags["database"].ID}, Actor{}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	events = env.timeline(t, inc.ID)
	if last := events[len(events)-1].Description; last != "Tags removed: network" {
		t.Errorf("removal note = %q", last)
	}

	if _, err := env.svc.UpdateIncidentTags(ctx, inc.ID, []int64{777}, Actor{}); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("unknown tag: expected ErrUnknownTag, got %v", err)
	}
	if ok, err := env.svc.UpdateIncidentTags(ctx, 999, nil, Actor{}); ok || err != nil {
		t.Errorf("missing incident: got %v, %v", ok, err)
	}
}

func TestGetIncidentsPaged_OrderAndFilters(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	env.createIncident(t, "low", models.SeverityLow, models.StatusOpen, baseTime)
	env.createIncident(t, "critical", models.SeverityCritical, models.StatusOpen, baseTime)
	env.createIncident(t, "high", models.SeverityHigh, models.StatusOpen, baseTime)

	page, err := env.svc.GetIncidentsPaged(ctx, ListQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var titles []string
	for _, inc := range page.Items {
		titles = append(titles, inc.Title)
	}
	if strings.Join(titles, ",") != "critical,high,low" {
		t.Errorf("order = %v", titles)
	}

	env.createIncident(t, "resolved", models.SeverityCritical, models.StatusResolved, baseTime)
	env.createIncident(t, "closed", models.SeverityCritical, models.StatusClosed, baseTime)

	page, _ = env.svc.GetIncidentsPaged(ctx, ListQuery{})
	if page.TotalCount != 4 || hasTitle(page, "resolved") || !hasTitle(page, "closed") {
		t.Errorf("default listing should hide Resolved only: %d items", page.TotalCount)
	}

	page, _ = env.svc.GetIncidentsPaged(ctx, ListQuery{ShowResolved: true})
	if page.TotalCount != 5 {
		t.Errorf("show resolved: total = %d, want 5", page.TotalCount)
	}

	resolved := models.StatusResolved
	page, _ = env.svc.GetIncidentsPaged(ctx, ListQuery{Status: &resolved})
	if page.TotalCount != 1 || !hasTitle(page, "resolved") {
		t.Errorf("explicit status filter should win over hiding: %+v", page)
	}

	high := models.SeverityHigh
	page, _ = env.svc.GetIncidentsPaged(ctx, ListQuery{Severity: &high})
	if page.TotalCount != 1 || page.Items[0].Title != "high" {
		t.Errorf("severity filter: %+v", page)
	}
}

func TestGetIncidentsPaged_TagsAnyOf(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	a, _ := env.svc.CreateTag(ctx, "a", "")
	b, _ := env.svc.CreateTag(ctx, "b", "")

	for _, tc := range []struct {
		title string
		tags  []int64
	}{
		{"only-a", []int64{a.ID}},
		{"only-b", []int64{b.ID}},
		{"none", nil},
	} {
		if _, err := env.svc.CreateIncident(ctx, NewIncident{Title: tc.title, Severity: models.SeverityLow, TagIDs: tc.tags}, Actor{}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := env.svc.GetIncidentsPaged(ctx, ListQuery{TagIDs: []int64{a.ID, b.ID}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 2 || !hasTitle(page, "only-a") || !hasTitle(page, "only-b") {
		t.Errorf("tag filter should match any of the tags: %+v", page)
	}
}

func TestGetIncidentsPaged_Paging(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		env.createIncident(t, "inc"+itoa(int64(i)), models.SeverityLow, models.StatusOpen, baseTime.Add(time.Duration(i)*time.Minute))
	}

	tests := []struct {
		name      string
		page      int
		size      int
		wantPage  int
		wantSize  int
		wantItems int
		wantPages int
	}{
		{"defaults", 0, 0, 1, 20, 5, 1},
		{"second page", 2, 2, 2, 2, 2, 3},
		{"last page", 3, 2, 3, 2, 1, 3},
		{"past the end", 9, 2, 9, 2, 0, 3},
		{"capped size", 1, 500, 1, 100, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.svc.GetIncidentsPaged(ctx, ListQuery{Page: tt.page, PageSize: tt.size})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.Page != tt.wantPage || page.PageSize != tt.wantSize || len(page.Items) != tt.wantItems || page.TotalPages != tt.wantPages {
				t.Errorf("got page=%d size=%d items=%d pages=%d", page.Page, page.PageSize, len(page.Items), page.TotalPages)
			}
			if page.TotalCount != 5 {
				t.Errorf("TotalCount = %d", page.TotalCount)
			}
		})
	}

	page, _ := env.svc.GetIncidentsPaged(ctx, ListQuery{PageSize: 2})
	if page.Items[0].Title != "inc4" || page.Items[1].Title != "inc3" {
		t.Errorf("same severity/status should list newest first: %s, %s", page.Items[0].Title, page.Items[1].Title)
	}
}

func TestGetIncident_LoadsRelations(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	tag, _ := env.svc.CreateTag(ctx, "infra", "#00FF00")
	inc, _ := env.svc.CreateIncident(ctx, NewIncident{Title: "Full", Severity: models.SeverityHigh, TagIDs: []int64{tag.ID}}, Actor{})
	if _, err := env.svc.CreateActionItem(ctx, NewActionItem{IncidentID: &inc.ID, Title: "Add alert"}, Actor{Name: "Ops"}); err != nil {
		t.Fatalf("create action item: %v", err)
	}

	got, err := env.svc.GetIncident(ctx, inc.ID)
	if err != nil || got == nil {
		t.Fatalf("GetIncident = %v, %v", got, err)
	}
	if len(got.Tags) != 1 || got.Tags[0].Color != "#00ff00" {
		t.Errorf("tags = %+v", got.Tags)
	}
	if len(got.ActionItems) != 1 || got.ActionItems[0].Priority != models.PriorityMedium {
		t.Errorf("action items = %+v", got.ActionItems)
	}
	if len(got.Timeline) != 2 || got.Timeline[1].Description != "Action item added: Add alert" {
		t.Errorf("timeline = %+v", got.Timeline)
	}

	missing, err := env.svc.GetIncident(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("missing incident: %v, %v", missing, err)
	}
}

func TestAddTimelineEventAndDelete(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	inc := env.createIncident(t, "Notes", models.SeverityLow, models.StatusOpen, baseTime)

	ok, err := env.svc.AddTimelineEvent(ctx, inc.ID, baseTime.Add(-time.Hour), "First alert fired", Actor{Name: "pager"})
	if err != nil || !ok {
		t.Fatalf("AddTimelineEvent = %v, %v", ok, err)
	}
	events := env.timeline(t, inc.ID)
	if len(events) != 2 || events[0].Description != "First alert fired" {
		t.Errorf("timeline should be ordered by time: %+v", events)
	}

	if _, err := env.svc.AddTimelineEvent(ctx, inc.ID, time.Time{}, "   ", Actor{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank note: expected ErrInvalidInput, got %v", err)
	}
	if ok, err := env.svc.AddTimelineEvent(ctx, 999, time.Time{}, "x", Actor{}); ok || err != nil {
		t.Errorf("missing incident: %v, %v", ok, err)
	}

	ok, err = env.svc.DeleteIncident(ctx, inc.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteIncident = %v, %v", ok, err)
	}
	if events := env.timeline(t, inc.ID); len(events) != 0 {
		t.Errorf("timeline should cascade, got %d", len(events))
	}
	if ok, _ := env.svc.DeleteIncident(ctx, inc.ID); ok {
		t.Error("second delete should report false")
	}
}

func TestActionItems(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	loose, err := env.svc.CreateActionItem(ctx, NewActionItem{Title: "Rotate keys", Priority: models.PriorityHigh}, Actor{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if loose.Status != models.ActionOpen || loose.CompletedAt != nil {
		t.Errorf("unexpected new item: %+v", loose)
	}

	env.advance(time.Hour)
	done, err := env.svc.UpdateActionItemStatus(ctx, loose.ID, "completed")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != models.ActionCompleted || done.CompletedAt == nil || !done.CompletedAt.Equal(env.clock) {
		t.Errorf("completion not stamped: %+v", done)
	}

	reopened, err := env.svc.UpdateActionItemStatus(ctx, loose.ID, "in_progress")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != models.ActionInProgress || reopened.CompletedAt != nil {
		t.Errorf("reopen should clear completion: %+v", reopened)
	}

	if _, err := env.svc.UpdateActionItemStatus(ctx, loose.ID, "finished"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad status: expected ErrInvalidInput, got %v", err)
	}
	if item, err := env.svc.UpdateActionItemStatus(ctx, 999, models.ActionOpen); item != nil || err != nil {
		t.Errorf("missing item: %v, %v", item, err)
	}

	missing := int64(999)
	if _, err := env.svc.CreateActionItem(ctx, NewActionItem{IncidentID: &missing, Title: "x"}, Actor{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown incident: expected ErrInvalidInput, got %v", err)
	}

	unassigned, _ := env.svc.ListUnassignedActionItems(ctx)
	if len(unassigned) != 1 {
		t.Errorf("unassigned = %d, want 1", len(unassigned))
	}

	ok, err := env.svc.DeleteActionItem(ctx, loose.ID)
	if err != nil || !ok {
		t.Errorf("delete = %v, %v", ok, err)
	}
	all, _ := env.svc.ListActionItems(ctx, nil)
	if len(all) != 0 {
		t.Errorf("items left after delete: %d", len(all))
	}
}

func TestTagsAndTemplates(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	if _, err := env.svc.CreateTag(ctx, "db", "red"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad color: expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.svc.CreateTag(ctx, "db", ""); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := env.svc.CreateTag(ctx, "db", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate tag: expected ErrConflict, got %v", err)
	}

	tmpl := &models.Template{Name: "outage", Title: "Service outage", Severity: models.SeverityCritical}
	if err := env.svc.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	if err := env.svc.CreateTemplate(ctx, &models.Template{Name: "outage", Title: "x", Severity: models.SeverityLow}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate template: expected ErrConflict, got %v", err)
	}

	inc, err := env.svc.CreateFromTemplate(ctx, tmpl.ID, time.Time{}, Actor{})
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}
	if inc.Title != "Service outage" || inc.Severity != models.SeverityCritical {
		t.Errorf("template not applied: %+v", inc)
	}
	if _, err := env.svc.CreateFromTemplate(ctx, 999, time.Time{}, Actor{}); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("missing template: expected ErrTemplateNotFound, got %v", err)
	}
}

func hasTitle(page *Page, title string) bool {
	for _, inc := range page.Items {
		if inc.Title == title {
			return true
		}
	}
	return false
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
