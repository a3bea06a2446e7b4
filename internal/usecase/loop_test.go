package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"steelloop/internal/domain"
	"steelloop/internal/infrastructure/carousel"
	"steelloop/internal/infrastructure/extract"
	"steelloop/internal/infrastructure/storage"
	"steelloop/internal/lifecycle"
	"steelloop/internal/orchestrator"
	"steelloop/internal/ports"
	"steelloop/internal/stages"
	"steelloop/internal/testsupport"
)

const (
	owner       = "user-1"
	forensicOut = "Brief: costs fell 42% in 6 months after the audit."
	hooksOut    = "1. Cut costs 42%\n2. Too long a sentence that clearly exceeds twelve words in total count\n3. \"Quoted hook\""
	draftsOut   = "```json\n" + `{
  "short_post": "We cut costs by 42% in 6 months. Nobody expected the audit to fail.",
  "medium_post": "Medium post body.",
  "long_post": "Long post body.",
  "carousel_slides": [
    {"headline": "The audit", "content": "It failed."},
    {"headline": "The fix", "content": "Costs fell **42%**."}
  ]
}` + "\n```"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// fakeGenerator answers by stage, told apart by the default token limits.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts map[int][]string
	outputs map[int]string
	errs    map[int]error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		prompts: map[int][]string{},
		outputs: map[int]string{4000: forensicOut, 2000: hooksOut, 6000: draftsOut},
		errs:    map[int]error{},
	}
}

func (g *fakeGenerator) Generate(_ context.Context, prompt, _ string, maxTokens int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts[maxTokens] = append(g.prompts[maxTokens], prompt)
	if err := g.errs[maxTokens]; err != nil {
		return "", err
	}
	return g.outputs[maxTokens], nil
}

func (g *fakeGenerator) set(maxTokens int, out string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[maxTokens] = out
}

func (g *fakeGenerator) calls(maxTokens int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts[maxTokens]...)
}

type fakeDrive struct {
	mu        sync.Mutex
	files     []ports.RemoteFile
	bodies    map[string]string
	refreshes int
	downloads []string
}

func (d *fakeDrive) ListFolder(_ context.Context, conn domain.CloudConnection, _ string) ([]ports.RemoteFile, error) {
	if conn.AccessToken != "fresh-token" {
		return nil, orchestrator.Permanent(errors.New("stale token used"))
	}
	return d.files, nil
}

func (d *fakeDrive) Download(_ context.Context, _ domain.CloudConnection, fileID string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.downloads = append(d.downloads, fileID)
	return io.NopCloser(strings.NewReader(d.bodies[fileID])), nil
}

func (d *fakeDrive) RefreshToken(_ context.Context, conn domain.CloudConnection) (domain.CloudConnection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	conn.AccessToken = "fresh-token"
	conn.TokenExpiry = fixedNow.Add(time.Hour)
	return conn, nil
}

type fakePublisher struct {
	err      error
	contents []string
}

func (p *fakePublisher) Publish(_ context.Context, _ domain.SocialAccount, content string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.contents = append(p.contents, content)
	return "msg-77", nil
}

type harness struct {
	store  *storage.Store
	engine *orchestrator.Engine
	loop   *Loop
	gen    *fakeGenerator
	drive  *fakeDrive
	pub    *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := testsupport.MustOpenStore(t)
	engine := orchestrator.New(store,
		orchestrator.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		orchestrator.WithRetryPolicy(orchestrator.RetryPolicy{StepAttempts: 2}))

	h := &harness{
		store:  store,
		engine: engine,
		gen:    newFakeGenerator(),
		drive: &fakeDrive{
			files: []ports.RemoteFile{
				{ID: "f-txt", Name: "notes.txt", MimeType: "text/plain"},
				{ID: "f-html", Name: "page.html", MimeType: "text/html"},
				{ID: "f-pdf", Name: "report.pdf", MimeType: "application/pdf"},
				{ID: "f-img", Name: "photo.png", MimeType: "image/png"},
				{ID: "f-zip", Name: "bundle.zip", MimeType: "application/zip"},
			},
			bodies: map[string]string{
				"f-txt":  "Quarterly notes: churn fell.",
				"f-html": "<html><body><p>Revenue grew 12% in 6 months.</p></body></html>",
				"f-pdf":  "%PDF-1.7",
			},
		},
		pub: &fakePublisher{},
	}
	h.loop = NewLoop(Deps{
		Projects:  store,
		Files:     store,
		Items:     store,
		Sparks:    store,
		Drafts:    store,
		Vaults:    store,
		Accounts:  store,
		Drive:     h.drive,
		Extractor: extract.NewRegistry(),
		Publisher: h.pub,
		Carousel:  carousel.NewRenderer(),
		Stages:    stages.NewRunner(h.gen, stages.MaxTokens{}, nil),
		Events:    engine,
		Clock:     func() time.Time { return fixedNow },
	})
	if err := h.loop.Register(engine); err != nil {
		t.Fatalf("register jobs: %v", err)
	}
	return h
}

// drain dispatches until no event is pending.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for range 20 {
		n, err := h.engine.DispatchOnce(context.Background())
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if n == 0 {
			return
		}
	}
	t.Fatal("events still pending after 20 dispatch rounds")
}

func (h *harness) linkedProject(t *testing.T) domain.Project {
	t.Helper()
	ctx := context.Background()
	project, err := h.loop.CreateProject(ctx, owner, "Q2 review")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project, err = h.loop.LinkFolder(ctx, owner, project.ID, domain.ProviderGoogleDrive, "folder-1"); err != nil {
		t.Fatalf("link folder: %v", err)
	}
	if err := h.loop.ConnectDrive(ctx, domain.CloudConnection{
		UserID:       owner,
		Provider:     domain.ProviderGoogleDrive,
		AccessToken:  "old-token",
		RefreshToken: "refresh",
		TokenExpiry:  fixedNow.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("connect drive: %v", err)
	}
	return project
}

func TestSteelLoopEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	project := h.linkedProject(t)

	item, err := h.loop.TriggerIngestion(ctx, owner, project.ID)
	if err != nil {
		t.Fatalf("trigger ingestion: %v", err)
	}
	if item.Status != domain.ItemScouting {
		t.Fatalf("expected scouting item, got %s", item.Status)
	}
	h.drain(t)

	// Token expired inside the buffer, so it was refreshed and persisted.
	conn, err := h.store.GetConnection(ctx, owner, domain.ProviderGoogleDrive)
	if err != nil {
		t.Fatalf("get connection: %v", err)
	}
	if h.drive.refreshes != 1 || conn.AccessToken != "fresh-token" {
		t.Fatalf("expected one refresh, got %d (token %q)", h.drive.refreshes, conn.AccessToken)
	}

	files, err := h.store.ListFiles(ctx, project.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	withText := 0
	for _, f := range files {
		if f.ExtractedText != nil {
			withText++
		}
	}
	if len(files) != 4 || withText != 2 {
		t.Fatalf("expected 4 files with 2 extracted, got %d/%d", len(files), withText)
	}
	if forensic := h.gen.calls(4000); len(forensic) != 1 || !strings.Contains(forensic[0], "Revenue grew 12% in 6 months.") {
		t.Fatalf("unexpected forensic prompts %q", forensic)
	}

	detail, err := h.loop.Item(ctx, owner, item.ID)
	if err != nil {
		t.Fatalf("item: %v", err)
	}
	if detail.Item.Status != domain.ItemSparksGenerated || detail.Item.Brief() != forensicOut {
		t.Fatalf("unexpected item %+v", detail.Item)
	}
	if len(detail.Sparks) != 2 || detail.Sparks[0].Text != "Cut costs 42%" || detail.Sparks[1].Text != "Quoted hook" {
		t.Fatalf("unexpected sparks %+v", detail.Sparks)
	}
	if detail.Sparks[0].SortOrder != 1 || detail.Sparks[1].SortOrder != 2 {
		t.Fatalf("unexpected sort order %+v", detail.Sparks)
	}
	if p, _ := h.store.GetProject(ctx, project.ID); p.Status != domain.ProjectReady {
		t.Fatalf("expected ready project, got %s", p.Status)
	}

	if _, err := h.loop.ApproveSpark(ctx, owner, detail.Sparks[0].ID); err != nil {
		t.Fatalf("approve spark: %v", err)
	}
	if _, err := h.loop.RejectSpark(ctx, owner, detail.Sparks[1].ID); err != nil {
		t.Fatalf("reject spark: %v", err)
	}
	h.drain(t)

	drafts, err := h.loop.SparkDrafts(ctx, owner, detail.Sparks[0].ID)
	if err != nil {
		t.Fatalf("spark drafts: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	for i, lengthType := range domain.LengthTypes() {
		d := drafts[i]
		if d.Draft.LengthType != lengthType || d.Draft.Score == nil || d.Draft.Status != domain.DraftDraft {
			t.Fatalf("unexpected draft %+v", d.Draft)
		}
		if len(d.Slides) != 2 || d.Slides[1].SlideNumber != 2 {
			t.Fatalf("unexpected slides for %s: %+v", lengthType, d.Slides)
		}
	}
	if spark, _ := h.store.GetSpark(ctx, detail.Sparks[0].ID); spark.Status != domain.SparkDrafted {
		t.Fatalf("expected drafted spark, got %s", spark.Status)
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemReady {
		t.Fatalf("expected ready item, got %s", got.Status)
	}

	short := drafts[0].Draft
	if _, err := h.loop.ApproveDraft(ctx, owner, short.ID); err != nil {
		t.Fatalf("approve draft: %v", err)
	}
	h.drain(t)
	if d, _ := h.store.GetDraft(ctx, short.ID); !strings.Contains(d.CarouselHTML, "<strong>42%</strong>") {
		t.Fatalf("carousel not rendered: %q", d.CarouselHTML)
	}

	if err := h.loop.LinkSocialAccount(ctx, domain.SocialAccount{
		UserID: owner, Provider: domain.SocialProviderTelegram, ExternalAccountID: "@steel",
	}); err != nil {
		t.Fatalf("link social account: %v", err)
	}
	published, err := h.loop.PublishDraft(ctx, owner, short.ID, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != domain.DraftPublished || published.ExternalPostID != "msg-77" {
		t.Fatalf("unexpected published draft %+v", published)
	}
	if published.PublishedAt == nil || !published.PublishedAt.Equal(fixedNow) {
		t.Fatalf("unexpected published at %v", published.PublishedAt)
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemPublished {
		t.Fatalf("expected published item, got %s", got.Status)
	}

	runs, err := h.store.ListRuns(ctx, 20)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.Status != orchestrator.RunCompleted {
			t.Fatalf("run %s is %s: %s", run.Job, run.Status, run.Error)
		}
	}
}

func TestSparkDecisionsAndItemStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	project := testsupport.NewProject(t, h.store, owner, "p")
	item := testsupport.NewItem(t, h.store, project, domain.ItemSparksGenerated)
	sparks := testsupport.NewSparks(t, h.store, item.ID, "one", "two", "three")

	rejected, err := h.loop.RejectSpark(ctx, owner, sparks[0].ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.SparkRejected {
		t.Fatalf("expected rejected spark, got %s", rejected.Status)
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemSparksGenerated {
		t.Fatalf("reject changed item status to %s", got.Status)
	}
	if _, err := h.loop.ApproveSpark(ctx, owner, sparks[0].ID); !errors.Is(err, lifecycle.ErrIllegalTransition) {
		t.Fatalf("expected rejected spark to stay terminal, got %v", err)
	}

	approved, err := h.loop.ApproveSpark(ctx, owner, sparks[1].ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.SparkApproved {
		t.Fatalf("expected approved spark, got %s", approved.Status)
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemDrafting {
		t.Fatalf("expected drafting item, got %s", got.Status)
	}
	if _, err := h.loop.ApproveSpark(ctx, owner, sparks[2].ID); err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemDrafting {
		t.Fatalf("second approval moved item to %s", got.Status)
	}
	if pending, _ := h.store.PendingEvents(ctx); pending != 2 {
		t.Fatalf("expected 2 draft-expansion events, got %d", pending)
	}

	if _, err := h.loop.ApproveSpark(ctx, "someone-else", sparks[2].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign spark, got %v", err)
	}
}

func TestReapprovedSparkIsExpandedOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	project := testsupport.NewProject(t, h.store, owner, "p")
	item := testsupport.NewItem(t, h.store, project, domain.ItemSparksGenerated)
	if _, err := h.store.SetForensicBrief(ctx, item.ID, forensicOut); err != nil {
		t.Fatalf("set brief: %v", err)
	}
	sparks := testsupport.NewSparks(t, h.store, item.ID, "hook")

	for i := 0; i < 2; i++ {
		if _, err := h.loop.ApproveSpark(ctx, owner, sparks[0].ID); err != nil {
			t.Fatalf("approve %d: %v", i, err)
		}
	}
	if pending, _ := h.store.PendingEvents(ctx); pending != 1 {
		t.Fatalf("expected 1 draft-expansion event, got %d", pending)
	}
	h.drain(t)

	first, err := h.store.ListDrafts(ctx, sparks[0].ID)
	if err != nil || len(first) != 3 {
		t.Fatalf("expected 3 drafts, got %d (%v)", len(first), err)
	}

	// A redelivery under another id finds the spark drafted and leaves the
	// drafts alone.
	if _, err := h.engine.Send(ctx, EventDraftExpansion, DraftExpansionPayload{
		SparkID: sparks[0].ID, PipelineItemID: item.ID, UserID: owner,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	h.drain(t)

	if calls := h.gen.calls(6000); len(calls) != 1 {
		t.Fatalf("expected one draft generation, got %d", len(calls))
	}
	again, _ := h.store.ListDrafts(ctx, sparks[0].ID)
	for i := range first {
		if again[i].ID != first[i].ID || !again[i].UpdatedAt.Equal(first[i].UpdatedAt) {
			t.Fatalf("draft %s rewritten", first[i].ID)
		}
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemReady {
		t.Fatalf("expected ready item, got %s", got.Status)
	}
}

func TestDraftExpansionWithoutBriefMarksItemError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	project := testsupport.NewProject(t, h.store, owner, "p")
	item := testsupport.NewItem(t, h.store, project, domain.ItemDrafting)
	sparks := testsupport.NewSparks(t, h.store, item.ID, "hook")
	if err := h.store.TransitionSpark(ctx, sparks[0].ID, domain.SparkApproved); err != nil {
		t.Fatalf("approve spark: %v", err)
	}

	if _, err := h.engine.Send(ctx, EventDraftExpansion, DraftExpansionPayload{
		SparkID: sparks[0].ID, PipelineItemID: item.ID, UserID: owner,
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	h.drain(t)

	if calls := h.gen.calls(6000); len(calls) != 0 {
		t.Fatalf("generator called %d times without a brief", len(calls))
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemError {
		t.Fatalf("expected error item, got %s", got.Status)
	}
	drafts, _ := h.store.ListDrafts(ctx, sparks[0].ID)
	if len(drafts) != 0 {
		t.Fatalf("expected no partial drafts, got %d", len(drafts))
	}
	runs, _ := h.store.ListRuns(ctx, 5)
	if len(runs) != 1 || runs[0].Status != orchestrator.RunFailed || !strings.Contains(runs[0].Error, "forensic brief") {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestMalformedDraftsRetriedThenFail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.gen.set(6000, "not json at all")
	project := testsupport.NewProject(t, h.store, owner, "p")
	item := testsupport.NewItem(t, h.store, project, domain.ItemSparksGenerated)
	if _, err := h.store.SetForensicBrief(ctx, item.ID, "brief"); err != nil {
		t.Fatalf("set brief: %v", err)
	}
	sparks := testsupport.NewSparks(t, h.store, item.ID, "hook")
	if _, err := h.loop.ApproveSpark(ctx, owner, sparks[0].ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	h.drain(t)

	if calls := h.gen.calls(6000); len(calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(calls))
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemError {
		t.Fatalf("expected error item, got %s", got.Status)
	}
	if spark, _ := h.store.GetSpark(ctx, sparks[0].ID); spark.Status != domain.SparkApproved {
		t.Fatalf("spark moved to %s", spark.Status)
	}
}

func TestZeroHooksThenRegenerate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.gen.set(2000, "I could not think of anything.")

	project, err := h.loop.CreateProject(ctx, owner, "uploads")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	file, err := h.loop.UploadFile(ctx, owner, project.ID, "notes.txt", strings.NewReader("Costs fell 42%."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if file.ExtractedText == nil || *file.ExtractedText != "Costs fell 42%." {
		t.Fatalf("unexpected upload %+v", file)
	}

	item, err := h.loop.TriggerIngestion(ctx, owner, project.ID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	h.drain(t)

	detail, _ := h.loop.Item(ctx, owner, item.ID)
	if detail.Item.Status != domain.ItemSparksGenerated || len(detail.Sparks) != 0 {
		t.Fatalf("expected waiting item without sparks, got %s with %d", detail.Item.Status, len(detail.Sparks))
	}
	if len(h.drive.downloads) != 0 {
		t.Fatalf("uploaded project touched the drive: %v", h.drive.downloads)
	}

	h.gen.set(2000, hooksOut)
	if err := h.loop.RegenerateSparks(ctx, owner, item.ID); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	h.drain(t)

	detail, _ = h.loop.Item(ctx, owner, item.ID)
	if len(detail.Sparks) != 2 {
		t.Fatalf("expected 2 sparks after regeneration, got %d", len(detail.Sparks))
	}
	if err := h.loop.RegenerateSparks(ctx, owner, item.ID); !errors.Is(err, lifecycle.ErrIllegalTransition) {
		t.Fatalf("expected refusal with sparks present, got %v", err)
	}
}

func TestDiscoverFilesIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	project := h.linkedProject(t)
	payload := IngestFilesPayload{ProjectID: project.ID, PipelineItemID: "unused", UserID: owner}

	for range 2 {
		n, err := h.loop.discoverFiles(ctx, payload, h.loop.logger)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if n != 4 {
			t.Fatalf("expected 4 recognised files, got %d", n)
		}
	}
	files, _ := h.store.ListFiles(ctx, project.ID)
	if len(files) != 4 {
		t.Fatalf("expected 4 rows after two discoveries, got %d", len(files))
	}
	if h.drive.refreshes != 1 {
		t.Fatalf("expected the refreshed token to be reused, got %d refreshes", h.drive.refreshes)
	}
}

func TestTriggerIngestionNeedsSource(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	project, err := h.loop.CreateProject(context.Background(), owner, "empty")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.loop.TriggerIngestion(context.Background(), owner, project.ID); !errors.Is(err, lifecycle.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if _, err := h.loop.TriggerIngestion(context.Background(), "intruder", project.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPublishFailureLeavesDraftApproved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.pub.err = errors.New("channel unavailable")

	project := testsupport.NewProject(t, h.store, owner, "p")
	item := testsupport.NewItem(t, h.store, project, domain.ItemReady)
	sparks := testsupport.NewSparks(t, h.store, item.ID, "hook")
	draft, err := h.store.UpsertDraft(ctx, domain.PostDraft{SparkID: sparks[0].ID, LengthType: domain.LengthShort, Content: "Post"})
	if err != nil {
		t.Fatalf("upsert draft: %v", err)
	}
	if _, err := h.loop.PublishDraft(ctx, owner, draft.ID, ""); !errors.Is(err, lifecycle.ErrIllegalTransition) {
		t.Fatalf("expected unapproved draft to be refused, got %v", err)
	}
	if _, err := h.loop.ApproveDraft(ctx, owner, draft.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if pending, _ := h.store.PendingEvents(ctx); pending != 0 {
		t.Fatalf("draft without slides requested a carousel")
	}
	if err := h.loop.LinkSocialAccount(ctx, domain.SocialAccount{UserID: owner, Provider: domain.SocialProviderTelegram, ExternalAccountID: "@c"}); err != nil {
		t.Fatalf("link: %v", err)
	}

	if _, err := h.loop.PublishDraft(ctx, owner, draft.ID, ""); err == nil || !strings.Contains(err.Error(), "channel unavailable") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if d, _ := h.store.GetDraft(ctx, draft.ID); d.Status != domain.DraftApproved {
		t.Fatalf("draft moved to %s", d.Status)
	}
	if got, _ := h.store.GetItem(ctx, item.ID); got.Status != domain.ItemReady {
		t.Fatalf("item moved to %s", got.Status)
	}
}

func TestSaveVaultAuditsAndVersions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	doc := []byte("voice_dna:\n  signature_phrases: [one, two]\n")
	vault, result, err := h.loop.SaveVault(ctx, owner, "vault.yaml", doc)
	if err != nil {
		t.Fatalf("save vault: %v", err)
	}
	if vault.Version != 1 || result.Status != domain.AuditFailed || vault.AuditStatus != domain.AuditFailed {
		t.Fatalf("unexpected vault %+v / %+v", vault, result.Status)
	}

	vault, _, err = h.loop.SaveVault(ctx, owner, "vault.jsonc", []byte(`{
		// comments allowed
		"voice_dna": {}
	}`))
	if err != nil {
		t.Fatalf("save jsonc vault: %v", err)
	}
	if vault.Version != 2 {
		t.Fatalf("expected version 2, got %d", vault.Version)
	}

	if _, _, err := h.loop.SaveVault(ctx, owner, "vault.json", []byte("[1,2]")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
