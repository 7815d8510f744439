package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"schedsync/internal/config"
	"schedsync/internal/ics"
	appLog "schedsync/internal/log"
	"schedsync/internal/model"
	"schedsync/internal/notion"
	"schedsync/internal/schedule"
)

// Store is the remote workspace the syncer reads from and writes to.
// *notion.Client implements it.
type Store interface {
	QueryDatabase(ctx context.Context, databaseID string, filter *notion.Filter, cursor string) (notion.List[notion.Page], error)
	ListBlockChildren(ctx context.Context, blockID, cursor string) (notion.List[notion.Block], error)
	CreatePage(ctx context.Context, req notion.CreatePageRequest) (notion.Page, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// Options tune a Syncer. The zero value is a live run using wall-clock time
// and no logging.
type Options struct {
	// DryRun computes every write but does not send it. Requests are
	// logged at debug level instead.
	DryRun bool
	// Now returns the reference instant for expansion. Defaults to time.Now.
	Now func() time.Time
	Log *appLog.Logger
}

// Syncer regenerates the tasks database from the schedule database.
type Syncer struct {
	store  Store
	cfg    *config.Config
	dryRun bool
	now    func() time.Time
	log    *appLog.Logger
}

func New(store Store, cfg *config.Config, opts Options) *Syncer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Syncer{
		store:  store,
		cfg:    cfg,
		dryRun: opts.DryRun,
		now:    now,
		log:    opts.Log,
	}
}

// Result summarizes one run.
type Result struct {
	Archived int
	Created  int
}

// Run archives every previously generated task and then creates the tasks
// for all current schedule entries. The two steps are not transactional: a
// failure while creating leaves the old tasks archived.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	var res Result
	started := s.now()

	archived, err := s.ArchiveOld(ctx)
	res.Archived = archived
	if err != nil {
		return res, fmt.Errorf("archive old tasks: %w", err)
	}

	created, err := s.CreateNew(ctx)
	res.Created = created
	if err != nil {
		return res, fmt.Errorf("create new tasks: %w", err)
	}

	s.log.Info("sync finished",
		"archived", res.Archived,
		"created", res.Created,
		"dry_run", s.dryRun,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return res, nil
}

// ArchiveOld archives every task whose marker property carries the
// generated-task prefix. It returns the number of tasks archived (or, in a
// dry run, that would have been).
func (s *Syncer) ArchiveOld(ctx context.Context) (int, error) {
	filter := &notion.Filter{
		Property: s.cfg.RecurrenceInfoProperty,
		RichText: &notion.TextCondition{StartsWith: model.MarkerPrefix},
	}
	pages, err := notion.CollectAll(ctx, func(ctx context.Context, cursor string) (notion.List[notion.Page], error) {
		return s.store.QueryDatabase(ctx, s.cfg.TasksDatabaseID, filter, cursor)
	})
	if err != nil {
		return 0, fmt.Errorf("query tasks database: %w", err)
	}
	if len(pages) == 0 {
		s.log.Info("no generated tasks to archive")
		return 0, nil
	}

	s.log.Info("archiving generated tasks", "count", len(pages))
	if s.dryRun {
		for _, p := range pages {
			s.log.Debug("dry run: skip archive", "page", p.ID)
		}
		return len(pages), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pages {
		g.Go(func() error {
			if err := s.store.ArchivePage(gctx, p.ID); err != nil {
				return fmt.Errorf("archive page %s: %w", p.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(pages), nil
}

// Plan reads every schedule entry and expands it into the tasks a run
// would create, in entry order and then occurrence order.
func (s *Syncer) Plan(ctx context.Context) ([]model.TaskRecord, error) {
	var filter *notion.Filter
	if s.cfg.ActiveInputProperty != "" {
		filter = &notion.Filter{
			Property: s.cfg.ActiveInputProperty,
			Checkbox: &notion.CheckboxFilter{Equals: true},
		}
	}
	pages, err := notion.CollectAll(ctx, func(ctx context.Context, cursor string) (notion.List[notion.Page], error) {
		return s.store.QueryDatabase(ctx, s.cfg.ScheduleDatabaseID, filter, cursor)
	})
	if err != nil {
		return nil, fmt.Errorf("query schedule database: %w", err)
	}
	s.log.Info("loaded schedule entries", "count", len(pages))

	now := s.now()
	expandCfg := schedule.NewExpandConfig(s.cfg, s.log)

	var tasks []model.TaskRecord
	for _, page := range pages {
		children, err := s.children(ctx, page.ID)
		if err != nil {
			return nil, err
		}
		entry, err := schedule.ParseEntry(page, s.cfg)
		if err != nil {
			return nil, err
		}
		entry.Children = children

		out, err := schedule.Expand(entry, now, expandCfg)
		if err != nil {
			return nil, err
		}
		s.log.Debug("expanded schedule entry", "entry", entry.ID, "tasks", len(out))
		tasks = append(tasks, out...)
	}
	return tasks, nil
}

// CreateNew creates the tasks returned by Plan. If a calendar export path
// is configured the planned tasks are also written there, dry run or not.
func (s *Syncer) CreateNew(ctx context.Context) (int, error) {
	tasks, err := s.Plan(ctx)
	if err != nil {
		return 0, err
	}

	if path := s.cfg.CalendarExportPath; path != "" {
		if err := ics.ExportFile(path, tasks, s.now()); err != nil {
			return 0, fmt.Errorf("export calendar: %w", err)
		}
		s.log.Info("calendar exported", "path", path, "events", len(tasks))
	}

	reqs := make([]notion.CreatePageRequest, 0, len(tasks))
	for _, task := range tasks {
		reqs = append(reqs, notion.CreatePageRequest{
			DatabaseID: s.cfg.TasksDatabaseID,
			Properties: task.Properties,
			Children:   task.Children,
		})
	}

	s.log.Info("creating tasks", "count", len(reqs))
	if s.dryRun {
		for _, req := range reqs {
			s.logRequest(req)
		}
		return len(reqs), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, req := range reqs {
		g.Go(func() error {
			s.logRequest(req)
			if _, err := s.store.CreatePage(gctx, req); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(reqs), nil
}

func (s *Syncer) children(ctx context.Context, pageID string) ([]notion.Block, error) {
	blocks, err := notion.CollectAll(ctx, func(ctx context.Context, cursor string) (notion.List[notion.Block], error) {
		return s.store.ListBlockChildren(ctx, pageID, cursor)
	})
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", pageID, err)
	}

	out := blocks[:0]
	for _, b := range blocks {
		if !b.Copyable() {
			s.log.Warn("skipping block that cannot be copied", "page", pageID, "block", b.ID, "type", b.Type)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Syncer) logRequest(req notion.CreatePageRequest) {
	if !s.log.Enabled(appLog.LevelDebug) {
		return
	}
	body, err := json.Marshal(req)
	if err != nil {
		s.log.Error("encode create request", err)
		return
	}
	s.log.Debug("create request", "dry_run", s.dryRun, "body", string(body))
}
