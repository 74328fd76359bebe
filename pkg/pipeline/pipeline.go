// Package pipeline runs one freeleech poll: fetch the batch, drop ids that
// were already seen, apply the filter and hand every new match to the
// configured sinks before the dedup cache is written back.
//
// Items are handled one at a time in batch order. A failing notification,
// download or client injection is logged on the item and never stops the
// batch; the item is recorded as seen either way. Only a failed fetch aborts
// a run, and it does so before anything is mutated.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/freeleech/pkg/cache"
	"github.com/autobrr/freeleech/pkg/download"
	"github.com/autobrr/freeleech/pkg/expression"
	"github.com/autobrr/freeleech/pkg/filter"
	"github.com/autobrr/freeleech/pkg/logger"
	"github.com/autobrr/freeleech/pkg/metrics"
	"github.com/autobrr/freeleech/pkg/notification"
	"github.com/autobrr/freeleech/pkg/tracker"
)

type Source interface {
	FetchFreeleechBatch(ctx context.Context) (*tracker.Batch, error)
}

type Downloader interface {
	Download(ctx context.Context, url, dir, fallbackName string) (string, error)
}

type Injector interface {
	Type() string
	AddTorrentFromURL(ctx context.Context, url string) error
}

type State int

const (
	StateFetching State = iota
	StateFiltering
	StateProcessing
	StatePersisting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateFiltering:
		return "filtering"
	case StateProcessing:
		return "processing"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Options struct {
	Source Source
	Cache  *cache.Cache
	Store  cache.Store

	Filter filter.Config
	Rules  []expression.CompiledExpression

	// optional sinks, nil disables the step
	Notifier    notification.Sender
	Downloader  Downloader
	DownloadDir string
	Injector    Injector

	Metrics *metrics.Metrics
	Output  io.Writer
	Log     *logrus.Entry
	DryRun  bool
}

type Runner struct {
	opts Options
	log  *logrus.Entry
	out  io.Writer
}

func New(opts Options) *Runner {
	r := &Runner{
		opts: opts,
		log:  opts.Log,
		out:  opts.Output,
	}
	if r.log == nil {
		r.log = logger.GetLogger("pipeline")
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.opts.Cache == nil {
		r.opts.Cache = cache.New()
	}
	return r
}

// Event is the outcome of one new, matching item.
type Event struct {
	Item tracker.Item

	Notified  bool
	NotifyErr error

	Downloaded  bool
	Filename    string
	DownloadErr error

	Injected  bool
	InjectErr error
}

type Result struct {
	State  State
	Events []Event

	Fetched  int
	Seen     int
	Filtered int
	Invalid  int

	Persisted bool
}

// run holds the state that lives for a single invocation.
type run struct {
	downloadChecked  bool
	downloadDisabled bool
}

// Run executes one poll. A fetch error aborts the run without persisting.
// Otherwise the cache is persisted exactly once after every item, and a
// persist failure is returned alongside the result.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{State: StateFetching}

	batch, err := r.opts.Source.FetchFreeleechBatch(ctx)
	if err != nil {
		res.State = StateAborted
		return res, err
	}
	res.Fetched = len(batch.Items)
	r.log.Infof("Retrieved %d freeleech torrents", res.Fetched)

	res.State = StateFiltering
	st := &run{}
	for _, item := range batch.Items {
		if ev, ok := r.processItem(ctx, st, res, item); ok {
			res.Events = append(res.Events, ev)
		}
	}

	r.log.WithField("cache_size", r.opts.Cache.Len()).
		Infof("Processed %d torrents: %d new, %d already seen, %d filtered, %d invalid",
			res.Fetched, len(res.Events), res.Seen, res.Filtered, res.Invalid)

	res.State = StatePersisting
	persistErr := r.persist(ctx, res)

	if r.opts.Metrics != nil {
		if persistErr != nil {
			r.opts.Metrics.IncFailures("persist")
		}
		r.opts.Metrics.Finish(start, r.opts.Cache.Len())
	}

	res.State = StateDone
	return res, persistErr
}

func (r *Runner) persist(ctx context.Context, res *Result) error {
	if r.opts.DryRun {
		r.log.Warn("Dry-run enabled, skipping cache update...")
		return nil
	}
	if r.opts.Store == nil {
		return nil
	}

	if err := r.opts.Cache.Persist(ctx, r.opts.Store); err != nil {
		r.log.WithError(err).Error("Unable to update the known freeleech cache")
		return err
	}

	res.Persisted = true
	r.log.Debugf("Persisted %d ids (%d new) to %s", r.opts.Cache.Len(), r.opts.Cache.Added(), r.opts.Store)
	return nil
}

// processItem short-circuits on the cheap checks before any side effect.
func (r *Runner) processItem(ctx context.Context, st *run, res *Result, item tracker.Item) (Event, bool) {
	log := r.log.WithField("torrent_id", item.ID)

	// items without an id cannot be recorded
	if item.ID == "" {
		log.Warnf("Skipping torrent without id: %s", item.Title)
		res.Invalid++
		r.countItem("invalid")
		return Event{}, false
	}

	if r.opts.Cache.Contains(item.ID) {
		log.Tracef("Already seen: %s", item.Title)
		res.Seen++
		r.countItem("seen")
		return Event{}, false
	}

	if !r.matches(ctx, log, item) {
		log.Tracef("Filtered: %s (seeders: %d, leechers: %d, size: %s)",
			item.Title, item.Seeders, item.Leechers, item.SizeString())
		res.Filtered++
		r.countItem("filtered")
		return Event{}, false
	}

	res.State = StateProcessing
	r.countItem("new")
	log.Infof("New freeleech torrent: %s (%s)", item.Title, item.SizeString())

	ev := Event{Item: item}

	r.notify(ctx, log, &ev)
	r.download(ctx, log, st, &ev)
	r.inject(ctx, log, &ev)

	r.opts.Cache.Record(item.ID)

	fmt.Fprintf(r.out, "\nTorrent Permalink: %s\nTorrent Download: %s\n", item.Permalink, item.DownloadURL)

	return ev, true
}

func (r *Runner) matches(ctx context.Context, log *logrus.Entry, item tracker.Item) bool {
	if !filter.Matches(item, r.opts.Filter) {
		return false
	}

	if len(r.opts.Rules) == 0 {
		return true
	}

	ok, failed, err := expression.CheckItemAllMatch(ctx, &item, r.opts.Rules)
	if err != nil {
		log.WithError(err).Warn("Failed evaluating expressions, skipping torrent")
		return false
	}
	if !ok {
		log.Tracef("Expressions not matched: %v", failed)
	}
	return ok
}

func (r *Runner) notify(ctx context.Context, log *logrus.Entry, ev *Event) {
	if r.opts.Notifier == nil || !r.opts.Notifier.CanSend() {
		return
	}

	if r.opts.DryRun {
		log.Warnf("Dry-run enabled, skipping %s notification...", r.opts.Notifier.Name())
		return
	}

	err := r.opts.Notifier.Send(ctx, notification.Event{Item: ev.Item, Detected: time.Now()})
	if err != nil {
		ev.NotifyErr = err
		r.countFailure("notify")
		log.WithError(err).Errorf("%s: Failed sending notification", r.opts.Notifier.Name())
		return
	}
	ev.Notified = true
}

func (r *Runner) download(ctx context.Context, log *logrus.Entry, st *run, ev *Event) {
	if r.opts.DownloadDir == "" || r.opts.Downloader == nil || st.downloadDisabled {
		return
	}

	// the directory is only checked once per run
	if !st.downloadChecked {
		st.downloadChecked = true
		if err := download.ValidateDir(r.opts.DownloadDir); err != nil {
			st.downloadDisabled = true
			r.countFailure("download")
			log.WithError(err).Errorf("autodownload: Invalid path provided, disabling downloads for this run: %q",
				r.opts.DownloadDir)
			return
		}
	}

	if r.opts.DryRun {
		log.Warn("Dry-run enabled, skipping download...")
		return
	}

	filename, err := r.opts.Downloader.Download(ctx, ev.Item.DownloadURL, r.opts.DownloadDir, ev.Item.ID)
	if err != nil {
		ev.DownloadErr = err
		r.countFailure("download")
		log.WithError(err).Error("autodownload: Could not write torrent file to path")
		return
	}

	ev.Downloaded = true
	ev.Filename = filename
	log.Debugf("Downloaded torrent to %q", filename)
}

func (r *Runner) inject(ctx context.Context, log *logrus.Entry, ev *Event) {
	if r.opts.Injector == nil {
		return
	}

	if r.opts.DryRun {
		log.Warnf("Dry-run enabled, skipping add to %s...", r.opts.Injector.Type())
		return
	}

	if err := r.opts.Injector.AddTorrentFromURL(ctx, ev.Item.DownloadURL); err != nil {
		ev.InjectErr = err
		r.countFailure("inject")
		log.WithError(err).Errorf("%s: Failed adding torrent", r.opts.Injector.Type())
		return
	}

	ev.Injected = true
	log.Debugf("Added torrent to %s", r.opts.Injector.Type())
}

func (r *Runner) countItem(outcome string) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.IncItems(outcome)
	}
}

func (r *Runner) countFailure(step string) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.IncFailures(step)
	}
}
