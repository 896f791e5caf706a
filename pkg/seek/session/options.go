package session

import (
	"io/fs"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/config"
	"github.com/jamesainslie/seek/pkg/seek/cursor"
	"github.com/jamesainslie/seek/pkg/seek/history"
	"github.com/jamesainslie/seek/pkg/seek/journal"
	"github.com/jamesainslie/seek/pkg/seek/store"
	"github.com/jamesainslie/seek/pkg/seek/tuner"
	"github.com/jamesainslie/seek/pkg/seek/volume"
	"github.com/jamesainslie/seek/pkg/seek/walker"
)

// Options configures a Manager.
type Options struct {
	// CatalogDir receives staging artifacts and published snapshots.
	CatalogDir string

	// JournalBatch and WalkBatch are the flush thresholds per strategy.
	JournalBatch int
	WalkBatch    int

	// ProgressEvery is the number of flushed records between progress events.
	ProgressEvery int

	Walk walker.Options

	// CancelPolicy is config.CancelPolicyPublish or config.CancelPolicyDiscard.
	CancelPolicy string

	// Incremental seeds journal sessions from the previous snapshot with
	// the same label and resumes from stored cursors.
	Incremental bool

	// Opener opens volume journals. Zero means journal.Open.
	Opener journal.Opener

	// Validate reports journal support. Zero means volume.Validate.
	Validate func(string) volume.Support

	// JournalStat confirms resolved journal paths. Zero means os.Stat.
	JournalStat func(string) (fs.FileInfo, error)

	// Optional collaborators.
	Cursors    *cursor.Store
	Preference *store.Preference
	History    *history.History

	// Now returns the completion time used in snapshot names.
	Now func() time.Time
}

// FromConfig builds Options from configuration, tuning the worker count and
// batch sizes to the machine.
func FromConfig(cfg *config.Config) Options {
	plan := tuner.Auto(tuner.Requested{
		Workers:      cfg.Walk.Workers,
		WalkBatch:    cfg.Batch.Walk,
		JournalBatch: cfg.Batch.Journal,
	})

	return Options{
		CatalogDir:    cfg.DataDir,
		JournalBatch:  plan.JournalBatch,
		WalkBatch:     plan.WalkBatch,
		ProgressEvery: cfg.Progress.Every,
		Walk: walker.Options{
			SkipDirs:       cfg.Walk.SkipDirs,
			ReservedPrefix: cfg.Walk.ReservedPrefix,
			Workers:        plan.WalkWorkers,
		},
		CancelPolicy: cfg.CancelPolicy,
		Incremental:  cfg.Journal.Incremental,
		Preference:   store.NewPreference(cfg.DataDir),
	}
}

func (o *Options) setDefaults() {
	if o.JournalBatch <= 0 {
		o.JournalBatch = config.DefaultJournalBatch
	}
	if o.WalkBatch <= 0 {
		o.WalkBatch = config.DefaultWalkBatch
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = config.DefaultProgressEvery
	}
	if o.CancelPolicy == "" {
		o.CancelPolicy = config.CancelPolicyPublish
	}
	if o.Opener == nil {
		o.Opener = journal.Open
	}
	if o.Validate == nil {
		o.Validate = volume.Validate
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}
