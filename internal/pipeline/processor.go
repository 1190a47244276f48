// Package pipeline runs the archive-to-address-book workflow: scan every
// archive, resolve and classify the contacts, enforce the data-quality
// invariants, then write the artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mbox-addressbook/internal/classify"
	"mbox-addressbook/internal/config"
	"mbox-addressbook/internal/correspondents"
	"mbox-addressbook/internal/enforce"
	"mbox-addressbook/internal/export"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/mailparse"
	"mbox-addressbook/internal/mbox"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/resolver"
	"mbox-addressbook/internal/signature"
	"mbox-addressbook/internal/store"
)

// ArchiveStats summarizes the scan of one archive.
type ArchiveStats struct {
	Archive      mbox.Archive
	Messages     int
	DecodeErrors int
	Truncated    int
	Boundaries   int
	Contacts     int
	Rejected     map[string]int
}

// ArchiveResult is the in-memory outcome of one archive run.
type ArchiveResult struct {
	Stats     ArchiveStats
	Index     *correspondents.Index
	Contacts  []models.CanonicalContact
	Conflicts []*models.MergeConflict
}

// Result is the outcome of a whole run, before any artifact is written.
type Result struct {
	RunID      string
	Archives   []ArchiveStats
	Index      *correspondents.Index
	Contacts   []models.CanonicalContact
	Dropped    []classify.Dropped
	Review     []models.ReviewItem
	Reports    []enforce.Report
	Violations []*models.InvariantViolation
	Enrichment classify.EnrichStats
	Counts     map[models.Category]int
}

// Artifacts lists the files written by WriteArtifacts.
type Artifacts struct {
	Index    string
	Contacts string
	CSV      []string
}

type Processor struct {
	cfg      *models.Config
	owner    *correspondents.Owner
	dicts    classify.Dictionaries
	engine   *classify.Engine
	limits   resolver.Limits
	enricher *classify.Enricher
	runID    string
	log      *logrus.Entry
}

// NewProcessor creates a Processor for one run. A nil delegate disables
// enrichment regardless of configuration.
func NewProcessor(cfg *models.Config, delegate classify.Delegate) *Processor {
	runID := uuid.New().String()
	dicts := classify.DictionariesFromConfig(cfg)
	p := &Processor{
		cfg:    cfg,
		owner:  correspondents.OwnerFromConfig(cfg.Owner),
		dicts:  dicts,
		engine: classify.NewEngine(classify.DefaultRules(dicts)),
		limits: resolver.LimitsFromConfig(cfg.Resolver),
		runID:  runID,
		log:    logging.ForRun(runID),
	}
	if delegate != nil && cfg.Enrichment.Enabled {
		p.enricher = classify.NewEnricher(delegate, cfg.Enrichment)
	}
	return p
}

// RunID identifies this run in every log line.
func (p *Processor) RunID() string { return p.runID }

// ScanArchive streams one archive into a correspondent index and a contact
// set. Malformed messages never stop the scan; an unreadable archive does.
func (p *Processor) ScanArchive(ctx context.Context, archive mbox.Archive) (*ArchiveResult, error) {
	r, err := mbox.Open(archive.Path, p.cfg.Scan.MaxMessageBytes)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	locallog := p.log.WithField("archive", archive.Name)
	locallog.Infof("Scanning %s", archive.Path)

	index := correspondents.NewIndex(p.owner)
	extractor := signature.New(p.cfg.Signature)
	acc := resolver.NewAccumulator(p.limits)
	stats := ArchiveStats{Archive: archive}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", archive.Path, err)
		}
		stats.Messages++

		email, err := mailparse.Parse(raw)
		if err != nil {
			stats.DecodeErrors += len(email.DecodeErrors)
			locallog.WithField("trace_id", email.TraceID).Debugf("Message %d decoded with errors: %v", raw.Index, err)
		}

		index.Observe(email)
		if email.From != "" && !p.owner.Matches(email.From) {
			acc.AddObservation(extractor.Observe(email))
		}

		if every := p.cfg.Scan.ProgressEvery; every > 0 && stats.Messages%every == 0 {
			locallog.WithFields(logrus.Fields{
				"messages":       stats.Messages,
				"correspondents": index.Len(),
			}).Info("Scan progress")
		}
	}

	acc.ApplyCounters(index)
	stats.Truncated = r.Truncated()
	stats.Boundaries = len(r.Boundaries())
	stats.Contacts = acc.Len()
	stats.Rejected = extractor.Rejected()
	for _, b := range r.Boundaries() {
		locallog.Debug(b.Error())
	}

	locallog.WithFields(logrus.Fields{
		"messages":      stats.Messages,
		"decode_errors": stats.DecodeErrors,
		"truncated":     stats.Truncated,
		"boundaries":    stats.Boundaries,
		"contacts":      stats.Contacts,
	}).Infof("Finished %s", archive.Name)

	return &ArchiveResult{
		Stats:     stats,
		Index:     index,
		Contacts:  acc.Contacts(),
		Conflicts: acc.Conflicts(),
	}, nil
}

// Scan runs ScanArchive over every archive found under paths, one after the
// other, and combines the per-archive results.
func (p *Processor) Scan(ctx context.Context, paths []string) (*ArchiveResult, []ArchiveStats, error) {
	archives, err := mbox.Discover(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(archives) == 0 {
		return nil, nil, fmt.Errorf("no archives found in %v", paths)
	}

	combined := &ArchiveResult{Index: correspondents.NewIndex(p.owner)}
	var stats []ArchiveStats
	for _, archive := range archives {
		res, err := p.ScanArchive(ctx, archive)
		if err != nil {
			return nil, nil, err
		}
		stats = append(stats, res.Stats)
		combined.Index.Combine(res.Index)
		merged, conflicts := resolver.MergeWithConflicts(combined.Contacts, res.Contacts, p.limits)
		combined.Contacts = merged
		combined.Conflicts = append(combined.Conflicts, res.Conflicts...)
		combined.Conflicts = append(combined.Conflicts, conflicts...)
	}
	return combined, stats, nil
}

// Run builds the final contact set in memory. Nothing is written.
func (p *Processor) Run(ctx context.Context, paths []string) (*Result, error) {
	scanned, stats, err := p.Scan(ctx, paths)
	if err != nil {
		return nil, err
	}
	contacts, conflicts := scanned.Contacts, scanned.Conflicts

	structured, structuredConflicts, err := p.loadSideTables()
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, structuredConflicts...)
	if len(structured) > 0 {
		var mergeConflicts []*models.MergeConflict
		contacts, mergeConflicts = resolver.MergeWithConflicts(contacts, structured, p.limits)
		conflicts = append(conflicts, mergeConflicts...)
	}

	classified := p.engine.Apply(contacts)
	res := &Result{
		RunID:    p.runID,
		Archives: stats,
		Index:    scanned.Index,
		Contacts: classified.Contacts,
		Dropped:  classified.Dropped,
	}

	if p.enricher != nil {
		res.Enrichment, err = p.enricher.Enrich(ctx, res.Contacts)
		if err != nil {
			return nil, fmt.Errorf("enrichment: %w", err)
		}
		p.log.WithFields(logrus.Fields{
			"attempted":  res.Enrichment.Attempted,
			"classified": res.Enrichment.Classified,
			"failed":     res.Enrichment.Failed,
			"rejected":   res.Enrichment.Rejected,
		}).Info("Enrichment finished")
	}

	queue := enforce.ReviewList(resolver.ConflictReviewItems(conflicts))
	for _, c := range res.Contacts {
		if c.Classification.Type == models.CategoryUnclassified {
			queue = append(queue, classify.UnclassifiedItem(c))
		}
	}

	contacts, reports, phoneItems, err := enforce.RunAll(res.Contacts, p.dicts.RolePatterns, &queue)
	if err != nil {
		return nil, err
	}
	res.Contacts, res.Reports = contacts, reports
	queue = append(queue, phoneItems...)

	// Contacts removed by enforcement no longer need review.
	kept := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		kept[c.Email] = true
	}
	var gone []string
	for _, item := range queue {
		if !kept[item.Email] {
			gone = append(gone, item.Email)
		}
	}
	if _, err := queue.RemoveReviewItems(gone); err != nil {
		return nil, err
	}

	res.Violations = resolver.NMLSCollisions(res.Contacts)
	queue = append(queue, resolver.CollisionReviewItems(res.Violations)...)
	res.Review = queue

	res.Counts = make(map[models.Category]int)
	for _, c := range res.Contacts {
		res.Counts[c.Classification.Type]++
	}
	p.log.WithFields(logrus.Fields{
		"contacts":   len(res.Contacts),
		"dropped":    len(res.Dropped),
		"review":     len(res.Review),
		"violations": len(res.Violations),
	}).Info("Run complete")
	return res, nil
}

func (p *Processor) loadSideTables() ([]models.CanonicalContact, []*models.MergeConflict, error) {
	if len(p.cfg.Resolver.SideTables) == 0 {
		return nil, nil, nil
	}
	acc := resolver.NewAccumulator(p.limits)
	for _, path := range p.cfg.Resolver.SideTables {
		records, err := resolver.LoadStructured(path)
		if err != nil {
			return nil, nil, err
		}
		for _, rec := range records {
			acc.AddStructured(rec)
		}
		p.log.WithField("side_table", path).Infof("Loaded %d structured records", len(records))
	}
	return acc.Contacts(), acc.Conflicts(), nil
}

// WriteArtifacts writes the index, the contact database and the CSV exports.
// Each file appears only once complete.
func (p *Processor) WriteArtifacts(ctx context.Context, res *Result) (*Artifacts, error) {
	out := &Artifacts{
		Index:    config.IndexPath(p.cfg),
		Contacts: config.ContactsPath(p.cfg),
	}
	if err := res.Index.Save(out.Index); err != nil {
		return nil, err
	}
	if err := store.WriteSnapshot(ctx, out.Contacts, res.Contacts, res.Review); err != nil {
		return nil, err
	}
	csvs, err := export.WriteAll(config.CSVPath(p.cfg), res.Contacts)
	if err != nil {
		return nil, err
	}
	out.CSV = csvs
	p.log.WithField("dir", p.cfg.Output.Dir).Info("Artifacts written")
	return out, nil
}

// Run executes a complete run over paths and writes its artifacts. The
// delegate may be nil.
func Run(ctx context.Context, cfg *models.Config, delegate classify.Delegate, paths []string) (*Result, *Artifacts, error) {
	p := NewProcessor(cfg, delegate)
	res, err := p.Run(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	artifacts, err := p.WriteArtifacts(ctx, res)
	if err != nil {
		return res, nil, err
	}
	return res, artifacts, nil
}
