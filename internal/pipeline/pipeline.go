// Package pipeline runs one ticket page end to end: rasterized image in,
// persisted ticket or review-queue entry out. Every recognizable failure is
// converted into a review entry so a batch never aborts on bad input; only
// infrastructure failures (database unavailable, context canceled) propagate
// as errors.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"ticketflow/internal/config"
	"ticketflow/internal/dedupe"
	"ticketflow/internal/extract"
	"ticketflow/internal/logging"
	"ticketflow/internal/ocr"
	"ticketflow/internal/refdata"
	"ticketflow/internal/review"
	"ticketflow/internal/store"
	"ticketflow/internal/vendorid"
)

// Page outcomes.
const (
	OutcomeCreated   = "CREATED"
	OutcomeDuplicate = "DUPLICATE"
	OutcomeReview    = "REVIEW"
)

// PageResult is the terminal state of one page.
type PageResult struct {
	FilePath string
	PageNum  int
	Outcome  string

	TicketID    int64 // set for CREATED and DUPLICATE
	DuplicateOf int64 // set for DUPLICATE

	ReviewReason review.Reason // set for REVIEW
	Vendor       string
	Confidence   float64
}

// FileResult aggregates one file's pages.
type FileResult struct {
	FilePath string
	FileHash string

	// SkippedDuplicate is set when the whole file was already processed;
	// Pages is empty and PriorTickets lists what the first copy produced.
	SkippedDuplicate bool
	OriginalPath     string
	PriorTickets     []store.TruckTicket

	Pages []PageResult

	Created    int
	Duplicates int
	Reviews    int
}

// Pipeline holds the per-run processing graph. One Pipeline is safe for
// concurrent ProcessFile calls; all mutable state lives in the store.
type Pipeline struct {
	cfg        *config.Config
	store      *store.Store
	cache      *refdata.Cache
	normalizer *refdata.Normalizer
	detector   *vendorid.Detector
	duplicates *dedupe.Detector
	files      *dedupe.FileTracker
	engine     ocr.Engine
	producer   ocr.ImageProducer
	ocrCache   *ocr.Cache

	processedBy string
	now         func() time.Time
}

// New assembles a pipeline from configuration. The vendor templates and
// synonyms files come from the pipeline config; empty paths mean built-ins.
func New(cfg *config.Config, s *store.Store, processedBy string) (*Pipeline, error) {
	templates, err := vendorid.LoadTemplates(cfg.Pipeline.VendorTemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor templates: %w", err)
	}
	engine, err := ocr.NewEngine(cfg.OCR)
	if err != nil {
		return nil, err
	}
	normalizer := refdata.NewNormalizer(cfg.Pipeline.SynonymsPath)

	return &Pipeline{
		cfg:         cfg,
		store:       s,
		cache:       refdata.NewCache(s),
		normalizer:  normalizer,
		detector:    vendorid.NewDetector(templates, normalizer, cfg.Pipeline.EnableLogoDetection, cfg.Pipeline.LogoMatchThreshold),
		duplicates:  dedupe.NewDetector(s),
		files:       dedupe.NewFileTracker(s),
		engine:      engine,
		producer:    ocr.NewPopplerProducer(cfg.OCR.PDFDPI),
		ocrCache:    ocr.NewCache(cfg.OCR.CacheSize),
		processedBy: processedBy,
		now:         time.Now,
	}, nil
}

// ProcessFile ingests one input file: duplicate-file short-circuit,
// rasterization, then every page through ProcessPage.
func (p *Pipeline) ProcessFile(ctx context.Context, filePath, requestGUID string) (*FileResult, error) {
	timer := logging.StartTimer(logging.CategoryPipeline, "Pipeline.ProcessFile")
	defer timer.StopWithInfo()

	res := &FileResult{FilePath: filePath}

	hash, prior, err := p.files.Check(ctx, filePath)
	if err != nil {
		return nil, err
	}
	res.FileHash = hash
	if prior != nil && p.cfg.Pipeline.CheckDuplicateFiles {
		res.SkippedDuplicate = true
		res.OriginalPath = prior.OriginalPath
		res.PriorTickets = prior.Tickets
		logging.Pipeline("Skipping %s: identical to already-processed %s", filePath, prior.OriginalPath)
		return res, nil
	}

	pages, err := p.producer.Pages(ctx, filePath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Unreadable files get one review entry and do not stop the batch.
		logging.Get(logging.CategoryPipeline).Error("Failed to rasterize %s: %v", filePath, err)
		if _, qerr := p.store.AddReviewEntry(ctx, &review.Entry{
			PageID:   review.PageID(filePath, 1),
			Reason:   review.ReasonLowOCRQuality,
			Severity: review.SeverityCritical,
			FilePath: filePath,
			PageNum:  1,
			DetectedFields: map[string]any{
				"error": err.Error(),
			},
		}); qerr != nil {
			return nil, qerr
		}
		res.Reviews++
		res.Pages = append(res.Pages, PageResult{
			FilePath: filePath, PageNum: 1, Outcome: OutcomeReview, ReviewReason: review.ReasonLowOCRQuality,
		})
		return res, nil
	}

	for i, img := range pages {
		pageNum := i + 1
		pr, err := p.ProcessPage(ctx, filePath, pageNum, img, hash, requestGUID)
		if err != nil {
			return nil, err
		}
		res.Pages = append(res.Pages, *pr)
		switch pr.Outcome {
		case OutcomeCreated:
			res.Created++
		case OutcomeDuplicate:
			res.Duplicates++
		case OutcomeReview:
			res.Reviews++
		}
	}

	if err := p.files.Record(ctx, hash, filePath, requestGUID); err != nil {
		return nil, err
	}
	return res, nil
}

// ProcessPage runs one page through OCR, extraction, and persistence. The
// returned error is reserved for infrastructure failures.
func (p *Pipeline) ProcessPage(ctx context.Context, filePath string, pageNum int, img image.Image, fileHash, requestGUID string) (*PageResult, error) {
	pr := &PageResult{FilePath: filePath, PageNum: pageNum}
	pageID := review.PageID(filePath, pageNum)
	hints := extract.ParseFilename(filePath)

	// Quality gate is advisory: a failing page still goes through OCR so
	// marginal scans get a chance, but the operator hears about it.
	if pf := ocr.Preflight(img, p.cfg.OCR.Preflight); !pf.OK {
		logging.PipelineDebug("Preflight flagged %s: %s", pageID, pf.Reason)
		if _, err := p.store.AddReviewEntry(ctx, &review.Entry{
			PageID:   pageID,
			Reason:   review.ReasonLowOCRQuality,
			Severity: pf.Severity,
			FilePath: filePath,
			PageNum:  pageNum,
			DetectedFields: map[string]any{
				"preflight": pf.Reason,
			},
		}); err != nil {
			return nil, err
		}
	}

	ocrRes, err := p.recognize(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Get(logging.CategoryPipeline).Error("OCR failed on %s: %v", pageID, err)
		return p.toReview(ctx, pr, review.ReasonLowOCRQuality, review.SeverityCritical, map[string]any{
			"error": err.Error(),
		})
	}

	detection := p.detector.Detect(ocrRes.Text, hints.Vendor, img, nil)
	pr.Vendor = detection.Vendor
	tmpl := detection.Template

	ticketNumber, numConf := extract.ExtractTicketNumber(ocrRes.Text, tmpl.Patterns("ticket"))
	ticketDate, dateConf, dateOK := extract.ExtractTicketDate(ocrRes.Text, tmpl.Patterns("date"), hints, p.now())
	quantity, unit, qtyConf := extract.ExtractQuantity(ocrRes.Text, tmpl.Patterns("quantity"))
	manifestNumber, _ := extract.ExtractManifestNumber(ocrRes.Text, tmpl.Patterns("manifest"))
	truckNumber, _ := extract.ExtractTruckNumber(ocrRes.Text, tmpl.Patterns("truck"))

	detected := map[string]any{
		"vendor":        detection.Vendor,
		"vendor_method": detection.Method,
		"ticket_number": ticketNumber,
		"quantity":      quantity,
		"quantity_unit": unit,
		"manifest":      manifestNumber,
		"truck":         truckNumber,
		"ocr_engine":    p.engine.Name(),
		"ocr_conf":      ocrRes.Confidence,
	}
	if dateOK {
		detected["ticket_date"] = ticketDate.Format("2006-01-02")
	}

	// Completeness gate: no number or no plausible date means no row.
	if ticketNumber == "" {
		return p.toReview(ctx, pr, review.ReasonMissingTicketNumber, review.SeverityCritical, detected)
	}
	if !dateOK {
		return p.toReview(ctx, pr, review.ReasonInvalidDate, review.SeverityCritical, detected)
	}

	pr.Confidence = (numConf + dateConf + qtyConf) / 3

	materialName := p.normalizer.NormalizeMaterial(hints.Material)
	if hints.Material == "" {
		materialName = p.cfg.Pipeline.DefaultMaterial
	}
	destinationName := ""
	if detection.Vendor == "WASTE_MANAGEMENT_LEWISVILLE" {
		destinationName = "WASTE_MANAGEMENT_LEWISVILLE"
	}
	ticketType := hints.TicketType
	if ticketType == "" {
		ticketType = p.cfg.Pipeline.TicketTypeName
	}
	jobCode := hints.JobCode
	if jobCode == "" {
		jobCode = p.cfg.Pipeline.JobCode
	}

	draft := store.TicketDraft{
		TicketNumber:    ticketNumber,
		TicketDate:      ticketDate,
		JobCode:         jobCode,
		MaterialName:    materialName,
		TicketTypeName:  ticketType,
		SourceName:      p.normalizer.NormalizeSource(hints.Source),
		DestinationName: destinationName,
		VendorName:      detection.Vendor,
		Quantity:        quantity,
		QuantityUnit:    unit,
		TruckNumber:     truckNumber,
		ManifestNumber:  manifestNumber,
		FileID:          filePath,
		FilePage:        pageNum,
		FileHash:        fileHash,
		RequestGUID:     requestGUID,
		ConfidenceScore: pr.Confidence,
		ProcessedBy:     p.processedBy,
	}
	opts := store.CreateOptions{
		Lookup:          p.cache,
		DuplicateWindow: time.Duration(p.cfg.Pipeline.DuplicateWindowDays) * 24 * time.Hour,
	}

	ticket, err := p.store.CreateTicket(ctx, draft, opts)
	if err == nil {
		pr.Outcome = OutcomeCreated
		pr.TicketID = ticket.ID
		logging.Pipeline("Page %s -> ticket #%d (%s, confidence %.2f)", pageID, ticket.ID, ticketNumber, pr.Confidence)
		if ticket.ReviewRequired && ticket.ReviewReason != "" {
			// Persisted but flagged, e.g. a malformed manifest number; the
			// queue entry points reviewers at the stored row.
			detected["manifest_number"] = manifestNumber
			if _, qerr := p.store.AddReviewEntry(ctx, &review.Entry{
				TicketID:       &ticket.ID,
				PageID:         pageID,
				Reason:         review.Reason(ticket.ReviewReason),
				Severity:       review.SeverityWarning,
				FilePath:       filePath,
				PageNum:        pageNum,
				DetectedFields: detected,
			}); qerr != nil {
				return nil, qerr
			}
		}
		if p.cfg.Pipeline.MinPageConfidence > 0 && pr.Confidence < p.cfg.Pipeline.MinPageConfidence {
			detected["confidence"] = pr.Confidence
			if _, qerr := p.store.AddReviewEntry(ctx, &review.Entry{
				TicketID:       &ticket.ID,
				PageID:         pageID,
				Reason:         review.ReasonLowConfidence,
				Severity:       review.SeverityInfo,
				FilePath:       filePath,
				PageNum:        pageNum,
				DetectedFields: detected,
			}); qerr != nil {
				return nil, qerr
			}
		}
		return pr, nil
	}

	if match, ok := dedupe.IsDuplicateErr(err); ok {
		res, derr := p.duplicates.Record(ctx, draft, match, opts)
		if derr != nil {
			return nil, derr
		}
		pr.Outcome = OutcomeDuplicate
		pr.TicketID = res.DuplicateID
		pr.DuplicateOf = res.OriginalID
		return pr, nil
	}

	var se *store.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case store.KindValidation:
			reason := review.ReasonMissingManifest
			severity := review.SeverityCritical
			if se.Manifest != nil {
				reason = se.Manifest.Reason
				severity = se.Manifest.Severity
			}
			detected["suggested_material"] = materialName
			return p.toReview(ctx, pr, reason, severity, detected)
		case store.KindForeignKey:
			detected["error"] = se.Message
			return p.toReview(ctx, pr, review.ReasonForeignKeyError, review.SeverityCritical, detected)
		}
	}
	return nil, err
}

// toReview writes the review entry and finalizes the page result.
func (p *Pipeline) toReview(ctx context.Context, pr *PageResult, reason review.Reason, severity review.Severity, detected map[string]any) (*PageResult, error) {
	if _, err := p.store.AddReviewEntry(ctx, &review.Entry{
		PageID:         review.PageID(pr.FilePath, pr.PageNum),
		Reason:         reason,
		Severity:       severity,
		FilePath:       pr.FilePath,
		PageNum:        pr.PageNum,
		DetectedFields: detected,
	}); err != nil {
		return nil, err
	}
	pr.Outcome = OutcomeReview
	pr.ReviewReason = reason
	logging.Pipeline("Page %s -> review queue (%s %s)", review.PageID(pr.FilePath, pr.PageNum), severity, reason)
	return pr, nil
}

// recognize runs OCR with the per-process result cache in front.
func (p *Pipeline) recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Result{}, fmt.Errorf("failed to encode page: %w", err)
	}
	hash := ocr.HashBytes(buf.Bytes())

	if cached, ok := p.ocrCache.Get(hash); ok {
		return cached, nil
	}
	res, err := p.engine.Recognize(ctx, img)
	if err != nil {
		return ocr.Result{}, err
	}
	res.PageHash = hash
	p.ocrCache.Put(hash, res)
	return res, nil
}

// CacheStats exposes OCR cache hit counts for the end-of-run summary.
func (p *Pipeline) CacheStats() (hits, misses int) {
	return p.ocrCache.Stats()
}

// PreloadRefdata warms the reference cache before a batch.
func (p *Pipeline) PreloadRefdata(ctx context.Context) error {
	return p.cache.PreloadAll(ctx)
}
