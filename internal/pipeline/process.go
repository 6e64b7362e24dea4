package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pdfcheck/internal"
	"pdfcheck/internal/comparator"
	"pdfcheck/internal/config"
	"pdfcheck/internal/master"
	"pdfcheck/internal/storage"
)

// Comparator is the model-service boundary the orchestrator depends on.
type Comparator interface {
	Compare(ctx context.Context, docText string, record internal.MasterRecord) (internal.Verdict, error)
}

// Document is one uploaded file queued for verification.
type Document struct {
	FileName string
	Content  []byte
}

type ProcessingService struct {
	cfg        config.Config
	index      *master.Index
	comparator Comparator
	db         *storage.DB
	log        *logrus.Logger

	extractText func([]byte) (string, error)
}

func NewProcessingService(cfg config.Config, index *master.Index, cmp Comparator, db *storage.DB, log *logrus.Logger) *ProcessingService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProcessingService{
		cfg:         cfg,
		index:       index,
		comparator:  cmp,
		db:          db,
		log:         log,
		extractText: ExtractText,
	}
}

// ProcessBatch verifies every document against the master index and returns
// one outcome per document, in input order. A document failing at any stage
// never affects the outcome of another. When a history store is attached the
// run and its outcomes are persisted and the run ID returned.
func (s *ProcessingService) ProcessBatch(ctx context.Context, masterFile string, docs []Document) ([]internal.Outcome, internal.BatchSummary, int64, error) {
	start := time.Now()
	outcomes := make([]internal.Outcome, len(docs))

	limit := s.cfg.CompareConcurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			outcomes[i] = s.processDocument(gctx, doc)
			return nil
		})
	}
	// Workers never return errors; failures are isolated into outcomes.
	_ = g.Wait()

	summary := Summarize(outcomes)
	s.log.WithFields(logrus.Fields{
		"total":      summary.Total,
		"clean":      summary.Clean,
		"discrepant": summary.Discrepant,
		"unmatched":  summary.Unmatched,
		"errored":    summary.Errored,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("batch processed")

	var runID int64
	if s.db != nil {
		id, err := s.db.InsertRun(uuid.New().String(), masterFile, summary, outcomes)
		if err != nil {
			return outcomes, summary, 0, err
		}
		runID = id
	}
	return outcomes, summary, runID, nil
}

func (s *ProcessingService) processDocument(ctx context.Context, doc Document) internal.Outcome {
	out := internal.Outcome{FileName: doc.FileName}

	text, err := s.extractText(doc.Content)
	if err != nil {
		out.Status = internal.StatusUnreadable
		out.ErrorKind = internal.ErrKindUnreadable
		out.ErrorDetail = err.Error()
		return out
	}

	id, found := FindPatientID(text)
	if !found {
		out.Status = internal.StatusNoIdentifier
		return out
	}
	out.PatientID = id

	record, ok := s.index.Lookup(id)
	if !ok {
		out.Status = internal.StatusNoMasterMatch
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.CompareTimeoutMs)*time.Millisecond)
	defer cancel()

	verdict, err := s.comparator.Compare(cctx, text, record)
	if err != nil {
		out.Status = internal.StatusCompareError
		out.ErrorDetail = err.Error()
		if errors.Is(err, comparator.ErrMalformed) {
			out.ErrorKind = internal.ErrKindMalformed
		} else {
			out.ErrorKind = internal.ErrKindService
		}
		return out
	}

	if len(verdict.Discrepancies) == 0 {
		out.Status = internal.StatusClean
		return out
	}
	out.Status = internal.StatusDiscrepancy
	out.Discrepancies = verdict.Discrepancies
	return out
}

func Summarize(outcomes []internal.Outcome) internal.BatchSummary {
	summary := internal.BatchSummary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case internal.StatusClean:
			summary.Clean++
		case internal.StatusDiscrepancy:
			summary.Discrepant++
		case internal.StatusNoIdentifier, internal.StatusNoMasterMatch:
			summary.Unmatched++
		default:
			summary.Errored++
		}
	}
	return summary
}
