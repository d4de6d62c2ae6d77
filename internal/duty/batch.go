package duty

import (
	"context"
	"errors"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchRow is one line item of an upload before reference lookup. Err is
// set when the row could not even be turned into a ShipmentLineItem.
type BatchRow struct {
	RowID string
	Item  ShipmentLineItem
	Err   error
}

// BatchEntry is a line item paired with its reference data.
type BatchEntry struct {
	RowID       string
	Item        ShipmentLineItem
	RateText    string
	Description string
	Err         error
}

// Failure records why one row produced no result.
type Failure struct {
	RowID   string    `json:"row_id"`
	HTSCode string    `json:"hts_code"`
	Kind    ErrorKind `json:"kind"`
	Reason  string    `json:"reason"`
}

// Outcome is either a Result or a Failure, never both.
type Outcome struct {
	RowID   string   `json:"row_id"`
	Result  *Result  `json:"result,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the row produced a result.
func (o Outcome) OK() bool { return o.Result != nil }

// BatchResult holds one outcome per input row, in input order.
type BatchResult struct {
	ID        string    `json:"id"`
	Outcomes  []Outcome `json:"outcomes"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// BatchProcessor runs a Calculator over many rows with per-row failure
// isolation.
type BatchProcessor struct {
	calc    *Calculator
	workers int
	logger  *zap.Logger
}

// NewBatchProcessor returns a processor that runs at most workers rows at
// once. workers <= 0 means one per CPU; a nil logger discards output.
func NewBatchProcessor(calc *Calculator, workers int, logger *zap.Logger) *BatchProcessor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{calc: calc, workers: workers, logger: logger}
}

// Process calculates every entry independently. A failing row becomes a
// Failure outcome and never affects its siblings; the only error returned is
// ctx's, when the caller gives up on the batch.
func (p *BatchProcessor) Process(ctx context.Context, entries []BatchEntry) (BatchResult, error) {
	res := BatchResult{
		ID:       uuid.NewString(),
		Outcomes: make([]Outcome, len(entries)),
	}
	log := p.logger.With(zap.String("batch_id", res.ID))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Outcomes[i] = p.processOne(entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	for _, o := range res.Outcomes {
		if o.OK() {
			res.Succeeded++
			continue
		}
		res.Failed++
		log.Debug("batch row failed",
			zap.String("row_id", o.RowID),
			zap.String("hts_code", o.Failure.HTSCode),
			zap.String("kind", string(o.Failure.Kind)),
			zap.String("reason", o.Failure.Reason),
		)
	}
	log.Info("batch processed",
		zap.Int("rows", len(entries)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (p *BatchProcessor) processOne(e BatchEntry) Outcome {
	if e.Err != nil {
		return failed(e.RowID, e.Item.HTSCode, e.Err)
	}
	result, err := p.calc.Calculate(e.Item, e.RateText, e.Description)
	if err != nil {
		return failed(e.RowID, e.Item.HTSCode, err)
	}
	return Outcome{RowID: e.RowID, Result: &result}
}

func failed(rowID, code string, err error) Outcome {
	return Outcome{
		RowID: rowID,
		Failure: &Failure{
			RowID:   rowID,
			HTSCode: code,
			Kind:    KindOf(err),
			Reason:  err.Error(),
		},
	}
}

// ResolveEntries looks up every valid row in src. Unknown codes become
// per-row lookup failures; any other lookup error aborts, since it says
// nothing about the row itself.
func ResolveEntries(ctx context.Context, src RateSource, rows []BatchRow) ([]BatchEntry, error) {
	entries := make([]BatchEntry, len(rows))
	for i, row := range rows {
		entries[i] = BatchEntry{RowID: row.RowID, Item: row.Item, Err: row.Err}
		if row.Err != nil {
			continue
		}

		ref, err := lookup(ctx, src, row.Item.HTSCode)
		if err != nil {
			var de *Error
			if !errors.As(err, &de) {
				return nil, err
			}
			entries[i].Err = err
			continue
		}
		entries[i].RateText = ref.RateText
		entries[i].Description = ref.Description
	}
	return entries, nil
}
