// Package report turns host data-view snapshots into a ReportContext.
//
// Normalization never fails: a fault in one extraction step is logged and the
// affected field is left empty so the rest of the context is still usable.
package report

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Normalizer converts snapshots into ReportContext values.
type Normalizer struct {
	log    logrus.FieldLogger
	now    func() time.Time
	format *Formatter
}

// NewNormalizer creates a Normalizer. A nil logger discards output and a nil
// clock uses time.Now.
func NewNormalizer(log logrus.FieldLogger, format *Formatter, now func() time.Time) *Normalizer {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	if format == nil {
		format = NewFormatter(DefaultLocale)
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{log: log, now: now, format: format}
}

// Normalize builds a new ReportContext from snap. The previous context only
// contributes its page name, and only when snap does not carry one.
func (n *Normalizer) Normalize(snap *Snapshot, previous ReportContext) ReportContext {
	pageName := previous.PageName
	if snap != nil && snap.PageName != "" {
		pageName = snap.PageName
	}

	rc := Empty(pageName)
	rc.LastUpdated = n.format.Timestamp(n.now())

	switch {
	case snap == nil:
		n.log.Debug("no snapshot supplied")
	case snap.Table != nil:
		n.normalizeTable(snap.Table, &rc)
	case snap.Categorical != nil:
		n.normalizeCategorical(snap.Categorical, &rc)
	default:
		n.log.Debug("snapshot carries no data shape")
	}
	return rc
}

// extract runs one extraction step, recovering from any panic and returning
// zero in that case.
func extract[T any](n *Normalizer, step string, zero T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			n.log.WithField("step", step).Errorf("snapshot extraction failed: %v", r)
			out = zero
		}
	}()
	return fn()
}

// columnName resolves the canonical name of a column at 0-based position idx.
func columnName(c Column, idx int) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	if c.QueryName != "" {
		return c.QueryName
	}
	return fmt.Sprintf("Column %d", idx+1)
}
