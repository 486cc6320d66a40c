package content

import (
	"context"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/models"
)

// validReportReasons enumerates the accepted report reason values
// (spec.md §4.10).
var validReportReasons = map[string]bool{
	"spam": true, "harassment": true, "misinformation": true, "other": true,
}

// ReportService files spam reports and triggers the spam_confirmed EXP
// penalty once the distinct-reporter threshold is reached.
type ReportService struct {
	svc *Service
	ids *idgen.Generator
}

// NewReportService builds a ReportService sharing the content Service's
// store and EXP ledger.
func NewReportService(svc *Service, ids *idgen.Generator) *ReportService {
	return &ReportService{svc: svc, ids: ids}
}

// File records reporterDID's report against postID, enforcing reporter !=
// author and report-reason shape, then checks for spam confirmation.
func (r *ReportService) File(ctx context.Context, postID, reporterDID, reason string) error {
	if !validReportReasons[reason] {
		return apperr.New(apperr.CodeValidationError, "invalid report reason")
	}

	post, err := r.svc.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorDID == reporterDID {
		return apperr.New(apperr.CodeForbidden, "cannot report your own post")
	}

	if err := r.svc.store.InsertReport(ctx, models.SpamReport{
		ID:          r.ids.Next(),
		PostID:      postID,
		ReporterDID: reporterDID,
		Reason:      reason,
		CreatedAt:   r.svc.now().Unix(),
	}); err != nil {
		return err
	}

	if err := r.svc.ledger.MaybeConfirmSpam(ctx, post.AuthorDID, postID); err != nil {
		return err
	}

	return r.svc.limiter.Record(ctx, reporterDID, models.ActionComment)
}
