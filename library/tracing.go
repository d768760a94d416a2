package library

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	spanCreateLoan   = "loans.create"
	spanReturnLoan   = "loans.return"
	spanDeleteLoan   = "loans.delete"
	spanListActive   = "loans.list_active"
	attrMemberID     = "library.member_id"
	attrBookID       = "library.book_id"
	attrLoanID       = "library.loan_id"
	attrOutcome      = "library.outcome"
	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
	logMsgLoanOp     = "loan operation completed"
	logMsgLoanReject = "loan operation rejected"
	logMsgLoanFailed = "loan operation failed"
	logAttrOp        = "operation"
	logAttrError     = "error"
)

// outcome classifies err: nil is ok, a not-found or conflict is a rejected
// request, anything else is a failure.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict), errors.Is(err, ErrInvalid):
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

func (e *LoanEngine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish ends span and logs the operation. Rejections are not span errors.
func (e *LoanEngine) finish(ctx context.Context, span trace.Span, op string, err error, args ...any) {
	result := outcome(err)
	span.SetAttributes(attribute.String(attrOutcome, result))

	switch result {
	case outcomeOK:
		span.SetStatus(codes.Ok, "")
		e.logger.InfoContext(ctx, logMsgLoanOp, append([]any{logAttrOp, op}, args...)...)
	case outcomeRejected:
		span.SetStatus(codes.Unset, "")
		e.logger.DebugContext(ctx, logMsgLoanReject, append([]any{logAttrOp, op, logAttrError, err.Error()}, args...)...)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.ErrorContext(ctx, logMsgLoanFailed, append([]any{logAttrOp, op, logAttrError, err.Error()}, args...)...)
	}
	span.End()
}
