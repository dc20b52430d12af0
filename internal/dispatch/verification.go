package dispatch

import (
	"context"

	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/events"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Verifier runs the report verification workflow
type Verifier struct {
	store Store
	bus   events.EventBus
}

// NewVerifier creates a verification workflow
func NewVerifier(store Store, bus events.EventBus) *Verifier {
	return &Verifier{store: store, bus: bus}
}

// Verify records an approve or reject decision on a pending report.
// Decisions are final; a report that has already been decided yields
// InvalidState.
func (v *Verifier) Verify(ctx context.Context, user *auth.User, reportID types.ID, decision report.VerificationStatus) (*report.CrimeReport, error) {
	if user == nil || !user.IsAdmin() {
		return nil, errors.Unauthorized("only administrators can verify reports")
	}

	if decision != report.VerificationApproved && decision != report.VerificationRejected {
		return nil, errors.Validation("validation failed", map[string]string{
			"decision": "must be approved or rejected",
		})
	}

	rep, err := v.store.Verify(ctx, reportID, decision)
	if err != nil {
		return nil, err
	}

	if v.bus != nil {
		event := events.NewEvent("dispatch.report_verified", "dispatch", map[string]any{
			"report_id": rep.ID,
			"decision":  decision,
			"district":  rep.District,
		}).WithActor(user.ID, user.UserType)
		v.bus.Publish(ctx, event)
	}

	return rep, nil
}
