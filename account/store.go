package account

import (
	"context"
	"time"
)

// Store persists account records. Every method is an atomic single-row
// operation; the compare-and-swap methods report false (with a nil error)
// when the row no longer holds the expected value.
type Store interface {
	LookupByEmail(ctx context.Context, email string) (Account, error)
	LookupByID(ctx context.Context, id string) (Account, error)

	// UpdateTrialState writes the trial counter and unlock time only if the
	// stored counter still equals expectedTrials.
	UpdateTrialState(ctx context.Context, id string, expectedTrials, trials int, unlockAt *time.Time) (bool, error)

	// UpdateCredential replaces the password hash, stamps changedAt and
	// clears the trial state, only if the stored hash still equals expectedHash.
	UpdateCredential(ctx context.Context, id, expectedHash, hash string, changedAt time.Time) (bool, error)

	UpdatePremiumFlag(ctx context.Context, id string, premium bool) error
	ListByRole(ctx context.Context, role Role) ([]Account, error)
}
