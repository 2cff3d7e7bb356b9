package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TransientError covers network failures, timeouts, and unexpectedly shaped
// responses. It is eligible for protocol fallback.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient remote failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FallbackError reports that both protocol generations failed for one
// operation.
type FallbackError struct {
	Op      string
	Primary error
	Legacy  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%s: both protocol generations failed: primary: %v; legacy: %v",
		e.Op, e.Primary, e.Legacy)
}

func (e *FallbackError) Unwrap() error { return e.Primary }

// CooldownError is the hard rate-limit lockout. The reference behaviour for
// this condition was to kill the whole process; here it is a typed error so
// the caller picks the policy (halt, pause, retry later).
type CooldownError struct {
	Until time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("provider rate-limit lockout, profile creation refused until %s",
		e.Until.Format(time.RFC3339))
}

// ProvisioningError reports that a session's runtime stayed in the "still
// installing" state through every allowed retry.
type ProvisioningError struct {
	ProfileID string
	Attempts  int
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("profile %s: runtime still installing after %d attempts", e.ProfileID, e.Attempts)
}

// GroupError reports an invalid, deleted, or archived group.
type GroupError struct {
	GroupID string
	Msg     string
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group %s: %s", e.GroupID, e.Msg)
}

// IdentifierNotFoundError reports a success response that carried no
// recognizable profile identifier under any known key.
type IdentifierNotFoundError struct {
	Keys []string
}

func (e *IdentifierNotFoundError) Error() string {
	return fmt.Sprintf("create succeeded but response carried no identifier under any of: %s",
		strings.Join(e.Keys, ", "))
}

// remoteMessage classification. The provider signals these conditions only
// through free-text error messages, so substring matching is the contract.
var (
	lockoutMarkers = []string{
		"too many requests",
		"rate limit",
		"temporarily banned",
		"quota exceeded",
	}
	invalidGroupMarkers = []string{
		"group not found",
		"folder not found",
		"group is archived",
		"invalid group",
	}
	installingMarkers = []string{
		"still installing",
		"is installing",
		"being prepared",
		"not ready yet",
	}
)

func matchesAny(msg string, markers []string) bool {
	lower := strings.ToLower(msg)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// isLockoutMessage reports whether a remote error message is a hard
// rate-limit lockout.
func isLockoutMessage(msg string) bool { return matchesAny(msg, lockoutMarkers) }

// isInvalidGroupMessage reports whether a remote error message names a
// deleted or archived group.
func isInvalidGroupMessage(msg string) bool { return matchesAny(msg, invalidGroupMarkers) }

// isInstallingMessage reports whether a remote error message is the
// transient "runtime still installing" state.
func isInstallingMessage(msg string) bool { return matchesAny(msg, installingMarkers) }

// IsCooldown reports whether err is (or wraps) a hard lockout.
func IsCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}

// IsInvalidGroup reports whether err is (or wraps) a group error.
func IsInvalidGroup(err error) bool {
	var ge *GroupError
	return errors.As(err, &ge)
}

// IsTransient reports whether err is (or wraps) a transient remote failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
