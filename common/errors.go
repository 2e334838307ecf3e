package common

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	ErrChannelNotFound        = xerrors.New("channel not found")
	ErrNoPaymentRecorded      = xerrors.New("no payment recorded for channel")
	ErrUnsupportedRemoteState = xerrors.New("unsupported channel state")
	ErrRemoteCallFailed       = xerrors.New("remote call failed")
	ErrRefusedByPredicate     = xerrors.New("refused by remote ledger")
	ErrOverspend              = xerrors.New("spent exceeds channel value")
	ErrNotParticipant         = xerrors.New("account is neither sender nor receiver of channel")
	ErrInvalidChannelID       = xerrors.New("invalid channel id")
	ErrUnknownRole            = xerrors.New("unknown role")
)

// RemoteCallError marks a failure returned by the remote ledger. It matches
// ErrRemoteCallFailed and unwraps to the cause.
type RemoteCallError struct {
	Op  string
	Err error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call %s failed: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

func (e *RemoteCallError) Is(target error) bool {
	return target == ErrRemoteCallFailed
}

func RemoteCallFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteCallError{Op: op, Err: err}
}
