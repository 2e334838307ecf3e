package common

import (
	"strings"

	"golang.org/x/xerrors"
)

// Role is the side of a channel the local process acts for. It doubles as
// the storage namespace.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

var Roles = []Role{RoleSender, RoleReceiver}

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSender:
		return RoleSender, nil
	case RoleReceiver:
		return RoleReceiver, nil
	default:
		return "", xerrors.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) String() string {
	return string(r)
}
