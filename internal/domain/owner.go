package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type ownerKind uint8

const (
	ownerNone ownerKind = iota
	ownerUser
	ownerSession
)

// Owner identifies who a cart belongs to: an authenticated user or an
// anonymous session, never both. The zero value is not a valid owner.
type Owner struct {
	kind    ownerKind
	userID  int64
	session string
}

func UserOwner(userID int64) Owner {
	return Owner{kind: ownerUser, userID: userID}
}

func SessionOwner(token string) Owner {
	return Owner{kind: ownerSession, session: token}
}

func (o Owner) IsUser() bool    { return o.kind == ownerUser }
func (o Owner) IsSession() bool { return o.kind == ownerSession }

// Valid reports whether the owner carries a usable identity.
func (o Owner) Valid() bool {
	switch o.kind {
	case ownerUser:
		return o.userID > 0
	case ownerSession:
		return strings.TrimSpace(o.session) != ""
	default:
		return false
	}
}

// UserID returns the user id and true for user owners.
func (o Owner) UserID() (int64, bool) {
	return o.userID, o.kind == ownerUser
}

// Session returns the session token and true for session owners.
func (o Owner) Session() (string, bool) {
	return o.session, o.kind == ownerSession
}

// Key is the value stored in Cart.ActiveKey while the cart is active.
func (o Owner) Key() string {
	switch o.kind {
	case ownerUser:
		return "user:" + strconv.FormatInt(o.userID, 10)
	case ownerSession:
		return "session:" + o.session
	default:
		return ""
	}
}

func (o Owner) String() string {
	if !o.Valid() {
		return "owner(none)"
	}
	return fmt.Sprintf("owner(%s)", o.Key())
}
