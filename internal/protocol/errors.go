package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrEmptyView    = "E_EMPTY_VIEW"
	ErrNoCursor     = "E_NO_CURSOR"
	ErrViewTooLarge = "E_VIEW_TOO_LARGE"
	ErrUnknownOp    = "E_UNKNOWN_OP"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrEmptyView:       {},
	ErrNoCursor:        {},
	ErrViewTooLarge:    {},
	ErrUnknownOp:       {},
	ErrInternal:        {},
}

// IsKnownCode reports whether code is empty (success) or a defined E_* code.
func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
