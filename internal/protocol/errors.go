package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBadFrame        = "E_BAD_FRAME"
	ErrBadVersion      = "E_BAD_VERSION"

	// Feed routing/state.
	ErrFeedBusy    = "E_FEED_BUSY"
	ErrUnknownArea = "E_UNKNOWN_AREA"
	ErrBadControl  = "E_BAD_CONTROL"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadFrame:        {},
	ErrBadVersion:      {},
	ErrFeedBusy:        {},
	ErrUnknownArea:     {},
	ErrBadControl:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
