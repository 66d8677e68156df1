package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy = "E_WORLD_BUSY"

	// Station layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoBehaviour   = "E_NO_BEHAVIOUR"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNotIngredient = "E_NOT_INGREDIENT"
	ErrFull          = "E_FULL"
	ErrEmpty         = "E_EMPTY"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrBadRequest:      {},
	ErrNoBehaviour:     {},
	ErrInvalidTarget:   {},
	ErrNotIngredient:   {},
	ErrFull:            {},
	ErrEmpty:           {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
