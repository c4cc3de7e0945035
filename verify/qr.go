package verify

import (
	"strconv"
	"strings"

	clienterrors "github.com/ticketbase/ticketd/errors"
)

// ParseCandidate extracts a token id from scanner input. Ticket QR codes
// encode a multi-line payload with an "ID:<n>" line; operators may also
// key in the bare numeric id.
func ParseCandidate(payload string) (uint64, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0, clienterrors.NewInvalidInput("candidate token id")
	}

	candidate := payload
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "ID:"); ok {
			candidate = strings.TrimSpace(rest)
			break
		}
	}

	id, err := strconv.ParseUint(candidate, 10, 64)
	if err != nil {
		return 0, clienterrors.Newf(clienterrors.CodeValidation, "unrecognized ticket payload %q", payload)
	}
	return id, nil
}
