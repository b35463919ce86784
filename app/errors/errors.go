package errors

import (
	"errors"
	"log/slog"
	"slices"
)

// Log writes err at the error level. The metadata of a StructuredError is
// written as attributes sorted by key, after its cause. A nil logger uses the
// slog default.
func Log(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var serr *StructuredError
	if !errors.As(err, &serr) {
		logger.Error(err.Error())
		return
	}

	args := make([]any, 0, len(serr.metadata)*2+2)
	if serr.cause != nil {
		args = append(args, "cause", serr.cause)
	}

	keys := make([]string, 0, len(serr.metadata))
	for k := range serr.metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		args = append(args, k, serr.metadata[k])
	}

	logger.Error(serr.Error(), args...)
}
