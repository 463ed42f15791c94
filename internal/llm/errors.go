package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks API failures that will not resolve on their own
// (bad credentials, exhausted billing). Callers should stop the batch
// instead of burning one failed request per remaining marker.
//
// Transient throttling (HTTP 429 / rate limits) is deliberately NOT
// fatal: a concurrent batch against a metered API hits it routinely,
// and such failures must stay isolated to the one marker that saw them.
var ErrFatalAPI = errors.New("fatal API error")

// fatalPatterns are matched case-insensitively against error text.
// Provider SDKs don't expose structured error codes uniformly, so
// substring matching is the pragmatic option. Only permanent
// credential and billing failures belong here.
var fatalPatterns = []string{
	"credit balance",
	"insufficient credit",
	"insufficient quota",
	"insufficient_quota",
	"billing",
	"invalid api key",
	"incorrect api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// wrapFatalError tags fatal API errors with ErrFatalAPI so callers can
// test with errors.Is. Non-fatal errors pass through unchanged.
func wrapFatalError(err error) error {
	if err == nil {
		return nil
	}
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
