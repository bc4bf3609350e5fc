package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUpstream marks a network failure, a timeout or a non-2xx answer
	// from the completion service.
	ErrUpstream = errors.New("upstream communication failure")
	// ErrUnparseable marks a completion that arrived but carried no usable
	// text.
	ErrUnparseable = errors.New("unparseable upstream response")
)

// classify wraps a transport error from a provider SDK in one of the two
// sentinels. Body decoding failures are unparseable, everything else is
// treated as an upstream failure.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstream) || errors.Is(err, ErrUnparseable) {
		return err
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w", provider, ErrUnparseable, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrUpstream, err)
}

func emptyCompletion(provider string) error {
	return fmt.Errorf("%s: %w: completion has no text", provider, ErrUnparseable)
}
