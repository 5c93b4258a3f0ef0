package main

import "errors"

// configError marks failures that happen before any component starts.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

func asConfigError(err error, target *configError) bool {
	return errors.As(err, target)
}
