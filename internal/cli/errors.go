package cli

import (
	"errors"
	"fmt"
)

var errLocalOnly = errors.New("this command needs a local database (drop --remote)")

type missingFlagError struct {
	flag string
}

func (e missingFlagError) Error() string {
	return fmt.Sprintf("missing %s", e.flag)
}

func errMissingFlag(flag string) error {
	return missingFlagError{flag: flag}
}
