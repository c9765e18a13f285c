package bus

import (
	"errors"

	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var (
	ErrPortUnknown   = errors.New(f("port unknown"))
	ErrPortDuplicate = errors.New(f("port duplicated"))
	ErrPortLimit     = errors.New(f("too many ports"))
	ErrWidth         = errors.New(f("bus width invalid"))
)

// ErrPort identifies the port name that a registry lookup failed on.
type ErrPort struct {
	Name string
	Err  error
}

func (err *ErrPort) Error() string {
	return f("port '%v' %v", err.Name, err.Err)
}

func (err *ErrPort) Unwrap() error {
	return err.Err
}
