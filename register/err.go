package register

import (
	"errors"

	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var (
	ErrWidth = errors.New(f("register width invalid"))
)
