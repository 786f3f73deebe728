package southbound

import (
	"errors"
	"fmt"
)

var ErrUnavailable = fmt.Errorf("southbound dataplane unavailable")

// ErrTableFull is returned when the dataplane has no room for another object.
var ErrTableFull = errors.New("dataplane table full")

type Southbound interface {
	RouterInterfaces
	Routes
}
