package scripts

import "errors"

var ErrParse = errors.New("parse failed")
