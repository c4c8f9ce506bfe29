package metrics

import "errors"

var errNoRecorder = errors.New("metrics api requires a recorder")
