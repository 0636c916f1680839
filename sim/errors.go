package sim

import "errors"

var ErrOffline = errors.New("peer is offline")
