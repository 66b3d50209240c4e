package service

import "errors"

// ErrServiceNotReady is returned when a request arrives while the
// service is not accepting work.
var ErrServiceNotReady = errors.New("service not accepting requests")
