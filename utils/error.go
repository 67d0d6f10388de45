package utils

import "errors"

// ErrorRecordNotFound is the generic lookup failure surfaced as HTTP 404.
var ErrorRecordNotFound = errors.New("record not found")
