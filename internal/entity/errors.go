package entity

import "errors"

// ErrDataIntegrity marks a record rejected at the cache boundary, such as an
// activity whose owning lead is unknown.
var ErrDataIntegrity = errors.New("data integrity violation")
