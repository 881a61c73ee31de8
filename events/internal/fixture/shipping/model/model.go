// Package model declares shipping payloads for the events tests. Its type names
// deliberately match those of the sibling fixture package.
package model

type Created struct {
	ID string
}
