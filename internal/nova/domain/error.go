package domain

import "errors"

var (
	ErrFlavorNotFound  = errors.New("flavor not found")
	ErrFlavorNameTaken = errors.New("flavor name already exists")
	ErrFlavorInUse     = errors.New("flavor is in use by existing servers")

	ErrServerNotFound = errors.New("server not found")
	// ErrInvalidServerState is returned when an action is requested
	// against a server whose status does not allow it.
	ErrInvalidServerState = errors.New("server state does not allow this action")

	ErrKeyPairNotFound  = errors.New("keypair not found")
	ErrKeyPairNameTaken = errors.New("keypair name already exists")

	// ErrBadRequest covers malformed create requests, such as a missing
	// image reference or an unknown flavor reference.
	ErrBadRequest = errors.New("bad request")
)
