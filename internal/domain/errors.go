package domain

import "errors"

var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrEdgeNotFound      = errors.New("edge not found")
	ErrDuplicateNode     = errors.New("node already exists")
	ErrSelfConnection    = errors.New("cannot connect a node to itself")
	ErrPortNotFound      = errors.New("port not found")
	ErrIncompatiblePorts = errors.New("ports are not compatible")
	ErrHandleOccupied    = errors.New("input handle already connected")
	ErrDuplicateEdge     = errors.New("edge already exists")
	ErrNotGroup          = errors.New("node is not a group")
	ErrEmptySelection    = errors.New("no nodes selected")
)
