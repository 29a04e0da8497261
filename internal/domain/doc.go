// Package domain defines the core types of the flowcanvas node graph editor.
//
// This package contains the entities and value objects shared by every other
// layer: typed ports, nodes, edges, graphs, projects and basic geometry.
//
// # Resource Types
//
// Every port declares a ResourceType (text, image, video, audio, ...) and an
// optional ResourceSubtype. IsCompatible gates which output may feed which
// input; MatchScore and BestMatch pick handles when the user drops a
// connection without naming them.
//
// # Graph Model
//
// Node carries a position, a type and a mutable NodeData payload. Nodes are
// created by NewNode, mutated through Move and UpdateData, and destroyed by
// Graph.DeleteNodes, which also removes touching edges.
//
// Edge links an output handle to an input handle. Inputs accept one edge
// unless their PortDefinition is Multiple.
//
// Group nodes own children through ParentID. CreateGroup and Ungroup manage
// that relationship; keeping the group rectangle current while children move
// is done by the layout package.
//
// # Results
//
// Node executions produce a tagged Result instead of an untyped blob. Inputs
// are delivered as a Value, either a scalar or a list.
//
// # Design Principles
//
// - No database or external dependencies beyond id generation
// - Geometry is derived elsewhere and never stored on nodes (except group size)
// - Pure functions for compatibility decisions
package domain
