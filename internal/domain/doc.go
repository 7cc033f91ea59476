// Package domain defines the core domain types for the topolab network topology engine.
//
// This package contains the entities and value objects shared by every other
// package: the closed catalog of component types, components, connections,
// per-component fault status and the persisted topology document.
//
// # Core Types
//
// ComponentType is a closed, string-tagged enumeration of device kinds. Each type
// carries catalog metadata (display name, category) and derived capabilities such
// as CanBeClient and SupportsCustomColor.
//
// Component represents a placed device on the canvas with a stable id, a type,
// a position and optional cosmetic attributes (custom color, area size).
//
// Connection represents an undirected link between two components. Two
// connections with the same unordered endpoint pair are the same connection.
//
// Status is the concrete, fault-visible state of a component that problems
// toggle (power, link, addressing, latency and so on).
//
// Document is the persisted form of a topology: ordered component and
// connection lists.
//
// # Design Principles
//
// - Cross references are ids, never pointers
// - No database or transport concerns
// - Closed enumerations dispatched through switch statements
package domain
