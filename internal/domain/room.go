package domain

// RoomName keys one shared canvas. The model is room-keyed throughout even
// though the reference deployment runs a single table.
type RoomName string

// DefaultRoom is the table every connection lands on.
const DefaultRoom RoomName = "main"
