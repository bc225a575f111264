package world

// OpEntry records one applied mutating command.
type OpEntry struct {
	Seq     uint64  `json:"seq"`
	Session string  `json:"session"`
	Op      string  `json:"op"`
	Pos     *[2]int `json:"pos,omitempty"`
	Value   *uint16 `json:"value,omitempty"`
	Chunk   *[2]int `json:"chunk,omitempty"`
}

// OpSink receives audit entries. Implementations must not block the world
// loop; drop rather than stall.
type OpSink interface {
	WriteOp(OpEntry)
}
