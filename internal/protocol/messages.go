package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	GridParams      GridParams `json:"grid_params"`
}

type GridParams struct {
	ChunkSize   int    `json:"chunk_size"`
	DefaultCell uint16 `json:"default_cell"`
	Seed        int64  `json:"seed"`
}

// CMD (client -> server): one grid operation. Fields beyond Op are
// op-specific; unused ones stay nil/zero.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`

	Pos   *[2]int `json:"pos,omitempty"`
	Value *uint16 `json:"value,omitempty"`
	Chunk *[2]int `json:"chunk,omitempty"`
	W     int     `json:"w,omitempty"`
	H     int     `json:"h,omitempty"`
}

// RESULT (server -> client): outcome of one CMD, correlated by ID.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Value   *uint16      `json:"value,omitempty"`
	Removed *bool        `json:"removed,omitempty"`
	Chunk   *[2]int      `json:"chunk,omitempty"`
	Local   *[2]int      `json:"local,omitempty"`
	Context *ChunkCtx    `json:"context,omitempty"`
	View    *ViewPayload `json:"view,omitempty"`
}

// ChunkCtx is the wire form of a chunk's lazily-built context.
type ChunkCtx struct {
	Biome string `json:"biome"`
	Noise uint64 `json:"noise"`
}

// ViewPayload carries a dense rectangular snapshot, cells RLE-encoded
// row-major (rows are the Y axis, columns the X axis).
type ViewPayload struct {
	Origin   [2]int `json:"origin"`
	W        int    `json:"w"`
	H        int    `json:"h"`
	Encoding string `json:"encoding"` // "RLE"
	Data     string `json:"data"`
}
