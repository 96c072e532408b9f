package output

// EntityInfo is one entity in list output.
type EntityInfo struct {
	Position     int      `json:"position"`
	Kind         string   `json:"kind"`
	Identifier   string   `json:"identifier"`
	Location     string   `json:"location"`
	Schema       string   `json:"schema,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Upstream     int      `json:"upstream"`
}

// ListOutput is the JSON shape of the list command.
type ListOutput struct {
	Extension string       `json:"extension"`
	Entities  []EntityInfo `json:"entities"`
	Summary   ListSummary  `json:"summary"`
}

// ListSummary counts entities by kind.
type ListSummary struct {
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

// CheckOutput is the JSON shape of the check command.
type CheckOutput struct {
	Extension string   `json:"extension"`
	Version   string   `json:"version,omitempty"`
	Files     []string `json:"files"`
	Nodes     int      `json:"nodes"`
	Edges     int      `json:"edges"`
	Bytes     int      `json:"bytes"`
	Depth     int      `json:"depth"`
	Digest    string   `json:"digest"`
}

// GenerateOutput is the JSON shape of the generate command.
type GenerateOutput struct {
	Extension string `json:"extension"`
	Script    string `json:"script"`
	DOT       string `json:"dot,omitempty"`
	Bytes     int    `json:"bytes"`
	Digest    string `json:"digest"`
}
