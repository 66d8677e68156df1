package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ActorName       string `json:"actor_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ActorID         string         `json:"actor_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	MaxLevel        int            `json:"max_level"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	ItemPalette string `json:"item_palette"`
	Items       string `json:"items"`
	Colours     string `json:"colours"`
	Brew        string `json:"brew"`
}

// IngredientPayload is the ingredient a filled container carries. Unset strength/flair are
// generated by the station.
type IngredientPayload struct {
	ID       string `json:"id"`
	Strength *int   `json:"strength,omitempty"`
	Flair    *int   `json:"flair,omitempty"`
	Colour   string `json:"colour,omitempty"`
}

type ItemStack struct {
	Item    string             `json:"item"`
	Payload *IngredientPayload `json:"payload,omitempty"`
}

// INTERACT (client -> server)
type InteractMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	RequestID       string    `json:"request_id,omitempty"`
	Pos             [3]int    `json:"pos"`
	Held            ItemStack `json:"held"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RequestID       string     `json:"request_id,omitempty"`
	Tick            uint64     `json:"tick"`
	Pos             [3]int     `json:"pos"`
	Result          string     `json:"result"` // "APPLIED","IGNORED"
	Code            string     `json:"code,omitempty"`
	Message         string     `json:"message,omitempty"`
	Held            *ItemStack `json:"held,omitempty"`
	Level           int        `json:"level"`
}

// VIEW (client -> server)
type ViewMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Pos             [3]int `json:"pos"`
}

// VESSEL (server -> client)
type VesselMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	RequestID       string             `json:"request_id,omitempty"`
	Tick            uint64             `json:"tick"`
	Pos             [3]int             `json:"pos"`
	Level           int                `json:"level"`
	State           string             `json:"state"`
	Dominant        *IngredientPayload `json:"dominant,omitempty"`
	Tier            int                `json:"tier"`
	Colour          string             `json:"colour,omitempty"`
	Label           string             `json:"label,omitempty"`
	Flair           string             `json:"flair,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
