package models

// Preferences are the user's persisted launcher settings
type Preferences struct {
	RememberUsername bool   `json:"remember_username"`
	LastUsername     string `json:"last_username"`
	RAMAllocation    int    `json:"ram_allocation"`
}

// ServerStatus is the reachability of a configured game server
type ServerStatus struct {
	Server ServerConfig `json:"server"`
	Online bool         `json:"online"`
}
