package model

// RegistryEntry is one registry name with its decoded descriptor, or the
// reason it cannot be decoded.
type RegistryEntry struct {
	SequenceName string `json:"sequence_name"`
	TableName    string `json:"table_name,omitempty"`
	IDColumnName string `json:"id_column_name,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RegistryListing describes the registry without touching the store.
type RegistryListing struct {
	RegistryVersion int             `json:"registry_version"`
	Sequences       []RegistryEntry `json:"sequences"`
}
