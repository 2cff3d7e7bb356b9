package config

// Section is one registered configuration block. Sections own their
// typed fields and translate to and from the store's untyped maps.
type Section interface {
	// ID is the stable key the section is stored under.
	ID() string

	// Title is a short human-readable name.
	Title() string

	// Description explains what the section configures.
	Description() string

	// Data returns the section's current values as a serializable map.
	Data() map[string]interface{}

	// SetData applies values from the store. Unknown keys are ignored,
	// missing keys leave the current value in place.
	SetData(data map[string]interface{}) error

	// Validate checks the section's current values.
	Validate() error

	// Reset restores the section's defaults.
	Reset()
}
