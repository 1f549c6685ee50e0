package params

const (
	// KeyPlatform stores the platform configuration singleton.
	KeyPlatform = "bounty/platform"
	// KeyPauses stores the module pause configuration.
	KeyPauses = "bounty/pauses"
)
