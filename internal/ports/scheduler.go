package ports

// Scheduler abstracts the macOS launchd agent that runs periodic backups.
// Production code uses MacLaunchdService adapter; tests use MockScheduler.
type Scheduler interface {
	// PlistPath returns the path where the plist file should be stored.
	PlistPath() string

	// LogPath returns the path where logs should be written.
	LogPath() string

	// Install creates the plist file and loads the agent, which runs
	// "genbak backup <workFile> --root=<root>" every intervalMinutes.
	Install(execPath, workFile, root string, intervalMinutes int) error

	// Uninstall unloads the agent and removes the plist file.
	Uninstall() error

	// IsInstalled checks if the agent is currently installed.
	IsInstalled() bool

	// Status returns "loaded", "not loaded" or "not installed".
	Status() string
}
