package ports

// Archiver abstracts zip archive operations for testability.
// Production code uses ZipArchiver adapter; tests use MockArchiver.
type Archiver interface {
	// Create creates a zip archive at destPath holding each of files,
	// stored under its base name. Returns the number of files archived.
	Create(destPath string, files []string) (fileCount int, err error)

	// List returns a map of entry names to their info from the archive.
	List(zipPath string) (map[string]FileInfo, error)

	// ReadFile reads the contents of the named entry inside a zip archive.
	ReadFile(zipPath, name string) ([]byte, error)
}

// FileInfo contains metadata about a file in an archive.
type FileInfo struct {
	Size  int64
	CRC32 uint32
}
