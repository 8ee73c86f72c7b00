package server

// FileEntry is one row of the files API.
type FileEntry struct {
	Filename string  `json:"filename"`
	Modified float64 `json:"modified"`
	Size     int64   `json:"size"`
}

// FileListing is the result shape of server.files.list.
type FileListing struct {
	Files []FileEntry `json:"files"`
	Dirs  []string    `json:"dirs"`
}

// FileLister is the file-listing collaborator. On-disk listing is outside the
// engine's scope; the simulator ships a canned implementation and real
// deployments may substitute their own.
type FileLister interface {
	ListFiles(root string) (FileListing, error)
}

// SimulatedFiles serves a fixed gcode listing, enough for clients that browse
// before starting a print.
type SimulatedFiles struct{}

// ListFiles returns the canned listing for any root.
func (SimulatedFiles) ListFiles(root string) (FileListing, error) {
	return FileListing{
		Files: []FileEntry{
			{Filename: "test.gcode", Modified: 1700000000, Size: 1024},
			{Filename: "benchy.gcode", Modified: 1700000100, Size: 482133},
		},
		Dirs: []string{},
	}, nil
}
