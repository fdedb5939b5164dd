/*
Package filesystem provides the file operations the processing pipeline relies on
when artifacts move between a scratch area and their final destination.

# Key Features

  - Move renames within a filesystem and falls back to copy+remove across devices
    (the ephemeral temp area and the downloads folder are often different mounts)
  - ClearDir empties a directory best effort, reporting how many entries survived
  - DirStats sums file count and size for metrics collection
  - IsSafeName rejects user-supplied file names that could escape a directory

# Usage

	if err := filesystem.Move(src, dst); err != nil {
		return fmt.Errorf("failed to finalize artifact: %w", err)
	}

	if failed := filesystem.ClearDir(tempDir); failed > 0 {
		logging.Warn("%d temp entries could not be removed", failed)
	}
*/
package filesystem
