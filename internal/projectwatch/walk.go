package projectwatch

import (
	"os"
	"path/filepath"
)

// walkDirs calls fn for root and every directory beneath it. Unlike
// FileInventory's scan, this doesn't need node_modules/platforms
// exclusion rules — the front end only ever points it at the app tree.
func walkDirs(root string, fn func(dir string) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		return fn(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
