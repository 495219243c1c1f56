package geojoin

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ArchiveDataset bundles every sibling file sharing the dataset's base
// name (any extension except .zip) into "{base}.zip" next to it and
// returns the archive path. With deleteOriginals the bundled files are
// removed as a best-effort final step regardless of whether archiving
// succeeded; a removal failure never masks the archive error. A failed
// archive write removes the partial .zip before returning.
func ArchiveDataset(path string, deleteOriginals bool) (string, error) {
	dir := filepath.Dir(path)
	base := baseName(path)
	zipPath := filepath.Join(dir, base+".zip")

	members, err := siblingFiles(dir, base)

	if deleteOriginals {
		defer func() {
			for _, m := range members {
				_ = os.Remove(m)
			}
		}()
	}

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveWrite, err)
	}
	if err := writeArchive(zipPath, members); err != nil {
		_ = os.Remove(zipPath)
		return "", err
	}
	return zipPath, nil
}

// siblingFiles lists the files in dir whose name before the final
// extension equals base, excluding archives.
func siblingFiles(dir, base string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var members []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) == ".zip" {
			continue
		}
		if baseName(name) == base {
			members = append(members, filepath.Join(dir, name))
		}
	}
	return members, nil
}

func writeArchive(zipPath string, members []string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWrite, err)
	}
	zw := zip.NewWriter(f)

	for _, m := range members {
		if err := addMember(zw, m); err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("%w: %s: %v", ErrArchiveWrite, m, err)
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrArchiveWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveWrite, err)
	}
	return nil
}

func addMember(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
