package compressor

import (
	"archive/zip"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// ZipFiles writes files into the zip archive destZip, creating its parent
// directories. Keys are slash separated paths inside the archive; a
// directory entry is added for every parent.
// example usage:
// err := ZipFiles("out/builders.zip", map[string][]byte{"model/zz_generated.builders.go": src})
func ZipFiles(destZip string, files map[string][]byte) error {
	if err := os.MkdirAll(filepath.Dir(destZip), os.ModePerm); err != nil {
		return err
	}
	zipfile, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer zipfile.Close()

	archive := zip.NewWriter(zipfile)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	dirs := map[string]bool{}
	for _, name := range names {
		if err := addDirs(archive, path.Dir(name), dirs); err != nil {
			return err
		}
		f, err := archive.Create(name)
		if err != nil {
			return err
		}
		if _, err := f.Write(files[name]); err != nil {
			return err
		}
	}
	if err := archive.Close(); err != nil {
		return err
	}
	return zipfile.Close()
}

func addDirs(archive *zip.Writer, dir string, seen map[string]bool) error {
	if dir == "." || dir == "/" || seen[dir] {
		return nil
	}
	if err := addDirs(archive, path.Dir(dir), seen); err != nil {
		return err
	}
	seen[dir] = true
	_, err := archive.Create(dir + "/")
	return err
}
