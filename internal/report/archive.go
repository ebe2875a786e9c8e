package report

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/me/mgasm/pkg/model"
)

// ArchiveName is the downloadable bundle of pipeline outputs.
const ArchiveName = "pipeline_output.zip"

// ArchivedStages are the stage directories bundled into the archive.
var ArchivedStages = []string{
	model.StageReadLength,
	model.StageStats,
	model.StageScaffoldPolish,
	model.StageCoverageMapper,
}

// WriteArchive zips the archived stage directories under outputDir, plus
// extra files, into dst. Entries are named relative to outputDir; extra files
// outside it keep only their base name. Missing stage directories are
// skipped.
func WriteArchive(dst, outputDir string, extra ...string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)

	err = func() error {
		for _, stage := range ArchivedStages {
			root := filepath.Join(outputDir, stage)
			if _, err := os.Stat(root); os.IsNotExist(err) {
				continue
			}
			walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(outputDir, path)
				if err != nil {
					return err
				}
				return addFile(zw, path, filepath.ToSlash(rel))
			})
			if walkErr != nil {
				return fmt.Errorf("archive %s: %w", stage, walkErr)
			}
		}
		for _, path := range extra {
			name := filepath.Base(path)
			if rel, err := filepath.Rel(outputDir, path); err == nil && filepath.IsLocal(rel) {
				name = filepath.ToSlash(rel)
			}
			if err := addFile(zw, path, name); err != nil {
				return fmt.Errorf("archive %s: %w", path, err)
			}
		}
		return nil
	}()
	if err != nil {
		zw.Close()
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finish archive: %w", err)
	}
	return out.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
