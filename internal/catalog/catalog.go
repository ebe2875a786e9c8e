// Package catalog stores pipeline inputs and outputs on the local file
// system, registering every object in the run history database. It serves
// the same calls as the remote services so a run can work fully offline.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/me/mgasm/pkg/model"
)

// RefPrefix starts every local object reference.
const RefPrefix = "local"

var (
	// ErrNotFound is returned for references the catalog does not hold.
	ErrNotFound = errors.New("object not found")

	// ErrWrongKind is returned when a reference names an object of another kind.
	ErrWrongKind = errors.New("object has the wrong kind")
)

// ObjectStore is the object registry the catalog writes to.
type ObjectStore interface {
	CreateObject(ctx context.Context, obj *model.StoredObject) error
	GetObject(ctx context.Context, ref string) (*model.StoredObject, error)
	ListObjects(ctx context.Context, kind string) ([]*model.StoredObject, error)
}

// Catalog is a file system backed object store.
type Catalog struct {
	root    string
	objects ObjectStore
	logger  *slog.Logger
}

// New returns a Catalog that keeps files under root.
func New(root string, objects ObjectStore, logger *slog.Logger) (*Catalog, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create catalog root: %w", err)
	}
	return &Catalog{
		root:    root,
		objects: objects,
		logger:  logger.With("component", "catalog"),
	}, nil
}

// Ref builds the reference of a local object.
func Ref(kind, id string) string {
	return RefPrefix + "/" + kind + "/" + id
}

// IsRef reports whether ref names a local object.
func IsRef(ref string) bool {
	return strings.HasPrefix(ref, RefPrefix+"/")
}

// ImportReads copies an interleaved FASTQ file into the catalog and returns
// the reads reference to run the pipeline on.
func (c *Catalog) ImportReads(ctx context.Context, path, name string) (string, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	obj, err := c.store(ctx, model.KindReads, path, name, "", map[string]string{"source": "import"})
	if err != nil {
		return "", fmt.Errorf("import reads: %w", err)
	}
	return obj.Ref, nil
}

// List returns the catalog's objects of one kind, or all when kind is empty.
func (c *Catalog) List(ctx context.Context, kind string) ([]*model.StoredObject, error) {
	return c.objects.ListObjects(ctx, kind)
}

// DownloadReads resolves reads references to the files held for them.
func (c *Catalog) DownloadReads(ctx context.Context, refs []string) (map[string]string, error) {
	paths := make(map[string]string, len(refs))
	for _, ref := range refs {
		obj, err := c.lookup(ctx, ref, model.KindReads)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(obj.Path); err != nil {
			return nil, fmt.Errorf("reads %s: %w", ref, err)
		}
		paths[ref] = obj.Path
	}
	return paths, nil
}

// UploadReads stores a reads file.
func (c *Catalog) UploadReads(ctx context.Context, req model.ReadsUpload) (string, error) {
	var meta map[string]string
	if req.SourceRef != "" {
		meta = map[string]string{"source_ref": req.SourceRef}
	}
	obj, err := c.store(ctx, model.KindReads, req.Path, req.Name, req.Workspace, meta)
	if err != nil {
		return "", fmt.Errorf("upload reads %s: %w", req.Name, err)
	}
	return obj.Ref, nil
}

// SaveAssembly stores an assembly FASTA file.
func (c *Catalog) SaveAssembly(ctx context.Context, req model.AssemblyUpload) (string, error) {
	obj, err := c.store(ctx, model.KindAssembly, req.Path, req.Name, req.Workspace, nil)
	if err != nil {
		return "", fmt.Errorf("save assembly %s: %w", req.Name, err)
	}
	return obj.Ref, nil
}

// SaveAlignment stores an alignment file. Both the reads and the assembly it
// links must already be held by the catalog.
func (c *Catalog) SaveAlignment(ctx context.Context, req model.AlignmentUpload) (string, error) {
	if _, err := c.lookup(ctx, req.ReadsRef, model.KindReads); err != nil {
		return "", fmt.Errorf("save alignment %s: %w", req.Name, err)
	}
	if _, err := c.lookup(ctx, req.AssemblyRef, model.KindAssembly); err != nil {
		return "", fmt.Errorf("save alignment %s: %w", req.Name, err)
	}
	meta := map[string]string{"reads_ref": req.ReadsRef, "assembly_ref": req.AssemblyRef}
	obj, err := c.store(ctx, model.KindAlignment, req.Path, req.Name, req.Workspace, meta)
	if err != nil {
		return "", fmt.Errorf("save alignment %s: %w", req.Name, err)
	}
	return obj.Ref, nil
}

// PublishReport copies the report directory into the catalog and records a
// report object whose path is the report's HTML page.
func (c *Catalog) PublishReport(ctx context.Context, req model.ReportRequest) (model.ReportInfo, error) {
	id := uuid.NewString()
	dir := filepath.Join(c.root, model.KindReport, id)
	if err := copyDir(req.Dir, dir); err != nil {
		return model.ReportInfo{}, fmt.Errorf("publish report: %w", err)
	}

	refs := make([]string, 0, len(req.Objects))
	for _, o := range req.Objects {
		refs = append(refs, o.Ref)
	}
	meta := map[string]string{
		"message": req.Message,
		"objects": strings.Join(refs, ","),
	}
	if req.ArchiveFile != "" {
		meta["archive"] = filepath.Join(dir, req.ArchiveFile)
	}

	obj := &model.StoredObject{
		Ref:       Ref(model.KindReport, id),
		Kind:      model.KindReport,
		Name:      req.ObjectName,
		Workspace: req.Workspace,
		Path:      filepath.Join(dir, req.HTMLFile),
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.objects.CreateObject(ctx, obj); err != nil {
		return model.ReportInfo{}, fmt.Errorf("publish report: %w", err)
	}
	c.logger.Info("report published", "ref", obj.Ref, "name", obj.Name)
	return model.ReportInfo{Name: obj.Name, Ref: obj.Ref}, nil
}

func (c *Catalog) lookup(ctx context.Context, ref, kind string) (*model.StoredObject, error) {
	obj, err := c.objects.GetObject(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", ref, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if obj.Kind != kind {
		return nil, fmt.Errorf("%s is %s, want %s: %w", ref, obj.Kind, kind, ErrWrongKind)
	}
	return obj, nil
}

// store copies src to <root>/<kind>/<id>/ and registers it.
func (c *Catalog) store(ctx context.Context, kind, src, name, workspace string, meta map[string]string) (*model.StoredObject, error) {
	id := uuid.NewString()
	dst := filepath.Join(c.root, kind, id, filepath.Base(src))
	size, err := copyFile(src, dst)
	if err != nil {
		return nil, err
	}

	obj := &model.StoredObject{
		Ref:       Ref(kind, id),
		Kind:      kind,
		Name:      name,
		Workspace: workspace,
		Path:      dst,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.objects.CreateObject(ctx, obj); err != nil {
		os.RemoveAll(filepath.Dir(dst))
		return nil, err
	}
	c.logger.Info("object stored", "ref", obj.Ref, "name", name, "size", humanize.Bytes(uint64(size)))
	return obj, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return 0, err
	}
	return n, out.Close()
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		_, err = copyFile(path, target)
		return err
	})
}
