package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/me/mgasm/internal/logging"
	"github.com/me/mgasm/pkg/model"
)

// Report page constants.
const (
	HTMLName      = "index.html"
	Message       = "JGI metagenome assembly report"
	ObjectPrefix  = "mg_assembly_report_"
	reportTitle   = "JGI Metagenome Assembly Report"
	dirNamePrefix = "report_"
)

// Publisher stores a directory of report assets and links it to objects.
type Publisher interface {
	PublishReport(ctx context.Context, req model.ReportRequest) (model.ReportInfo, error)
}

// Published is the outcome of Make.
type Published struct {
	Info        model.ReportInfo
	Dir         string
	ArchivePath string
	Metrics     Metrics
}

// Reporter builds and publishes run reports.
type Reporter struct {
	publisher  Publisher
	scratchDir string
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Reporter that writes report directories under scratchDir.
func New(publisher Publisher, scratchDir string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reporter{
		publisher:  publisher,
		scratchDir: scratchDir,
		logger:     logger.With("component", "report"),
		now:        time.Now,
	}
}

// Make derives the report metrics, writes the report page and output archive
// into a fresh directory, and publishes it with links to the stored objects.
func (r *Reporter) Make(ctx context.Context, in Input) (*Published, error) {
	if err := CheckInput(in); err != nil {
		return nil, err
	}

	metrics := ComputeMetrics(in.Result)
	if metrics.Alignment.Error != "" {
		r.logger.Warn("alignment summary unavailable", "error", metrics.Alignment.Error)
	}
	body, err := Body(in.Result, metrics)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	dir := filepath.Join(r.scratchDir, dirNamePrefix+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	archivePath := filepath.Join(dir, ArchiveName)
	if err := WriteArchive(archivePath, in.Result.OutputDir, in.Result.Filter.RunLog); err != nil {
		return nil, err
	}

	var objects []model.ReportObject
	if in.Manifest != nil {
		for _, e := range in.Manifest.Entries {
			objects = append(objects, model.ReportObject{Ref: e.Ref, Description: e.Description})
		}
	}

	f, err := os.Create(filepath.Join(dir, HTMLName))
	if err != nil {
		return nil, fmt.Errorf("create report page: %w", err)
	}
	err = renderHTML(f, pageData{
		Title:     reportTitle,
		Body:      body,
		Reads:     readCounts(in.Result),
		Objects:   objects,
		Archive:   ArchiveName,
		Generated: r.now(),
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write report page: %w", err)
	}

	info, err := r.publisher.PublishReport(ctx, model.ReportRequest{
		Dir:         dir,
		HTMLFile:    HTMLName,
		ArchiveFile: ArchiveName,
		ObjectName:  ObjectPrefix + id,
		Workspace:   in.Workspace,
		Message:     Message,
		Objects:     objects,
	})
	if err != nil {
		return nil, fmt.Errorf("publish report: %w", err)
	}

	r.logger.Info("report published", "name", info.Name, "ref", info.Ref, "objects", len(objects))
	return &Published{Info: info, Dir: dir, ArchivePath: archivePath, Metrics: metrics}, nil
}
