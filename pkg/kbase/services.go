package kbase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/me/mgasm/pkg/model"
)

// DownloadReads fetches reads objects as interleaved FASTQ files and returns
// the local path of each, keyed by reference.
func (c *Client) DownloadReads(ctx context.Context, refs []string) (map[string]string, error) {
	result, err := callOne[downloadReadsResult](ctx, c, MethodDownloadReads, downloadReadsParams{
		ReadLibraries: refs,
		Interleaved:   "true",
	})
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string, len(refs))
	for _, ref := range refs {
		reads, ok := result.Files[ref]
		if !ok || reads.Files.Fwd == "" {
			return nil, &Error{Op: MethodDownloadReads, Message: fmt.Sprintf("no file returned for reads %s", ref)}
		}
		paths[ref] = reads.Files.Fwd
	}
	return paths, nil
}

// UploadReads stores an interleaved FASTQ file as a reads object.
func (c *Client) UploadReads(ctx context.Context, req model.ReadsUpload) (string, error) {
	result, err := callOne[objRefResult](ctx, c, MethodUploadReads, uploadReadsParams{
		FwdFile:        req.Path,
		Interleaved:    1,
		WorkspaceName:  req.Workspace,
		Name:           req.Name,
		SourceReadsRef: req.SourceRef,
	})
	if err != nil {
		return "", err
	}
	return requireRef(MethodUploadReads, result.ObjRef)
}

// SaveAssembly stores a FASTA file as an assembly object.
func (c *Client) SaveAssembly(ctx context.Context, req model.AssemblyUpload) (string, error) {
	ref, err := callOne[string](ctx, c, MethodSaveAssembly, saveAssemblyParams{
		File:          fileSpec{Path: req.Path},
		WorkspaceName: req.Workspace,
		AssemblyName:  req.Name,
	})
	if err != nil {
		return "", err
	}
	return requireRef(MethodSaveAssembly, ref)
}

// SaveAlignment stores a SAM file as an alignment of reads against an
// assembly.
func (c *Client) SaveAlignment(ctx context.Context, req model.AlignmentUpload) (string, error) {
	result, err := callOne[objRefResult](ctx, c, MethodUploadAlignment, uploadAlignmentParams{
		DestinationRef:      req.Workspace + "/" + req.Name,
		FilePath:            req.Path,
		ReadLibraryRef:      req.ReadsRef,
		AssemblyOrGenomeRef: req.AssemblyRef,
		Condition:           "unknown",
	})
	if err != nil {
		return "", err
	}
	return requireRef(MethodUploadAlignment, result.ObjRef)
}

// PublishReport zips the report directory into file storage and creates a
// report object whose landing page is the directory's HTML file.
func (c *Client) PublishReport(ctx context.Context, req model.ReportRequest) (model.ReportInfo, error) {
	shock, err := callOne[fileToShockResult](ctx, c, MethodFileToShock, fileToShockParams{
		FilePath: req.Dir,
		Pack:     "zip",
	})
	if err != nil {
		return model.ReportInfo{}, err
	}
	if shock.ShockID == "" {
		return model.ReportInfo{}, &Error{Op: MethodFileToShock, Message: "no shock id returned"}
	}
	c.logger.Debug("report directory uploaded", "shock_id", shock.ShockID, "size", shock.Size)

	params := createReportParams{
		Message:             req.Message,
		ObjectsCreated:      make([]objectCreated, 0, len(req.Objects)),
		DirectHTMLLinkIndex: 0,
		HTMLLinks: []reportLink{{
			ShockID:     shock.ShockID,
			Name:        req.HTMLFile,
			Label:       req.HTMLFile,
			Description: "assembly report",
		}},
		ReportObjectName: req.ObjectName,
		WorkspaceName:    req.Workspace,
	}
	for _, o := range req.Objects {
		params.ObjectsCreated = append(params.ObjectsCreated, objectCreated{Ref: o.Ref, Description: o.Description})
	}
	if req.ArchiveFile != "" {
		params.FileLinks = []reportLink{{
			Path:        filepath.Join(req.Dir, req.ArchiveFile),
			Name:        req.ArchiveFile,
			Label:       req.ArchiveFile,
			Description: "pipeline output files",
		}}
	}

	result, err := callOne[reportResult](ctx, c, MethodCreateReport, params)
	if err != nil {
		return model.ReportInfo{}, err
	}
	if result.Ref == "" {
		return model.ReportInfo{}, &Error{Op: MethodCreateReport, Message: "no report reference returned"}
	}
	return model.ReportInfo{Name: result.Name, Ref: result.Ref}, nil
}

func requireRef(op, ref string) (string, error) {
	if ref == "" {
		return "", &Error{Op: op, Message: "no object reference returned"}
	}
	return ref, nil
}
