package kbase

import "encoding/json"

// RPCRequest represents a JSON-RPC 1.1 request envelope.
type RPCRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Version string `json:"version"`
	Params  []any  `json:"params"`
}

// RPCResponse represents a JSON-RPC 1.1 response envelope. SDK services
// return their result wrapped in a single element array.
type RPCResponse struct {
	ID      string          `json:"id"`
	Version string          `json:"version"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error object.
type RPCError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// Service method names.
const (
	MethodDownloadReads   = "ReadsUtils.download_reads"
	MethodUploadReads     = "ReadsUtils.upload_reads"
	MethodSaveAssembly    = "AssemblyUtil.save_assembly_from_fasta"
	MethodUploadAlignment = "ReadAlignmentUtils.upload_alignment"
	MethodFileToShock     = "DataFileUtil.file_to_shock"
	MethodCreateReport    = "KBaseReport.create_extended_report"
)

type downloadReadsParams struct {
	ReadLibraries []string `json:"read_libraries"`
	Interleaved   string   `json:"interleaved"`
}

type downloadedFiles struct {
	Fwd  string `json:"fwd"`
	Rev  string `json:"rev,omitempty"`
	Type string `json:"type"`
}

type downloadedReads struct {
	Files downloadedFiles `json:"files"`
	Ref   string          `json:"ref,omitempty"`
}

type downloadReadsResult struct {
	Files map[string]downloadedReads `json:"files"`
}

type uploadReadsParams struct {
	FwdFile        string `json:"fwd_file"`
	Interleaved    int    `json:"interleaved"`
	WorkspaceName  string `json:"wsname"`
	Name           string `json:"name"`
	SourceReadsRef string `json:"source_reads_ref,omitempty"`
}

type objRefResult struct {
	ObjRef string `json:"obj_ref"`
}

type fileSpec struct {
	Path string `json:"path"`
}

type saveAssemblyParams struct {
	File          fileSpec `json:"file"`
	WorkspaceName string   `json:"workspace_name"`
	AssemblyName  string   `json:"assembly_name"`
}

type uploadAlignmentParams struct {
	DestinationRef      string `json:"destination_ref"`
	FilePath            string `json:"file_path"`
	ReadLibraryRef      string `json:"read_library_ref"`
	AssemblyOrGenomeRef string `json:"assembly_or_genome_ref"`
	Condition           string `json:"condition"`
}

type fileToShockParams struct {
	FilePath string `json:"file_path"`
	Pack     string `json:"pack,omitempty"`
}

type fileToShockResult struct {
	ShockID string `json:"shock_id"`
	Size    int64  `json:"size"`
}

type reportLink struct {
	ShockID     string `json:"shock_id,omitempty"`
	Path        string `json:"path,omitempty"`
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description"`
}

type objectCreated struct {
	Ref         string `json:"ref"`
	Description string `json:"description"`
}

type createReportParams struct {
	Message             string          `json:"message"`
	ObjectsCreated      []objectCreated `json:"objects_created"`
	DirectHTMLLinkIndex int             `json:"direct_html_link_index"`
	HTMLLinks           []reportLink    `json:"html_links"`
	FileLinks           []reportLink    `json:"file_links,omitempty"`
	ReportObjectName    string          `json:"report_object_name"`
	WorkspaceName       string          `json:"workspace_name"`
}

type reportResult struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}
