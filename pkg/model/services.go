package model

// Object kinds known to the storage services.
const (
	KindReads     = "reads"
	KindAssembly  = "assembly"
	KindAlignment = "alignment"
	KindReport    = "report"
)

// ReadsUpload describes an interleaved FASTQ file to store as a reads object.
type ReadsUpload struct {
	Path      string
	Name      string
	Workspace string
	SourceRef string // reads object the file was derived from
}

// AssemblyUpload describes a FASTA file to store as an assembly object.
type AssemblyUpload struct {
	Path      string
	Name      string
	Workspace string
}

// AlignmentUpload describes a SAM/BAM file to store as an alignment of
// ReadsRef against AssemblyRef.
type AlignmentUpload struct {
	Path        string
	Name        string
	Workspace   string
	ReadsRef    string
	AssemblyRef string
}

// ReportObject is a stored object the report links to.
type ReportObject struct {
	Ref         string `json:"ref"`
	Description string `json:"description"`
}

// ReportRequest is a directory of report assets to publish. HTMLFile and
// ArchiveFile are names within Dir.
type ReportRequest struct {
	Dir         string
	HTMLFile    string
	ArchiveFile string
	ObjectName  string
	Workspace   string
	Message     string
	Objects     []ReportObject
}

// ReportInfo identifies a published report.
type ReportInfo struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}
