package model

// FileStatus classifies a per-file change record.
type FileStatus string

const (
	FileStatusAdded    FileStatus = "added"
	FileStatusModified FileStatus = "modified"
	FileStatusDeleted  FileStatus = "deleted"
	FileStatusRenamed  FileStatus = "renamed"
)

// ForgeConfig represents forge-specific configuration
type ForgeConfig struct {
	BaseURL       string
	Token         string
	WebhookSecret string
	BotName       string
}

// User represents a user across different forges
type User struct {
	ID       string
	Username string
	Name     string
	Email    string
}

// DiffRefs pins the three SHAs that anchor a positioned discussion to a
// specific diff version on the GitLab-style forge.
type DiffRefs struct {
	BaseSHA  string
	StartSHA string
	HeadSHA  string
}

// MergeRequest represents a merge/pull request across different forges
type MergeRequest struct {
	ID             string
	IID            int
	Title          string
	Description    string
	SourceBranch   string
	TargetBranch   string
	Author         User
	URL            string
	State          string
	SHA            string
	DiffRefs       DiffRefs
	WorkInProgress bool
}

// DiffItem is a per-file change record. It is owned by a single pipeline run
// and must not be mutated once publishing begins.
type DiffItem struct {
	OldPath   string
	NewPath   string
	Status    FileStatus
	Patch     string
	IsBinary  bool
	TooLarge  bool
	Collapsed bool
	Generated bool

	// Derived by the patch extender.
	AnnotatedDiff string
	NewLines      map[int]string
	OldLines      map[int]string
}

// Comment is an existing comment fetched back from the forge
type Comment struct {
	ID       string
	Body     string
	FilePath string
	Line     int
	Side     ReviewSide
	Inline   bool
	Author   User
}

// CodeEvent represents a webhook event from any forge
type CodeEvent struct {
	Type         string
	Action       string
	ProjectID    string
	MergeRequest *MergeRequest
	User         *User
}
