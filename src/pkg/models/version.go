package models

import "time"

// VersionState is the locally installed {binary, content} version pair.
// JSON keys match the release's version descriptor.
type VersionState struct {
	BinaryVersion  string `json:"launcher"`
	ContentVersion string `json:"modpack"`
}

// Asset is a downloadable file attached to a release
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
	Size        int64  `json:"size"`
}

// ReleaseManifest describes the latest remote release and the versions
// advertised by its version descriptor asset.
type ReleaseManifest struct {
	Tag         string       `json:"tag"`
	PublishedAt time.Time    `json:"published_at"`
	Assets      []Asset      `json:"assets"`
	Versions    VersionState `json:"versions"`
}

// Asset returns the asset with the given name
func (m *ReleaseManifest) Asset(name string) (Asset, bool) {
	for _, a := range m.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// UpdatePlan says which artifacts differ from the local install
type UpdatePlan struct {
	ContentNeeded bool `json:"content_needed"`
	BinaryNeeded  bool `json:"binary_needed"`
}

// Empty reports whether nothing needs to be updated
func (p UpdatePlan) Empty() bool {
	return !p.ContentNeeded && !p.BinaryNeeded
}

// UpdateCheck bundles a plan with the manifest and local state it was
// computed from. A plan is only valid for its own manifest.
type UpdateCheck struct {
	Local    VersionState     `json:"local"`
	Manifest *ReleaseManifest `json:"manifest"`
	Plan     UpdatePlan       `json:"plan"`
}

// ContentEntry is an item of the remote content tree
type ContentEntry struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
	Size        int64  `json:"size"`
}

// UpdateStage is a step of an update operation
type UpdateStage string

const (
	StageIdle              UpdateStage = "idle"
	StageChecking          UpdateStage = "checking"
	StageSyncingContent    UpdateStage = "syncing_content"
	StageDownloadingBinary UpdateStage = "downloading_binary"
	StageVerifying         UpdateStage = "verifying"
	StageHandingOff        UpdateStage = "handing_off"
	StageCompleted         UpdateStage = "completed"
	StageFailed            UpdateStage = "failed"
)

// UpdateStatus represents the status of an update operation
type UpdateStatus struct {
	Stage     UpdateStage `json:"stage"`
	Progress  float64     `json:"progress"`
	Message   string      `json:"message"`
	Error     string      `json:"error,omitempty"`
	Completed bool        `json:"completed"`
}
