package delivery

import (
	"net/http"
	"net/url"

	"media-toolkit/internal/pipeline"
)

// Persist keeps the artifact in the user's final directory and reports its name.
type Persist struct {
	dir string
}

// NewPersist places artifacts in dir.
func NewPersist(dir string) *Persist {
	return &Persist{dir: dir}
}

func (p *Persist) Name() Mode { return ModePersist }
func (p *Persist) Dir(string) string { return p.dir }

func (p *Persist) Deliver(w http.ResponseWriter, _ *http.Request, res *pipeline.Result) error {
	err := writeJSON(w, http.StatusOK, FilesResponse{
		Success: true,
		Files:   []FileEntry{{Filename: res.Artifact.Filename}},
	})
	observe(ModePersist, err, 0)
	return err
}

// Relocate moves the artifact into a downloads directory and answers with a
// link to the download route.
type Relocate struct {
	dir string
}

// NewRelocate places artifacts in dir, which the download route serves from.
func NewRelocate(dir string) *Relocate {
	return &Relocate{dir: dir}
}

func (r *Relocate) Name() Mode { return ModeRelocate }
func (r *Relocate) Dir(string) string { return r.dir }

func (r *Relocate) Deliver(w http.ResponseWriter, _ *http.Request, res *pipeline.Result) error {
	err := writeJSON(w, http.StatusOK, LinkResponse{
		Success:     true,
		DownloadURL: DownloadURL(res.Artifact.Filename),
		Filename:    res.Artifact.Filename,
	})
	observe(ModeRelocate, err, 0)
	return err
}

// DownloadURL returns the relative URL that serves filename.
func DownloadURL(filename string) string {
	return DownloadRoute + "?file=" + url.QueryEscape(filename)
}
