package pipeline

import "encoding/json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Summary is the outcome of one run. Error summaries carry only Status and Error.
type Summary struct {
	Status           string
	BaseDirectory    string
	PostsProcessed   int
	ImagesAnalyzed   int
	MetadataPath     string
	AnalysisPath     string
	ImagesDownloaded int
	VideosDownloaded int
	DownloadsFailed  int
	PostsFailed      int
	Error            string
}

// OK reports whether the run completed
func (s Summary) OK() bool {
	return s.Status == StatusSuccess
}

type successSummary struct {
	Status           string `json:"status"`
	BaseDirectory    string `json:"base_directory"`
	PostsProcessed   int    `json:"posts_processed"`
	ImagesAnalyzed   int    `json:"images_analyzed"`
	MetadataPath     string `json:"metadata_path"`
	AnalysisPath     string `json:"analysis_path"`
	ImagesDownloaded int    `json:"images_downloaded"`
	VideosDownloaded int    `json:"videos_downloaded"`
	DownloadsFailed  int    `json:"downloads_failed"`
	PostsFailed      int    `json:"posts_failed"`
}

type errorSummary struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	if !s.OK() {
		return json.Marshal(errorSummary{Status: StatusError, Error: s.Error})
	}
	return json.Marshal(successSummary{
		Status:           s.Status,
		BaseDirectory:    s.BaseDirectory,
		PostsProcessed:   s.PostsProcessed,
		ImagesAnalyzed:   s.ImagesAnalyzed,
		MetadataPath:     s.MetadataPath,
		AnalysisPath:     s.AnalysisPath,
		ImagesDownloaded: s.ImagesDownloaded,
		VideosDownloaded: s.VideosDownloaded,
		DownloadsFailed:  s.DownloadsFailed,
		PostsFailed:      s.PostsFailed,
	})
}

func errorResult(err error) Summary {
	return Summary{Status: StatusError, Error: err.Error()}
}
