package pipeline

// Stage is a step of a pipeline run
type Stage int32

const (
	StageInit Stage = iota
	StageDirectoriesReady
	StagePostsFetched
	StageMediaDownloaded
	StageImagesAnnotated
	StageSummarized
	StageErrored
)

var stageNames = [...]string{
	StageInit:             "init",
	StageDirectoriesReady: "directories_ready",
	StagePostsFetched:     "posts_fetched",
	StageMediaDownloaded:  "media_downloaded",
	StageImagesAnnotated:  "images_annotated",
	StageSummarized:       "summarized",
	StageErrored:          "errored",
}

func (s Stage) String() string {
	if s < StageInit || s > StageErrored {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further stage follows s
func (s Stage) Terminal() bool {
	return s == StageSummarized || s == StageErrored
}
