package vision

import (
	"encoding/json"
	"fmt"
)

// Likelihood is the ordinal confidence scale returned for qualitative judgments
type Likelihood int

const (
	Unknown Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = [...]string{
	Unknown:      "UNKNOWN",
	VeryUnlikely: "VERY_UNLIKELY",
	Unlikely:     "UNLIKELY",
	Possible:     "POSSIBLE",
	Likely:       "LIKELY",
	VeryLikely:   "VERY_LIKELY",
}

func (l Likelihood) String() string {
	if l < Unknown || l > VeryLikely {
		return likelihoodNames[Unknown]
	}
	return likelihoodNames[l]
}

// ParseLikelihood converts a likelihood name back to its value
func ParseLikelihood(name string) (Likelihood, error) {
	for i, n := range likelihoodNames {
		if n == name {
			return Likelihood(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown likelihood: %q", name)
}

func (l Likelihood) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Likelihood) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseLikelihood(name)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// FaceResult holds the emotion likelihoods of one detected face
type FaceResult struct {
	Joy        Likelihood `json:"joy"`
	Sorrow     Likelihood `json:"sorrow"`
	Anger      Likelihood `json:"anger"`
	Surprise   Likelihood `json:"surprise"`
	Confidence float32    `json:"confidence"`
}

// LabelResult is one detected label
type LabelResult struct {
	Description string  `json:"description"`
	Score       float32 `json:"score"`
}

// SafeSearchResult holds the safe-search categories the pipeline keeps
type SafeSearchResult struct {
	Adult    Likelihood `json:"adult"`
	Violence Likelihood `json:"violence"`
	Racy     Likelihood `json:"racy"`
}

// Record is the annotation outcome for one image. When Error is set the
// analysis fields are meaningless and are left out of the JSON form.
type Record struct {
	ImagePath  string
	Faces      []FaceResult
	Labels     []LabelResult
	SafeSearch SafeSearchResult
	Error      string
}

// Failed reports whether the image could not be analyzed
func (r Record) Failed() bool {
	return r.Error != ""
}

type successRecord struct {
	ImagePath  string           `json:"image_path"`
	Faces      []FaceResult     `json:"faces"`
	Labels     []LabelResult    `json:"labels"`
	SafeSearch SafeSearchResult `json:"safe_search"`
}

type errorRecord struct {
	ImagePath string `json:"image_path"`
	Error     string `json:"error"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(errorRecord{ImagePath: r.ImagePath, Error: r.Error})
	}

	out := successRecord{
		ImagePath:  r.ImagePath,
		Faces:      r.Faces,
		Labels:     r.Labels,
		SafeSearch: r.SafeSearch,
	}
	if out.Faces == nil {
		out.Faces = []FaceResult{}
	}
	if out.Labels == nil {
		out.Labels = []LabelResult{}
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		successRecord
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		ImagePath:  raw.ImagePath,
		Faces:      raw.Faces,
		Labels:     raw.Labels,
		SafeSearch: raw.SafeSearch,
		Error:      raw.Error,
	}
	return nil
}
