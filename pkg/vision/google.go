package vision

import (
	"context"
	"fmt"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	errs "igvision/pkg/errors"
)

// batchAnnotator is the subset of the Cloud Vision client GoogleDetector uses
type batchAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// GoogleDetector implements Detector on Google Cloud Vision
type GoogleDetector struct {
	client batchAnnotator
	closer func() error
}

// NewGoogleDetector connects to Cloud Vision. When credentialsFile is empty
// the client falls back to Application Default Credentials.
func NewGoogleDetector(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GoogleDetector, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gvision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.KindAuth, "vision.connect", fmt.Errorf("failed to create vision client: %w", err))
	}
	return &GoogleDetector{client: client, closer: client.Close}, nil
}

// Close releases the underlying connection
func (d *GoogleDetector) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *GoogleDetector) annotate(ctx context.Context, image []byte, feature visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	op := "vision." + feature.String()
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: feature}},
		}},
	}

	resp, err := d.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.KindVision, op, err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, errs.New(errs.KindVision, op, "empty response")
	}

	res := resp.GetResponses()[0]
	if msg := res.GetError().GetMessage(); msg != "" {
		return nil, errs.New(errs.KindVision, op, "%s", msg)
	}
	return res, nil
}

// DetectFaces returns the emotion likelihoods and confidence of every face
func (d *GoogleDetector) DetectFaces(ctx context.Context, image []byte) ([]FaceResult, error) {
	res, err := d.annotate(ctx, image, visionpb.Feature_FACE_DETECTION)
	if err != nil {
		return nil, err
	}

	faces := make([]FaceResult, 0, len(res.GetFaceAnnotations()))
	for _, f := range res.GetFaceAnnotations() {
		faces = append(faces, FaceResult{
			Joy:        fromProto(f.GetJoyLikelihood()),
			Sorrow:     fromProto(f.GetSorrowLikelihood()),
			Anger:      fromProto(f.GetAngerLikelihood()),
			Surprise:   fromProto(f.GetSurpriseLikelihood()),
			Confidence: f.GetDetectionConfidence(),
		})
	}
	return faces, nil
}

// DetectLabels returns every label without score filtering
func (d *GoogleDetector) DetectLabels(ctx context.Context, image []byte) ([]LabelResult, error) {
	res, err := d.annotate(ctx, image, visionpb.Feature_LABEL_DETECTION)
	if err != nil {
		return nil, err
	}

	labels := make([]LabelResult, 0, len(res.GetLabelAnnotations()))
	for _, l := range res.GetLabelAnnotations() {
		labels = append(labels, LabelResult{Description: l.GetDescription(), Score: l.GetScore()})
	}
	return labels, nil
}

// DetectSafeSearch returns the adult, violence and racy likelihoods
func (d *GoogleDetector) DetectSafeSearch(ctx context.Context, image []byte) (SafeSearchResult, error) {
	res, err := d.annotate(ctx, image, visionpb.Feature_SAFE_SEARCH_DETECTION)
	if err != nil {
		return SafeSearchResult{}, err
	}

	s := res.GetSafeSearchAnnotation()
	return SafeSearchResult{
		Adult:    fromProto(s.GetAdult()),
		Violence: fromProto(s.GetViolence()),
		Racy:     fromProto(s.GetRacy()),
	}, nil
}

func fromProto(l visionpb.Likelihood) Likelihood {
	v := Likelihood(l)
	if v < Unknown || v > VeryLikely {
		return Unknown
	}
	return v
}
