package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/wouk1805/prepgenius/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443

	highConfidenceThreshold = 0.8
	lowConfidenceThreshold  = 0.5
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// CloudSpeechTranscriber sends each recorded clip to Cloud Speech-to-Text v2
// in a single Recognize call.
type CloudSpeechTranscriber struct {
	recognizer string
	model      string
	recognize  recognizeFunc
	closeFn    func() error
}

func NewCloudSpeechTranscriber(ctx context.Context, cfg CloudSpeechConfig) (*CloudSpeechTranscriber, error) {
	location := strings.TrimSpace(cfg.Location)
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	slog.Info("cloud speech transcriber ready", "location", location, "model", cfg.Model)
	return &CloudSpeechTranscriber{
		recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", cfg.ProjectID, location),
		model:      strings.TrimSpace(cfg.Model),
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		closeFn: client.Close,
	}, nil
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, req transcriber.Request) (*transcriber.Result, error) {
	resp, err := t.recognize(ctx, t.buildRequest(req))
	if err != nil {
		if isQuotaError(err) {
			return nil, fmt.Errorf("%w: %v", transcriber.ErrQuotaExhausted, err)
		}
		return nil, fmt.Errorf("recognize speech: %w", err)
	}
	transcript, confidence := collectTranscript(resp)
	slog.Debug("cloud speech recognized clip", "session_id", req.SessionID, "results", len(resp.GetResults()), "confidence", confidence)
	return transcriber.BuildResult(transcriber.CleanTranscript(transcript), req.Language, confidence), nil
}

func (t *CloudSpeechTranscriber) buildRequest(req transcriber.Request) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Recognizer: t.recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{req.Language.Locale()},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{
				EnableAutomaticPunctuation: true,
			},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: req.Audio},
	}
}

// Shutdown closes the gRPC connection when the injector shuts down.
func (t *CloudSpeechTranscriber) Shutdown() error {
	if t.closeFn == nil {
		return nil
	}
	return t.closeFn()
}

// collectTranscript joins the top alternative of every result. Confidence is
// the lowest reported value; models that report none count as medium.
func collectTranscript(resp *speechpb.RecognizeResponse) (string, transcriber.Confidence) {
	parts := make([]string, 0, len(resp.GetResults()))
	lowest := float32(-1)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		if text == "" {
			continue
		}
		parts = append(parts, text)
		if c := alts[0].GetConfidence(); c > 0 && (lowest < 0 || c < lowest) {
			lowest = c
		}
	}
	return strings.Join(parts, " "), confidenceLevel(lowest)
}

func confidenceLevel(score float32) transcriber.Confidence {
	switch {
	case score < 0:
		return transcriber.ConfidenceMedium
	case score >= highConfidenceThreshold:
		return transcriber.ConfidenceHigh
	case score >= lowConfidenceThreshold:
		return transcriber.ConfidenceMedium
	default:
		return transcriber.ConfidenceLow
	}
}

func isQuotaError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.ResourceExhausted
}

var _ transcriber.Transcriber = (*CloudSpeechTranscriber)(nil)
