package transcriber

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/wouk1805/prepgenius/external/gemini"
	"github.com/wouk1805/prepgenius/internal/config"
	"github.com/wouk1805/prepgenius/internal/transcriber"
)

// RegisterDI selects the transcription backend. The gemini package must be
// registered first when it is the configured backend.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.TranscriberBackend != config.TranscriberBackendCloudSpeech {
			return do.MustInvoke[*gemini.Client](i), nil
		}
		t, err := NewCloudSpeechTranscriber(context.Background(), CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}
