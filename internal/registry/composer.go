package registry

import (
	"context"
	"errors"

	"flowcanvas/internal/domain"
)

func composerNodes() []Definition {
	return []Definition{
		&node{
			typ:   domain.NodeTypeVideoComposer,
			label: "Media Composer",
			inputs: []domain.PortDefinition{
				{ID: "clips", Label: "Clips", Type: domain.ResourceVideo, Multiple: true},
				{ID: "audio", Label: "Audio", Type: domain.ResourceAudio},
			},
			outputs: []domain.PortDefinition{
				{ID: "final", Label: "Composition", Type: domain.ResourceVideo, Subtype: domain.SubtypeVideo},
			},
			run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
				clips := ec.Inputs["clips"].Strings()
				if len(clips) == 0 {
					return domain.Result{}, errors.New("Connect at least one video clip.")
				}

				// Muxing happens downstream; the first clip stands in as the cover
				res := domain.ListResult(domain.ResourceVideo, clips[0], append([]string(nil), clips...))
				res.AudioTrack = ec.Input("audio")
				return res, nil
			},
		},
	}
}
